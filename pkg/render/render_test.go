package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/expensio/expensio/pkg/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRenderer(t *testing.T, print printFunc) (*Renderer, string) {
	t.Helper()
	dir := t.TempDir()
	r := NewRenderer(document.NewStore(dir), time.Minute)
	r.print = print
	return r, dir
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestRenderWritesPDFAndRemovesHTML(t *testing.T) {
	var gotURL string
	r, dir := testRenderer(t, func(_ context.Context, url string) ([]byte, error) {
		gotURL = url
		return []byte("%PDF-1.4 rendered"), nil
	})

	doc, err := r.Render(context.Background(), "<h1>Invoice #42</h1>", "Invoice #42")
	require.NoError(t, err)

	assert.Equal(t, "invoice", doc.Keyword)
	content, err := os.ReadFile(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 rendered", string(content))

	// The browser was pointed at the intermediate HTML file.
	assert.True(t, strings.HasPrefix(gotURL, "file://"), "url %q", gotURL)
	assert.True(t, strings.HasSuffix(gotURL, ".html"), "url %q", gotURL)

	// Only the PDF remains; the HTML intermediate is gone.
	names := listDir(t, dir)
	require.Len(t, names, 1)
	assert.Equal(t, filepath.Base(doc.Path), names[0])
}

func TestRenderFailureStillRemovesHTML(t *testing.T) {
	r, dir := testRenderer(t, func(context.Context, string) ([]byte, error) {
		return nil, errors.New("browser crashed")
	})

	_, err := r.Render(context.Background(), "<p>receipt</p>", "Receipt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser crashed")

	// No artifacts survive a failed render, HTML included.
	assert.Empty(t, listDir(t, dir))
}

func TestRenderHonorsContext(t *testing.T) {
	r, _ := testRenderer(t, func(ctx context.Context, _ string) ([]byte, error) {
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Render(ctx, "<p/>", "order")
	assert.Error(t, err)
}
