// Package render converts an HTML email body into a paginated PDF artifact
// using a headless Chrome instance. Each call spawns its own browser
// process; callers needing throughput cap concurrency externally.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/expensio/expensio/pkg/document"
)

// A4 paper size in inches, matching the fixed page size of the emitted PDF.
const (
	paperWidth  = 8.27
	paperHeight = 11.69
)

// printFunc renders the document at url to PDF bytes. Seam for tests.
type printFunc func(ctx context.Context, url string) ([]byte, error)

// Renderer converts HTML bodies into PDF artifacts in its document store.
type Renderer struct {
	store   *document.Store
	timeout time.Duration
	print   printFunc
}

// NewRenderer returns a renderer writing into store. A timeout of zero
// disables the per-render deadline.
func NewRenderer(store *document.Store, timeout time.Duration) *Renderer {
	return &Renderer{store: store, timeout: timeout, print: chromePrint}
}

// Render writes htmlContent to an intermediate file, rasterizes it to an
// A4 PDF, and removes the intermediate file. The intermediate file is
// removed even when rendering fails after the browser launched.
func (r *Renderer) Render(ctx context.Context, htmlContent, subject string) (document.PersistedDocument, error) {
	doc := r.store.NewArtifact(subject, ".pdf")
	htmlPath, err := r.store.WriteHTML(doc, htmlContent)
	if err != nil {
		return document.PersistedDocument{}, err
	}
	defer func() {
		if err := os.Remove(htmlPath); err != nil {
			log.Warn().Str("module", "render").Str("path", htmlPath).Err(err).
				Msg("Failed to remove intermediate HTML")
		}
	}()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	absPath, err := filepath.Abs(htmlPath)
	if err != nil {
		return document.PersistedDocument{}, fmt.Errorf("resolving html path: %w", err)
	}
	pdf, err := r.print(ctx, "file://"+absPath)
	if err != nil {
		return document.PersistedDocument{}, fmt.Errorf("rendering html to pdf: %w", err)
	}
	if err := os.WriteFile(doc.Path, pdf, 0660); err != nil {
		return document.PersistedDocument{}, fmt.Errorf("writing pdf: %w", err)
	}

	log.Debug().Str("module", "render").Str("path", doc.Path).
		Int("bytes", len(pdf)).Msg("Rendered HTML body to PDF")
	return doc, nil
}

// chromePrint launches an isolated headless Chrome, loads the URL, waits
// for the page to settle, and prints it to PDF. The context cancel funcs
// guarantee the browser process is released on every exit path.
func chromePrint(ctx context.Context, url string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithPrintBackground(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	return pdf, err
}
