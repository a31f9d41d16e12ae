package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/expensio/expensio/pkg/document"
	"github.com/expensio/expensio/pkg/mailbox"
	"github.com/expensio/expensio/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn scripts the mailbox side of a run and records lifecycle calls.
type fakeConn struct {
	searchResult []uint32
	searchErr    error
	messages     []*mailbox.FetchedMessage
	fetchErr     error

	fetchCalled bool
	closed      bool
}

func (c *fakeConn) Search(mailbox.Criteria) ([]uint32, error) {
	return c.searchResult, c.searchErr
}

func (c *fakeConn) Fetch([]uint32) pipeline.Cursor {
	c.fetchCalled = true
	return &fakeCursor{messages: c.messages, err: c.fetchErr}
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeCursor struct {
	messages []*mailbox.FetchedMessage
	err      error
	pos      int
}

func (c *fakeCursor) Next() (*mailbox.FetchedMessage, error) {
	if c.pos >= len(c.messages) {
		if c.err != nil {
			return nil, c.err
		}
		return nil, nil
	}
	msg := c.messages[c.pos]
	c.pos++
	return msg, nil
}

func (c *fakeCursor) Close() error { return nil }

type fakeRenderer struct {
	err   error
	calls int
}

func (r *fakeRenderer) Render(_ context.Context, _, subject string) (document.PersistedDocument, error) {
	r.calls++
	if r.err != nil {
		return document.PersistedDocument{}, r.err
	}
	return document.PersistedDocument{Path: fmt.Sprintf("render-%d.pdf", r.calls), Keyword: "invoice"}, nil
}

func attachmentMessage(seq uint32, subject string) *mailbox.FetchedMessage {
	raw := "From: shop@example.com\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"B\"\r\n" +
		"\r\n" +
		"--B\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"see attached\r\n" +
		"--B\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"scan.pdf\"\r\n" +
		"\r\n" +
		"%PDF-1.4 body\r\n" +
		"--B--\r\n"
	return &mailbox.FetchedMessage{SeqNum: seq, Raw: []byte(raw)}
}

func htmlMessage(seq uint32, subject string) *mailbox.FetchedMessage {
	raw := "From: shop@example.com\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<html><body><p>Total: $12.50</p></body></html>\r\n"
	return &mailbox.FetchedMessage{SeqNum: seq, Raw: []byte(raw)}
}

func testAggregator(t *testing.T, conn *fakeConn, renderer pipeline.Renderer) *pipeline.Aggregator {
	t.Helper()
	return &pipeline.Aggregator{
		Store:    document.NewStore(t.TempDir()),
		Renderer: renderer,
		Dial: func(mailbox.Credentials, string) (pipeline.Conn, error) {
			return conn, nil
		},
	}
}

func TestAggregateSavesMatchingAttachments(t *testing.T) {
	conn := &fakeConn{
		searchResult: []uint32{1, 2, 3},
		messages: []*mailbox.FetchedMessage{
			attachmentMessage(1, "Invoice #1"),
			attachmentMessage(2, "Invoice #2"),
			attachmentMessage(3, "Lunch plans"),
		},
	}
	agg := testAggregator(t, conn, &fakeRenderer{})

	res, err := agg.Aggregate(context.Background(), mailbox.Credentials{}, mailbox.Criteria{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Failed)
	require.Len(t, res.Documents, 2)
	for _, doc := range res.Documents {
		assert.Equal(t, "invoice", doc.Keyword)
		_, err := os.Stat(doc.Path)
		assert.NoError(t, err, "artifact %q should exist", doc.Path)
	}
	assert.True(t, conn.closed)
}

func TestAggregateRendersHTMLBodies(t *testing.T) {
	conn := &fakeConn{
		searchResult: []uint32{7},
		messages:     []*mailbox.FetchedMessage{htmlMessage(7, "Your receipt")},
	}
	renderer := &fakeRenderer{}
	agg := testAggregator(t, conn, renderer)

	res, err := agg.Aggregate(context.Background(), mailbox.Credentials{}, mailbox.Criteria{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, renderer.calls)
	require.Len(t, res.Documents, 1)
}

func TestAggregateZeroMatches(t *testing.T) {
	conn := &fakeConn{}
	agg := testAggregator(t, conn, &fakeRenderer{})

	res, err := agg.Aggregate(context.Background(), mailbox.Credentials{}, mailbox.Criteria{})
	require.NoError(t, err)

	assert.Zero(t, res.Matched)
	assert.Empty(t, res.Documents)
	// Zero matches must not even start a fetch, and still close the
	// connection.
	assert.False(t, conn.fetchCalled)
	assert.True(t, conn.closed)
}

func TestAggregateDialFailureIsFatal(t *testing.T) {
	agg := &pipeline.Aggregator{
		Store:    document.NewStore(t.TempDir()),
		Renderer: &fakeRenderer{},
		Dial: func(mailbox.Credentials, string) (pipeline.Conn, error) {
			return nil, &mailbox.AuthError{Username: "u", Err: errors.New("bad password")}
		},
	}

	res, err := agg.Aggregate(context.Background(), mailbox.Credentials{}, mailbox.Criteria{})
	assert.Nil(t, res)
	var authErr *mailbox.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestAggregateSearchFailureIsFatalAndCloses(t *testing.T) {
	conn := &fakeConn{searchErr: errors.New("protocol error")}
	agg := testAggregator(t, conn, &fakeRenderer{})

	res, err := agg.Aggregate(context.Background(), mailbox.Credentials{}, mailbox.Criteria{})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, conn.closed)
}

func TestAggregateRecoversMalformedMessage(t *testing.T) {
	conn := &fakeConn{
		searchResult: []uint32{1, 2},
		messages: []*mailbox.FetchedMessage{
			{SeqNum: 1, Raw: []byte("Content-Type: multipart/mixed; boundary\r\n\r\nnot mime")},
			attachmentMessage(2, "Invoice #2"),
		},
	}
	agg := testAggregator(t, conn, &fakeRenderer{})

	res, err := agg.Aggregate(context.Background(), mailbox.Credentials{}, mailbox.Criteria{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Processed)
	assert.Len(t, res.Documents, 1)
	if res.Failed == 1 {
		assert.NotEmpty(t, res.Errors)
	}
}

func TestAggregateRenderFailureIsNonFatal(t *testing.T) {
	conn := &fakeConn{
		searchResult: []uint32{1, 2},
		messages: []*mailbox.FetchedMessage{
			htmlMessage(1, "Invoice A"),
			attachmentMessage(2, "Invoice B"),
		},
	}
	agg := testAggregator(t, conn, &fakeRenderer{err: errors.New("chrome exploded")})

	res, err := agg.Aggregate(context.Background(), mailbox.Credentials{}, mailbox.Criteria{})
	require.NoError(t, err)

	// Both messages were processed; only the attachment produced a
	// document, and the render failure shows up in the summary.
	assert.Equal(t, 2, res.Processed)
	assert.Len(t, res.Documents, 1)
	assert.NotEmpty(t, res.Errors)
}

func TestAggregateFetchStreamErrorKeepsPartialResults(t *testing.T) {
	conn := &fakeConn{
		searchResult: []uint32{1, 2},
		messages:     []*mailbox.FetchedMessage{attachmentMessage(1, "Invoice #1")},
		fetchErr:     errors.New("connection reset"),
	}
	agg := testAggregator(t, conn, &fakeRenderer{})

	res, err := agg.Aggregate(context.Background(), mailbox.Credentials{}, mailbox.Criteria{})
	require.NoError(t, err)

	assert.Len(t, res.Documents, 1)
	assert.NotEmpty(t, res.Errors)
	assert.True(t, conn.closed)
}
