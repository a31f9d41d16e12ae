// Package pipeline orchestrates one inbox aggregation: connect, search,
// fetch, then a concurrent parse/classify/persist fan-out per message.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/expensio/expensio/pkg/classify"
	"github.com/expensio/expensio/pkg/document"
	"github.com/expensio/expensio/pkg/mail"
	"github.com/expensio/expensio/pkg/mailbox"
)

// defaultMaxWorkers bounds the per-message fan-out when the caller does not
// set a cap. Each worker may launch a browser process, so this stays small.
const defaultMaxWorkers = 4

// Conn is an open, authenticated mailbox with a folder selected.
type Conn interface {
	Search(criteria mailbox.Criteria) ([]uint32, error)
	Fetch(seqNums []uint32) Cursor
	Close() error
}

// Cursor streams complete raw messages; Next returns nil at end of stream.
type Cursor interface {
	Next() (*mailbox.FetchedMessage, error)
	Close() error
}

// Renderer converts an HTML body into a persisted PDF artifact.
type Renderer interface {
	Render(ctx context.Context, htmlContent, subject string) (document.PersistedDocument, error)
}

// DialFunc opens a connection and selects the folder, or fails without
// leaving a live connection behind.
type DialFunc func(creds mailbox.Credentials, folder string) (Conn, error)

// IMAPDialer is the production DialFunc, backed by pkg/mailbox.
func IMAPDialer(creds mailbox.Credentials, folder string) (Conn, error) {
	session, err := mailbox.Dial(creds)
	if err != nil {
		return nil, err
	}
	if err := session.Open(folder, false); err != nil {
		if cerr := session.Close(); cerr != nil {
			log.Warn().Str("module", "pipeline").Err(cerr).
				Msg("Failed to close session after open failure")
		}
		return nil, err
	}
	return &imapConn{session}, nil
}

// imapConn adapts mailbox.Session to the Conn interface.
type imapConn struct {
	session *mailbox.Session
}

func (c *imapConn) Search(criteria mailbox.Criteria) ([]uint32, error) {
	return c.session.Search(criteria)
}

func (c *imapConn) Fetch(seqNums []uint32) Cursor {
	return c.session.Fetch(seqNums)
}

func (c *imapConn) Close() error {
	return c.session.Close()
}

// Result summarizes one aggregation run. Per-message failures are counted
// and listed, never escalated; only connection and search stage failures
// abort a run.
type Result struct {
	Documents []document.PersistedDocument `json:"documents"`
	Matched   int                          `json:"matched"`
	Processed int                          `json:"processed"`
	Skipped   int                          `json:"skipped"`
	Failed    int                          `json:"failed"`
	Errors    []string                     `json:"errors,omitempty"`
}

// Aggregator wires the pipeline stages together.
type Aggregator struct {
	Store    *document.Store
	Renderer Renderer

	// Dial defaults to IMAPDialer; tests substitute fakes.
	Dial DialFunc

	// Folder defaults to INBOX.
	Folder string

	// MaxWorkers caps concurrent message processing. Zero means the
	// default cap.
	MaxWorkers int
}

// Aggregate runs one mailbox aggregation. The connection is closed on
// every exit path; in-flight message tasks are joined before it closes.
func (a *Aggregator) Aggregate(ctx context.Context, creds mailbox.Credentials, criteria mailbox.Criteria) (*Result, error) {
	dial := a.Dial
	if dial == nil {
		dial = IMAPDialer
	}
	folder := a.Folder
	if folder == "" {
		folder = "INBOX"
	}

	conn, err := dial(creds, folder)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Warn().Str("module", "pipeline").Err(cerr).Msg("Failed to close mailbox connection")
		}
	}()

	seqNums, err := conn.Search(criteria)
	if err != nil {
		return nil, err
	}
	res := &Result{Matched: len(seqNums)}
	if len(seqNums) == 0 {
		log.Info().Str("module", "pipeline").Msg("No matching messages")
		return res, nil
	}
	log.Info().Str("module", "pipeline").Int("matched", len(seqNums)).Msg("Fetching matched messages")

	cursor := conn.Fetch(seqNums)
	defer func() {
		if cerr := cursor.Close(); cerr != nil {
			log.Warn().Str("module", "pipeline").Err(cerr).Msg("Failed to close fetch stream")
		}
	}()

	workers := a.MaxWorkers
	if workers <= 0 {
		workers = defaultMaxWorkers
	}
	var (
		group errgroup.Group
		mu    sync.Mutex
	)
	group.SetLimit(workers)

	for {
		msg, err := cursor.Next()
		if err != nil {
			mu.Lock()
			res.Errors = append(res.Errors, fmt.Sprintf("fetch stream: %v", err))
			mu.Unlock()
			break
		}
		if msg == nil {
			break
		}
		group.Go(func() error {
			a.processMessage(ctx, msg, res, &mu)
			return nil
		})
	}

	// Join all in-flight tasks before the deferred connection close.
	_ = group.Wait()
	return res, nil
}

// processMessage parses, classifies and persists one fetched message. All
// failures are recovered locally so sibling messages keep processing.
func (a *Aggregator) processMessage(ctx context.Context, msg *mailbox.FetchedMessage, res *Result, mu *sync.Mutex) {
	parsed, err := mail.Parse(msg.Raw)
	if err != nil {
		log.Error().Str("module", "pipeline").Uint32("seq", msg.SeqNum).Err(err).
			Msg("Skipping unparseable message")
		mu.Lock()
		res.Failed++
		res.Errors = append(res.Errors, fmt.Sprintf("message %d: %v", msg.SeqNum, err))
		mu.Unlock()
		return
	}
	log.Debug().Str("module", "pipeline").Uint32("seq", msg.SeqNum).
		Str("from", parsed.From).Str("subject", parsed.Subject).Msg("Processing message")

	if !classify.IsFinancial(parsed.Subject) {
		mu.Lock()
		res.Skipped++
		mu.Unlock()
		return
	}

	var (
		docs []document.PersistedDocument
		errs []string
	)
	for _, part := range parsed.Attachments {
		if part.Disposition != mail.DispositionAttachment {
			continue
		}
		doc, err := a.Store.SaveAttachment(part, parsed.Subject)
		if err != nil {
			log.Error().Str("module", "pipeline").Uint32("seq", msg.SeqNum).
				Str("filename", part.FileName).Err(err).Msg("Failed to save attachment")
			errs = append(errs, fmt.Sprintf("message %d attachment %q: %v", msg.SeqNum, part.FileName, err))
			continue
		}
		docs = append(docs, doc)
	}
	if parsed.HTMLBody != "" {
		doc, err := a.Renderer.Render(ctx, parsed.HTMLBody, parsed.Subject)
		if err != nil {
			// Non-fatal: one bad render does not abort the batch.
			log.Error().Str("module", "pipeline").Uint32("seq", msg.SeqNum).Err(err).
				Msg("Failed to render HTML body")
			errs = append(errs, fmt.Sprintf("message %d render: %v", msg.SeqNum, err))
		} else {
			docs = append(docs, doc)
		}
	}

	mu.Lock()
	res.Processed++
	res.Documents = append(res.Documents, docs...)
	res.Errors = append(res.Errors, errs...)
	mu.Unlock()
}
