package extract

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/expensio/expensio/pkg/document"
)

// Row pairs a persisted document with its extracted fields. Fields is nil
// when extraction failed for that document.
type Row struct {
	Document document.PersistedDocument `json:"document"`
	Fields   *Fields                    `json:"fields,omitempty"`
}

// Runner feeds aggregation output through an Analyzer. Extraction failures
// are per-document: they are logged and the row is returned without fields.
type Runner struct {
	Analyzer Analyzer

	// Workers caps concurrent analyzer calls; zero means serial.
	Workers int
}

// Run analyzes each document and returns one row per input, in input order.
func (r *Runner) Run(ctx context.Context, docs []document.PersistedDocument) []Row {
	rows := make([]Row, len(docs))
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	var (
		group errgroup.Group
		mu    sync.Mutex
	)
	group.SetLimit(workers)
	for i, doc := range docs {
		group.Go(func() error {
			fields, err := r.Analyzer.Analyze(ctx, doc.Path)
			if err != nil {
				log.Error().Str("module", "extract").Str("path", doc.Path).Err(err).
					Msg("Field extraction failed")
			}
			mu.Lock()
			rows[i] = Row{Document: doc, Fields: fields}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return rows
}
