package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/expensio/expensio/pkg/config"
	"github.com/expensio/expensio/pkg/document"
	"github.com/expensio/expensio/pkg/extract"
)

// Context is passed into every request handler function.
type Context struct {
	Vars       map[string]string
	RootConfig *config.Root
	Aggregator Aggregator
	Store      *document.Store

	// Extractor is nil when no extraction endpoint is configured.
	Extractor *extract.Runner
}

// Close the Context (currently does nothing).
func (c *Context) Close() {
	// Do nothing.
}

// NewContext returns a Context for the given HTTP Request.
func NewContext(req *http.Request) (*Context, error) {
	ctx := &Context{
		Vars:       mux.Vars(req),
		RootConfig: rootConfig,
		Aggregator: aggregator,
		Store:      store,
		Extractor:  extractor,
	}
	return ctx, nil
}
