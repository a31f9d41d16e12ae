// Package web provides the plumbing for Expensio's RESTful API.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/expensio/expensio/pkg/config"
	"github.com/expensio/expensio/pkg/document"
	"github.com/expensio/expensio/pkg/extract"
	"github.com/expensio/expensio/pkg/mailbox"
	"github.com/expensio/expensio/pkg/pipeline"
)

// Aggregator runs one inbox aggregation; implemented by pipeline.Aggregator.
type Aggregator interface {
	Aggregate(ctx context.Context, creds mailbox.Credentials, criteria mailbox.Criteria) (*pipeline.Result, error)
}

var (
	// Router is shared with the rest package; it sends incoming requests
	// to the correct handler function.
	Router = mux.NewRouter()

	rootConfig     *config.Root
	aggregator     Aggregator
	store          *document.Store
	extractor      *extract.Runner
	server         *http.Server
	listener       net.Listener
	globalShutdown chan bool
)

// Initialize sets up things for unit tests or the Start() method.
func Initialize(
	conf *config.Root,
	shutdownChan chan bool,
	agg Aggregator,
	st *document.Store,
	ext *extract.Runner) {

	rootConfig = conf
	globalShutdown = shutdownChan
	aggregator = agg
	store = st
	extractor = ext

	Router.NotFoundHandler = noMatchHandler(http.StatusNotFound, "No route matches URI")
}

// Start begins listening for HTTP requests.
func Start(ctx context.Context) {
	server = &http.Server{
		Addr:         rootConfig.Web.Addr,
		Handler:      requestLoggingWrapper(Router),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	// We don't use ListenAndServe because it lacks a way to close the listener.
	log.Info().Str("module", "web").Str("addr", rootConfig.Web.Addr).Msg("HTTP listening")
	var err error
	listener, err = net.Listen("tcp", rootConfig.Web.Addr)
	if err != nil {
		log.Error().Str("module", "web").Err(err).Msg("HTTP failed to start listener")
		emergencyShutdown()
		return
	}

	// Listener go routine.
	go serve(ctx)

	// Wait for shutdown.
	<-ctx.Done()
	log.Debug().Str("module", "web").Msg("HTTP server shutting down on request")

	// Closing the listener will cause the serve() go routine to exit.
	if err := listener.Close(); err != nil {
		log.Error().Str("module", "web").Err(err).Msg("Failed to close HTTP listener")
	}
}

// serve begins serving HTTP requests.
func serve(ctx context.Context) {
	// server.Serve blocks until we close the listener.
	err := server.Serve(listener)

	select {
	case <-ctx.Done():
		// Nop
	default:
		log.Error().Str("module", "web").Err(err).Msg("HTTP server failed")
		emergencyShutdown()
	}
}

func emergencyShutdown() {
	select {
	case <-globalShutdown:
	default:
		close(globalShutdown)
	}
}
