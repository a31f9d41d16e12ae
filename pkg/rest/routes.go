package rest

import (
	"github.com/gorilla/mux"

	"github.com/expensio/expensio/pkg/server/web"
)

// SetupRoutes populates the routes for the REST interface.
func SetupRoutes(r *mux.Router) {
	r.Path("/v1/aggregate").Handler(
		web.Handler(InboxAggregateV1)).Name("InboxAggregateV1").Methods("POST")
	r.Path("/v1/documents").Handler(
		web.Handler(DocumentListV1)).Name("DocumentListV1").Methods("GET")
}
