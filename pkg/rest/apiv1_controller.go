package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/expensio/expensio/pkg/document"
	"github.com/expensio/expensio/pkg/mailbox"
	"github.com/expensio/expensio/pkg/rest/model"
	"github.com/expensio/expensio/pkg/server/web"
)

const dateFormat = "2006-01-02"

// InboxAggregateV1 runs the inbox aggregation pipeline for the credentials
// and criteria in the request body. Stage-level failures (connect, search)
// produce an HTTP error; per-message failures are reported in the response
// summary with status 200.
func InboxAggregateV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	request := &model.JSONAggregateRequestV1{}
	if err := json.NewDecoder(req.Body).Decode(request); err != nil {
		return web.HTTPError(w, http.StatusBadRequest, "invalid JSON body")
	}
	if request.Email == "" {
		return web.HTTPError(w, http.StatusBadRequest, "email missing")
	}
	if request.AppPassword == "" {
		return web.HTTPError(w, http.StatusBadRequest, "app password missing")
	}

	criteria := mailbox.Criteria{
		Subject: request.Subject,
		Body:    request.Body,
		Sender:  request.Sender,
	}
	var err error
	if criteria.Start, err = parseDate(request.StartDate); err != nil {
		return web.HTTPError(w, http.StatusBadRequest, "invalid startDate: want YYYY-MM-DD")
	}
	if criteria.End, err = parseDate(request.EndDate); err != nil {
		return web.HTTPError(w, http.StatusBadRequest, "invalid endDate: want YYYY-MM-DD")
	}

	imapConf := ctx.RootConfig.IMAP
	creds := mailbox.Credentials{
		Username:           request.Email,
		Password:           request.AppPassword,
		Host:               imapConf.Host,
		Port:               imapConf.Port,
		UseTLS:             imapConf.TLS,
		InsecureSkipVerify: imapConf.TLSSkipVerify,
	}

	result, err := ctx.Aggregator.Aggregate(req.Context(), creds, criteria)
	if err != nil {
		var authErr *mailbox.AuthError
		if errors.As(err, &authErr) {
			return web.HTTPError(w, http.StatusUnauthorized, authErr.Error())
		}
		return web.HTTPError(w, http.StatusBadGateway, err.Error())
	}

	response := &model.JSONAggregateResponseV1{
		Matched:   result.Matched,
		Processed: result.Processed,
		Skipped:   result.Skipped,
		Failed:    result.Failed,
		Documents: jsonDocuments(result.Documents),
		Errors:    result.Errors,
	}
	if ctx.Extractor != nil {
		for _, row := range ctx.Extractor.Run(req.Context(), result.Documents) {
			jrow := model.JSONExpenseRowV1{Document: jsonDocument(row.Document)}
			if row.Fields != nil {
				jrow.Merchant = row.Fields.Merchant
				jrow.Date = row.Fields.Date
				jrow.Total = row.Fields.Total
				jrow.Currency = row.Fields.Currency
				jrow.Category = row.Fields.Category
			}
			response.Expenses = append(response.Expenses, jrow)
		}
	}
	return web.RenderJSON(w, response)
}

// DocumentListV1 enumerates the artifacts currently in the output
// directory. The directory listing is the only enumeration mechanism;
// there is no manifest.
func DocumentListV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	docs, err := ctx.Store.List()
	if err != nil {
		return err
	}
	return web.RenderJSON(w, jsonDocuments(docs))
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateFormat, s)
}

func jsonDocument(doc document.PersistedDocument) model.JSONDocumentV1 {
	return model.JSONDocumentV1{Path: doc.Path, Keyword: doc.Keyword, ID: doc.ID}
}

func jsonDocuments(docs []document.PersistedDocument) []model.JSONDocumentV1 {
	jdocs := make([]model.JSONDocumentV1, len(docs))
	for i, doc := range docs {
		jdocs[i] = jsonDocument(doc)
	}
	return jdocs
}
