package model

// JSONAggregateRequestV1 is the request body for an inbox aggregation.
// Email and AppPassword are the mailbox credentials (an app password, not
// the account login password); the remaining fields are optional search
// criteria. Dates are YYYY-MM-DD.
type JSONAggregateRequestV1 struct {
	Email       string `json:"email"`
	AppPassword string `json:"appPassword"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Body        string `json:"body,omitempty"`
	Sender      string `json:"sender,omitempty"`
}

// JSONDocumentV1 describes one artifact produced by aggregation.
type JSONDocumentV1 struct {
	Path    string `json:"path"`
	Keyword string `json:"keyword"`
	ID      string `json:"id"`
}

// JSONExpenseRowV1 pairs a document with the fields extracted from it.
// Fields are empty when extraction failed or is disabled.
type JSONExpenseRowV1 struct {
	Document JSONDocumentV1 `json:"document"`
	Merchant string         `json:"merchant,omitempty"`
	Date     string         `json:"date,omitempty"`
	Total    string         `json:"total,omitempty"`
	Currency string         `json:"currency,omitempty"`
	Category string         `json:"category,omitempty"`
}

// JSONAggregateResponseV1 summarizes one aggregation run. Per-message
// failures appear in Errors but do not change the HTTP status.
type JSONAggregateResponseV1 struct {
	Matched   int                `json:"matched"`
	Processed int                `json:"processed"`
	Skipped   int                `json:"skipped"`
	Failed    int                `json:"failed"`
	Documents []JSONDocumentV1   `json:"documents"`
	Expenses  []JSONExpenseRowV1 `json:"expenses,omitempty"`
	Errors    []string           `json:"errors,omitempty"`
}
