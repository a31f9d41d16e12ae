// Package classify decides whether an email message carries a financial
// document. The heuristic is deliberately subject-only: a case-insensitive
// substring match against a fixed keyword set. It can both over-match
// (a newsletter mentioning "total") and under-match (an invoice with an
// opaque subject); body and attachment content never override it.
package classify

import "strings"

// financialKeywords mark a subject as financial-document-bearing.
var financialKeywords = []string{
	"invoice", "receipt", "amount", "order", "subtotal", "total", "billing",
}

// nameKeywords are the tags used to label saved artifacts, checked in order.
var nameKeywords = []string{"invoice", "receipt", "order"}

// IsFinancial reports whether the subject suggests a financial document.
func IsFinancial(subject string) bool {
	lower := strings.ToLower(subject)
	for _, kw := range financialKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Keyword returns the tag used in artifact filenames for the given subject:
// the first of invoice, receipt or order found, else "attachment".
func Keyword(subject string) string {
	lower := strings.ToLower(subject)
	for _, kw := range nameKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return "attachment"
}
