package mailbox

import (
	"time"

	"github.com/emersion/go-imap/v2"
)

// Criteria is a multi-field mailbox search. Every field is optional; the
// zero value matches every message in the mailbox. Dates are not validated
// here (an inverted range is passed through verbatim, the server decides
// what it matches).
type Criteria struct {
	Start   time.Time // SINCE: messages on or after this date
	End     time.Time // BEFORE: messages before this date
	Subject string    // substring match on the Subject header
	Body    string    // substring match on the message body
	Sender  string    // substring match on the From header
}

// compile translates the criteria into the protocol-native search
// expression. Present fields become search terms joined with the protocol's
// implicit AND; an empty Criteria compiles to the match-all query.
func (c Criteria) compile() *imap.SearchCriteria {
	sc := &imap.SearchCriteria{}
	if !c.Start.IsZero() {
		sc.Since = c.Start
	}
	if !c.End.IsZero() {
		sc.Before = c.End
	}
	if c.Sender != "" {
		sc.Header = append(sc.Header, imap.SearchCriteriaHeaderField{
			Key: "From", Value: c.Sender,
		})
	}
	if c.Body != "" {
		sc.Body = append(sc.Body, c.Body)
	}
	if c.Subject != "" {
		sc.Header = append(sc.Header, imap.SearchCriteriaHeaderField{
			Key: "Subject", Value: c.Subject,
		})
	}
	return sc
}
