// Package mailbox manages the IMAP side of inbox aggregation: dialing and
// authenticating a session, compiling search criteria, and streaming raw
// message bodies for matched messages.
package mailbox

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/rs/zerolog/log"
)

// Credentials identify one mailbox for the duration of a single aggregation
// call. The password is expected to be an app password, not the account
// login password. Never persisted.
type Credentials struct {
	Username string
	Password string
	Host     string
	Port     int
	UseTLS   bool

	// InsecureSkipVerify disables certificate validation. Only for dev
	// setups with self-signed certs; a documented trust trade-off.
	InsecureSkipVerify bool
}

func (c Credentials) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// AuthError indicates the server rejected the supplied credentials.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("mailbox auth failed for %s: %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Session owns one live IMAP connection. It must be closed on every exit
// path; Close is safe to defer immediately after Dial succeeds.
type Session struct {
	client *imapclient.Client
	user   string
}

// Dial connects to the IMAP server and authenticates. On success the caller
// owns the returned session and is responsible for Close.
func Dial(creds Credentials) (*Session, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: creds.InsecureSkipVerify}

	var (
		client *imapclient.Client
		err    error
	)
	if creds.UseTLS {
		client, err = imapclient.DialTLS(creds.addr(), &imapclient.Options{TLSConfig: tlsConfig})
	} else {
		client, err = imapclient.DialStartTLS(creds.addr(), &imapclient.Options{TLSConfig: tlsConfig})
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", creds.addr(), err)
	}

	if err := client.Login(creds.Username, creds.Password).Wait(); err != nil {
		if lerr := client.Logout().Wait(); lerr != nil {
			log.Warn().Str("module", "mailbox").Err(lerr).Msg("Logout after failed login")
		}
		return nil, &AuthError{Username: creds.Username, Err: err}
	}

	log.Debug().Str("module", "mailbox").Str("host", creds.Host).
		Str("user", creds.Username).Msg("IMAP session established")
	return &Session{client: client, user: creds.Username}, nil
}

// Open selects the named mailbox. Must succeed before Search or Fetch.
func (s *Session) Open(name string, readOnly bool) error {
	opts := &imap.SelectOptions{ReadOnly: readOnly}
	if _, err := s.client.Select(name, opts).Wait(); err != nil {
		return fmt.Errorf("opening mailbox %q: %w", name, err)
	}
	return nil
}

// Search returns the sequence numbers of messages matching the criteria.
// An empty result is success, not an error.
func (s *Session) Search(criteria Criteria) ([]uint32, error) {
	data, err := s.client.Search(criteria.compile(), nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching mailbox: %w", err)
	}
	return data.AllSeqNums(), nil
}

// Close logs out and releases the network connection.
func (s *Session) Close() error {
	return s.client.Logout().Wait()
}
