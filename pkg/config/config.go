// Package config loads service configuration from the environment.
package config

import (
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	prefix      = "expensio"
	tableFormat = `Expensio is configured via the environment. The following environment
variables can be used:

KEY	DEFAULT	REQUIRED	DESCRIPTION
{{range .}}{{usage_key .}}	{{usage_default .}}	{{usage_required .}}	{{usage_description .}}
{{end}}`
)

var (
	// Version of this build, set by main.
	Version = ""

	// BuildDate for this build, set by main.
	BuildDate = ""
)

// Root wraps all other configurations.
type Root struct {
	LogLevel string `required:"true" default:"info" desc:"debug, info, warn, or error"`
	Web      Web
	IMAP     IMAP
	Storage  Storage
	Pipeline Pipeline
	Extract  Extract
}

// Web contains the HTTP server configuration.
type Web struct {
	Addr string `required:"true" default:"0.0.0.0:8080" desc:"HTTP server IP4 host:port"`
}

// IMAP contains the mailbox server configuration. Credentials are supplied
// per request, never via the environment.
type IMAP struct {
	Host          string `required:"true" default:"imap.gmail.com" desc:"IMAP server host"`
	Port          int    `required:"true" default:"993" desc:"IMAP server port"`
	Folder        string `required:"true" default:"INBOX" desc:"Mailbox folder to aggregate"`
	TLS           bool   `required:"true" default:"true" desc:"Connect with implicit TLS"`
	TLSSkipVerify bool   `default:"false" desc:"Skip TLS cert validation (self-signed dev servers only)"`
}

// Storage contains the artifact output configuration.
type Storage struct {
	Path string `required:"true" default:"invoices" desc:"Artifact output directory"`
}

// Pipeline contains aggregation tuning.
type Pipeline struct {
	MaxWorkers    int           `required:"true" default:"4" desc:"Concurrent message processing cap"`
	RenderTimeout time.Duration `required:"true" default:"60s" desc:"Per-document HTML render deadline"`
}

// Extract contains the downstream field-extraction service configuration.
// An empty endpoint disables extraction; aggregation responses then carry
// document paths only.
type Extract struct {
	Endpoint string `desc:"Field extraction service URL"`
	Token    string `desc:"Field extraction bearer token"`
	Workers  int    `required:"true" default:"2" desc:"Concurrent extraction calls"`
}

// Process loads and parses configuration from the environment.
func Process() (*Root, error) {
	c := &Root{}
	err := envconfig.Process(prefix, c)
	return c, err
}

// Usage prints out the envconfig usage to Stderr.
func Usage() {
	tabs := tabwriter.NewWriter(os.Stderr, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef(prefix, &Root{}, tabs, tableFormat); err != nil {
		log.Fatalf("Unable to parse env config: %v", err)
	}
	tabs.Flush()
}
