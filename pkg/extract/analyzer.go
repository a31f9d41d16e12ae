// Package extract hands persisted documents to the downstream
// field-extraction service and collects the structured rows it returns.
// The service itself is a black box behind the Analyzer interface.
package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Fields is the structured expense record extracted from one document.
type Fields struct {
	Merchant string `json:"merchant"`
	Date     string `json:"date"`
	Total    string `json:"total"`
	Currency string `json:"currency"`
	Category string `json:"category"`
}

// Analyzer extracts expense fields from a document on disk.
type Analyzer interface {
	Analyze(ctx context.Context, documentPath string) (*Fields, error)
}

const defaultTimeout = 90 * time.Second

// HTTPAnalyzer calls a remote document-understanding endpoint with the
// document content and decodes the fields it returns.
type HTTPAnalyzer struct {
	Endpoint string
	Token    string
	Client   *http.Client
}

// NewHTTPAnalyzer returns an analyzer for the given endpoint.
func NewHTTPAnalyzer(endpoint, token string) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		Endpoint: endpoint,
		Token:    token,
		Client:   &http.Client{Timeout: defaultTimeout},
	}
}

type analyzeRequest struct {
	FileName string `json:"file_name"`
	Content  string `json:"content"` // base64
}

// Analyze uploads the document and returns the extracted fields.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, documentPath string) (*Fields, error) {
	if a.Endpoint == "" {
		return nil, fmt.Errorf("analyzer endpoint is not set")
	}
	content, err := os.ReadFile(documentPath)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	payload, err := json.Marshal(analyzeRequest{
		FileName: filepath.Base(documentPath),
		Content:  base64.StdEncoding.EncodeToString(content),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling analyzer: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}

	fields := &Fields{}
	if err := json.NewDecoder(resp.Body).Decode(fields); err != nil {
		return nil, fmt.Errorf("decoding analyzer response: %w", err)
	}
	return fields, nil
}
