// Package document persists pipeline artifacts to a single flat output
// directory. Artifacts are named {keyword}_{uniqueId}{ext}; the random
// identifier component guarantees no collision across concurrent saves, so
// the directory is append-only and needs no locking. There is no manifest;
// listing the directory is the only enumeration mechanism.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/expensio/expensio/pkg/classify"
	"github.com/expensio/expensio/pkg/mail"
)

// DefaultExt is used when the original attachment name carries no extension.
const DefaultExt = ".pdf"

// PersistedDocument is one artifact written to the output directory, either
// a saved attachment or a rendered HTML body. Downstream extraction
// consumes these by path.
type PersistedDocument struct {
	Path    string `json:"path"`
	Keyword string `json:"keyword"`
	ID      string `json:"id"`
}

// Store writes artifacts into its root directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created lazily
// on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the output directory path.
func (s *Store) Dir() string {
	return s.dir
}

// ensureDir creates the output directory if absent. MkdirAll treats an
// existing directory as success, so concurrent callers cannot race each
// other into an error.
func (s *Store) ensureDir() error {
	return os.MkdirAll(s.dir, 0770)
}

// NewArtifact reserves a unique artifact path for the given subject context
// and extension. Paths are unique per call, never reused.
func (s *Store) NewArtifact(subject, ext string) PersistedDocument {
	keyword := classify.Keyword(subject)
	id := uuid.NewString()
	return PersistedDocument{
		Path:    filepath.Join(s.dir, fmt.Sprintf("%s_%s%s", keyword, id, ext)),
		Keyword: keyword,
		ID:      id,
	}
}

// SaveAttachment writes one attachment part under a collision-resistant
// name. The extension comes from the original filename when present, else
// DefaultExt.
func (s *Store) SaveAttachment(part mail.AttachmentPart, subject string) (PersistedDocument, error) {
	if err := s.ensureDir(); err != nil {
		return PersistedDocument{}, fmt.Errorf("creating output dir: %w", err)
	}

	ext := filepath.Ext(part.FileName)
	if ext == "" {
		ext = DefaultExt
	}
	doc := s.NewArtifact(subject, ext)
	if err := os.WriteFile(doc.Path, part.Content, 0660); err != nil {
		return PersistedDocument{}, fmt.Errorf("writing attachment: %w", err)
	}

	log.Debug().Str("module", "document").Str("path", doc.Path).
		Int("bytes", len(part.Content)).Msg("Saved attachment")
	return doc, nil
}

// WriteHTML writes intermediate HTML content next to its future PDF and
// returns its path. The renderer removes it after conversion.
func (s *Store) WriteHTML(doc PersistedDocument, content string) (string, error) {
	if err := s.ensureDir(); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	htmlPath := strings.TrimSuffix(doc.Path, filepath.Ext(doc.Path)) + ".html"
	if err := os.WriteFile(htmlPath, []byte(content), 0660); err != nil {
		return "", fmt.Errorf("writing html: %w", err)
	}
	return htmlPath, nil
}

// List enumerates the PDF artifacts currently in the output directory.
// A missing directory is an empty store, not an error.
func (s *Store) List() ([]PersistedDocument, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing output dir: %w", err)
	}

	var docs []PersistedDocument
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".pdf") {
			continue
		}
		docs = append(docs, fromFileName(s.dir, name))
	}
	return docs, nil
}

// fromFileName reconstructs a PersistedDocument from an artifact filename
// of the form {keyword}_{id}{ext}.
func fromFileName(dir, name string) PersistedDocument {
	doc := PersistedDocument{Path: filepath.Join(dir, name)}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.Index(base, "_"); i > 0 {
		doc.Keyword = base[:i]
		doc.ID = base[i+1:]
	}
	return doc
}
