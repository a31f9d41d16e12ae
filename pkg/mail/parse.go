// Package mail parses raw RFC 5322 messages into the structured form the
// aggregation pipeline consumes: header fields, body representations, and
// attachment parts.
package mail

import (
	"bytes"
	"fmt"
	"mime"

	"github.com/jhillyerd/enmime/v2"
)

// Disposition classifies how a MIME part was attached to its message.
type Disposition string

// Disposition kinds.
const (
	DispositionAttachment Disposition = "attachment"
	DispositionInline     Disposition = "inline"
)

// AttachmentPart is one file-bearing MIME part. Content is a private copy;
// its lifetime ends once written to storage.
type AttachmentPart struct {
	Content     []byte
	FileName    string
	ContentType string
	Disposition Disposition
}

// ParsedMail is the read-only result of parsing one raw message. Either
// body representation may be empty.
type ParsedMail struct {
	Subject     string
	From        string
	TextBody    string
	HTMLBody    string
	Attachments []AttachmentPart
}

// Parse decodes a complete raw message. Parsing one message is synchronous;
// distinct messages may be parsed concurrently since no state is shared.
func Parse(raw []byte) (*ParsedMail, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	parsed := &ParsedMail{
		Subject:  env.GetHeader("Subject"),
		From:     env.GetHeader("From"),
		TextBody: env.Text,
		HTMLBody: env.HTML,
	}
	for _, part := range env.Attachments {
		parsed.Attachments = append(parsed.Attachments, AttachmentPart{
			Content:     part.Content,
			FileName:    partFileName(part),
			ContentType: part.ContentType,
			Disposition: DispositionAttachment,
		})
	}
	for _, part := range env.Inlines {
		if part.FileName == "" {
			// Inline body content, not a file.
			continue
		}
		parsed.Attachments = append(parsed.Attachments, AttachmentPart{
			Content:     part.Content,
			FileName:    part.FileName,
			ContentType: part.ContentType,
			Disposition: DispositionInline,
		})
	}
	return parsed, nil
}

// partFileName returns the part's explicit filename when present, else a
// name derived from its content type, else a generic PDF fallback.
func partFileName(part *enmime.Part) string {
	if part.FileName != "" {
		return part.FileName
	}
	if exts, err := mime.ExtensionsByType(part.ContentType); err == nil && len(exts) > 0 {
		return "attachment" + exts[0]
	}
	return "attachment.pdf"
}
