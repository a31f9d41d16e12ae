package mail_test

import (
	"testing"

	"github.com/expensio/expensio/pkg/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainMessage = "From: sender@example.com\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Lunch plans\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Pizza at noon?\r\n"

const invoiceMessage = "From: billing@acme.com\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Invoice #42\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"BOUND\"\r\n" +
	"\r\n" +
	"--BOUND\r\n" +
	"Content-Type: multipart/alternative; boundary=\"ALT\"\r\n" +
	"\r\n" +
	"--ALT\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Your invoice is attached.\r\n" +
	"--ALT\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	"<html><body><p>Your invoice is attached.</p></body></html>\r\n" +
	"--ALT--\r\n" +
	"--BOUND\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"scan.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQKJSBmYWtlIHBkZiBib2R5Cg==\r\n" +
	"--BOUND--\r\n"

func TestParsePlainMessage(t *testing.T) {
	parsed, err := mail.Parse([]byte(plainMessage))
	require.NoError(t, err)

	assert.Equal(t, "Lunch plans", parsed.Subject)
	assert.Equal(t, "sender@example.com", parsed.From)
	assert.Contains(t, parsed.TextBody, "Pizza at noon?")
	assert.Empty(t, parsed.HTMLBody)
	assert.Empty(t, parsed.Attachments)
}

func TestParseInvoiceMessage(t *testing.T) {
	parsed, err := mail.Parse([]byte(invoiceMessage))
	require.NoError(t, err)

	assert.Equal(t, "Invoice #42", parsed.Subject)
	assert.Contains(t, parsed.TextBody, "invoice is attached")
	assert.Contains(t, parsed.HTMLBody, "<p>Your invoice is attached.</p>")

	require.Len(t, parsed.Attachments, 1)
	att := parsed.Attachments[0]
	assert.Equal(t, "scan.pdf", att.FileName)
	assert.Equal(t, mail.DispositionAttachment, att.Disposition)
	assert.Equal(t, "application/pdf", att.ContentType)
	assert.Contains(t, string(att.Content), "%PDF-1.4")
}

func TestParseAttachmentWithoutFilename(t *testing.T) {
	msg := "From: a@b.c\r\n" +
		"Subject: Receipt\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"X\"\r\n" +
		"\r\n" +
		"--X\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"see attached\r\n" +
		"--X\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"Content-Disposition: attachment\r\n" +
		"\r\n" +
		"payload\r\n" +
		"--X--\r\n"

	parsed, err := mail.Parse([]byte(msg))
	require.NoError(t, err)
	require.Len(t, parsed.Attachments, 1)

	// No explicit name and no useful content type: generic PDF fallback.
	name := parsed.Attachments[0].FileName
	assert.True(t, len(name) > 0)
	assert.Contains(t, name, "attachment")
}
