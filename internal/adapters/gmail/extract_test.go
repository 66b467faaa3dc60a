package gmail

import (
	"encoding/base64"
	"strings"
	"testing"

	"go.uber.org/zap"
	gmailapi "google.golang.org/api/gmail/v1"
)

func encodeBody(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestExtractEmailHeaders(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "m1",
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Subject", Value: "Your application"},
				{Name: "From", Value: "jobs@acme.com"},
			},
			Body: &gmailapi.MessagePartBody{Data: encodeBody("Thanks for applying.")},
		},
	}

	email := extractEmail(msg, zap.NewNop())
	if email.ID != "m1" {
		t.Errorf("ID = %q, want m1", email.ID)
	}
	if email.Subject != "Your application" {
		t.Errorf("Subject = %q", email.Subject)
	}
	if email.From != "jobs@acme.com" {
		t.Errorf("From = %q", email.From)
	}
	if email.Body != "Thanks for applying." {
		t.Errorf("Body = %q", email.Body)
	}
}

func TestExtractEmailPrefersPlainText(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "m1",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/html",
					Body:     &gmailapi.MessagePartBody{Data: encodeBody("<p>html version</p>")},
				},
				{
					MimeType: "text/plain",
					Body:     &gmailapi.MessagePartBody{Data: encodeBody("plain version")},
				},
			},
		},
	}

	email := extractEmail(msg, zap.NewNop())
	if email.Body != "plain version" {
		t.Errorf("Body = %q, want the text/plain part", email.Body)
	}
}

func TestExtractEmailFallsBackToStrippedHTML(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "m1",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/html",
					Body:     &gmailapi.MessagePartBody{Data: encodeBody("<p>New <b>jobs</b> for you</p>")},
				},
			},
		},
	}

	email := extractEmail(msg, zap.NewNop())
	if strings.ContainsAny(email.Body, "<>") {
		t.Errorf("Body = %q, want tags stripped", email.Body)
	}
	if !strings.Contains(email.Body, "New") || !strings.Contains(email.Body, "jobs") {
		t.Errorf("Body = %q, want text content kept", email.Body)
	}
}

func TestExtractEmailNestedParts(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "m1",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmailapi.MessagePart{
						{
							MimeType: "text/plain",
							Body:     &gmailapi.MessagePartBody{Data: encodeBody("nested text")},
						},
					},
				},
				{
					MimeType: "application/pdf",
					Body:     &gmailapi.MessagePartBody{Data: encodeBody("%PDF")},
				},
			},
		},
	}

	email := extractEmail(msg, zap.NewNop())
	if email.Body != "nested text" {
		t.Errorf("Body = %q, want the nested text/plain part", email.Body)
	}
}

func TestExtractEmailDeclaredCharset(t *testing.T) {
	// "héllo" in ISO-8859-1.
	latin1 := []byte{'h', 0xe9, 'l', 'l', 'o'}
	msg := &gmailapi.Message{
		Id: "m1",
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Content-Type", Value: `text/plain; charset="iso-8859-1"`},
			},
			Body: &gmailapi.MessagePartBody{Data: base64.URLEncoding.EncodeToString(latin1)},
		},
	}

	email := extractEmail(msg, zap.NewNop())
	if email.Body != "héllo" {
		t.Errorf("Body = %q, want héllo", email.Body)
	}
}

func TestExtractEmailNoPayload(t *testing.T) {
	email := extractEmail(&gmailapi.Message{Id: "m1"}, zap.NewNop())
	if email.ID != "m1" || email.Body != "" || email.Subject != "" {
		t.Errorf("extractEmail() = %+v, want just the id", email)
	}
}
