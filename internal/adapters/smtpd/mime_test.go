package smtpd

import (
	"net/mail"
	"strings"
	"testing"
)

func parseMessage(t *testing.T, raw string) *mail.Message {
	t.Helper()
	msg, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	return msg
}

func TestExtractTextSimpleBody(t *testing.T) {
	raw := "From: jobs@acme.com\r\n" +
		"Subject: Application received\r\n" +
		"\r\n" +
		"Thanks for applying.\r\n"

	text, err := extractTextFromMessage(parseMessage(t, raw))
	if err != nil {
		t.Fatalf("extractTextFromMessage() error = %v", err)
	}
	if !strings.Contains(text, "Thanks for applying.") {
		t.Errorf("text = %q", text)
	}
}

func TestExtractTextMultipart(t *testing.T) {
	raw := "From: jobs@acme.com\r\n" +
		"Subject: Application received\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUNDARY\r\n" +
		"\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain part\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html part</p>\r\n" +
		"--BOUNDARY--\r\n"

	text, err := extractTextFromMessage(parseMessage(t, raw))
	if err != nil {
		t.Fatalf("extractTextFromMessage() error = %v", err)
	}
	if !strings.Contains(text, "plain part") {
		t.Errorf("text = %q, want the text/plain part", text)
	}
	if strings.Contains(text, "html part") {
		t.Errorf("text = %q, html part should be skipped", text)
	}
}

func TestExtractTextDeclaredCharset(t *testing.T) {
	// "héllo" in ISO-8859-1.
	raw := "From: jobs@acme.com\r\n" +
		"Content-Type: text/plain; charset=\"iso-8859-1\"\r\n" +
		"\r\n" +
		"h\xe9llo\r\n"

	text, err := extractTextFromMessage(parseMessage(t, raw))
	if err != nil {
		t.Fatalf("extractTextFromMessage() error = %v", err)
	}
	if !strings.Contains(text, "héllo") {
		t.Errorf("text = %q, want decoded héllo", text)
	}
}

func TestCanonicalMessageID(t *testing.T) {
	withID := "Message-Id: <abc123@mail.example>\r\nSubject: x\r\n\r\nbody\r\n"
	msg := parseMessage(t, withID)
	if got := canonicalMessageID(msg, []byte(withID)); got != "abc123@mail.example" {
		t.Errorf("canonicalMessageID() = %q, want abc123@mail.example", got)
	}

	withoutID := "Subject: x\r\n\r\nbody\r\n"
	msg = parseMessage(t, withoutID)
	got := canonicalMessageID(msg, []byte(withoutID))
	if !strings.HasPrefix(got, "sha256-") {
		t.Errorf("canonicalMessageID() = %q, want content hash", got)
	}
	// Same bytes must hash to the same id.
	if again := canonicalMessageID(msg, []byte(withoutID)); again != got {
		t.Errorf("canonicalMessageID() not stable: %q vs %q", got, again)
	}
}
