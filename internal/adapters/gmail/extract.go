package gmail

import (
	"encoding/base64"
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/mikey/jobmail/internal/core"
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// extractEmail pulls subject, sender and body text out of a full-format
// Gmail message. text/plain parts win; tag-stripped text/html is the
// fallback for HTML-only senders (most job boards).
func extractEmail(msg *gmailapi.Message, logger *zap.Logger) *core.Email {
	email := &core.Email{ID: msg.Id}
	if msg.Payload == nil {
		return email
	}

	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "subject":
			email.Subject = header.Value
		case "from":
			email.From = header.Value
		}
	}

	if body := findBody(msg.Payload, "text/plain"); body != "" {
		email.Body = body
	} else if body := findBody(msg.Payload, "text/html"); body != "" {
		email.Body = htmlTagRe.ReplaceAllString(body, "")
	} else {
		logger.Debug("No text part found in message", zap.String("message_id", msg.Id))
	}

	return email
}

// findBody walks the part tree depth-first and returns the first decoded
// part of the wanted MIME type.
func findBody(part *gmailapi.MessagePart, mimeType string) string {
	if strings.HasPrefix(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		return decodePart(part)
	}
	for _, child := range part.Parts {
		if body := findBody(child, mimeType); body != "" {
			return body
		}
	}
	return ""
}

// decodePart base64url-decodes a part body and converts it to UTF-8 using
// the charset declared on the part, when there is one.
func decodePart(part *gmailapi.MessagePart) string {
	data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(part.Body.Data, "="))
	if err != nil {
		return ""
	}
	return toUTF8(data, partCharset(part))
}

// partCharset returns the charset parameter of the part's Content-Type
// header, or "" when undeclared.
func partCharset(part *gmailapi.MessagePart) string {
	for _, header := range part.Headers {
		if strings.EqualFold(header.Name, "Content-Type") {
			if _, params, err := mime.ParseMediaType(header.Value); err == nil {
				return params["charset"]
			}
		}
	}
	return ""
}

// toUTF8 decodes bytes in the named charset to a UTF-8 string. Unknown or
// missing charsets fall through to a lossy UTF-8 interpretation.
func toUTF8(data []byte, charset string) string {
	if charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "us-ascii") {
		if enc, err := htmlindex.Get(charset); err == nil && enc != nil {
			if decoded, err := enc.NewDecoder().Bytes(data); err == nil {
				return string(decoded)
			}
		}
	}
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "")
}
