package frontend

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
)

// maxMIMEDepth bounds recursion into nested multipart bodies
const maxMIMEDepth = 5

var wordDecoder = &mime.WordDecoder{}

// decodeEncodedHeader decodes RFC 2047 encoded words such as =?UTF-8?B?...?=
func decodeEncodedHeader(value string) (string, error) {
	return wordDecoder.DecodeHeader(value)
}

// extractTextFromMessage returns the text/plain content of a message.
// Multipart bodies are walked recursively; transfer encodings are undone.
func extractTextFromMessage(msg *mail.Message) (string, error) {
	raw, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", err
	}
	return extractText(textproto.MIMEHeader(msg.Header), raw, 0), nil
}

// ParsedEmail holds the fields of a message file that the email scan consumes
type ParsedEmail struct {
	Subject string
	Body    string
	Sender  string
}

// ParseEmail reads an RFC 5322 message and returns its decoded subject,
// From header and plain text body
func ParseEmail(r io.Reader) (*ParsedEmail, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	subject := msg.Header.Get("Subject")
	if decoded, err := decodeEncodedHeader(subject); err == nil {
		subject = decoded
	}
	sender := msg.Header.Get("From")
	if decoded, err := decodeEncodedHeader(sender); err == nil {
		sender = decoded
	}

	body, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to read email body: %w", err)
	}
	return &ParsedEmail{Subject: subject, Body: body, Sender: sender}, nil
}

func extractText(header textproto.MIMEHeader, body []byte, depth int) string {
	contentType := header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || contentType == "" {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" || depth >= maxMIMEDepth {
			return string(body)
		}
		return extractMultipart(body, boundary, depth)
	}

	if mediaType != "text/plain" {
		return ""
	}
	return string(decodeTransfer(header.Get("Content-Transfer-Encoding"), body))
}

func extractMultipart(body []byte, boundary string, depth int) string {
	mr := multipart.NewReader(bytes.NewReader(body), boundary)

	var text bytes.Buffer
	for {
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF or a malformed part: keep what was read so far
			break
		}
		partBody, err := io.ReadAll(part)
		if err != nil {
			continue
		}
		if t := extractText(part.Header, partBody, depth+1); t != "" {
			text.WriteString(t)
			text.WriteString("\n")
		}
	}
	if text.Len() == 0 {
		return ""
	}
	return text.String()
}

func decodeTransfer(encoding string, body []byte) []byte {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		cleaned := bytes.Map(func(r rune) rune {
			if r == '\r' || r == '\n' || r == ' ' || r == '\t' {
				return -1
			}
			return r
		}, body)
		decoded, err := base64.StdEncoding.DecodeString(string(cleaned))
		if err != nil {
			return body
		}
		return decoded
	case "quoted-printable":
		decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(body)))
		if err != nil {
			return body
		}
		return decoded
	default:
		return body
	}
}
