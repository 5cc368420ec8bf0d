package frontend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/config"
	"github.com/mikey/phishsense/internal/core"
	"github.com/mikey/phishsense/internal/utils"
	"github.com/mikey/phishsense/internal/whitelist"
)

// SMTPFilter is a content filter: it receives mail over SMTP, annotates it with
// phishing verdict headers and relays it to the downstream MTA
type SMTPFilter struct {
	service       *core.AnalysisService
	trusted       *whitelist.Checker
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	cfg           config.SMTPConfig
	maxBodySize   int
	server        *smtp.Server
}

// NewSMTPFilter creates a new SMTP content filter
func NewSMTPFilter(
	service *core.AnalysisService,
	trusted *whitelist.Checker,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	cfg config.SMTPConfig,
	maxBodySize int,
) *SMTPFilter {
	if cfg.SubjectPrefix == "" && cfg.ModifySubject {
		cfg.SubjectPrefix = "[PHISHING?] "
	}
	return &SMTPFilter{
		service:       service,
		trusted:       trusted,
		textProcessor: textProcessor,
		logger:        logger,
		cfg:           cfg,
		maxBodySize:   maxBodySize,
	}
}

// Name implements ports.Frontend
func (f *SMTPFilter) Name() string {
	return "smtp"
}

// Start implements ports.Frontend
func (f *SMTPFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.cfg.ListenAddress
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	ln, err := net.Listen("tcp", f.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.cfg.ListenAddress, err)
	}

	f.logger.Info("SMTP filter starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := f.server.Serve(ln); err != nil && err != smtp.ErrServerClosed {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop implements ports.Frontend
func (f *SMTPFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// filterResult is the outcome of running one message through the filter
type filterResult struct {
	message  []byte
	envelope *core.Envelope
	reject   *smtp.SMTPError
}

// process analyzes a raw message and returns it with verdict headers added.
// The envelope is nil when the sender domain is trusted.
func (f *SMTPFilter) process(ctx context.Context, sender string, raw []byte) (*filterResult, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}
	headerBlock, body := splitMessage(raw)

	if f.trusted != nil && f.trusted.IsTrusted(sender) {
		var out bytes.Buffer
		fmt.Fprintf(&out, "%s: skipped\r\n", f.cfg.Headers.Verdict)
		fmt.Fprintf(&out, "%s: trusted sender domain\r\n", f.cfg.Headers.Reason)
		out.Write(headerBlock)
		out.Write(body)
		return &filterResult{message: out.Bytes()}, nil
	}

	text, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text content: %w", err)
	}
	text = f.textProcessor.ProcessText(text, f.maxBodySize)

	subject := msg.Header.Get("Subject")
	if decoded, err := decodeEncodedHeader(subject); err == nil {
		subject = decoded
	}
	from := msg.Header.Get("From")
	if from == "" {
		from = sender
	}

	env := f.service.AnalyzeEmail(ctx, subject, text, from)
	if f.cfg.LogScans {
		f.service.LogScanBestEffort(ctx, env, "")
	}

	suspicious := env.Verdict == core.VerdictSuspicious
	if suspicious && f.cfg.BlockSuspicious {
		return &filterResult{
			envelope: env,
			reject: &smtp.SMTPError{
				Code:         550,
				EnhancedCode: smtp.EnhancedCode{5, 7, 1},
				Message:      fmt.Sprintf("Rejected as suspected phishing (score: %.2f)", env.Score),
			},
		}, nil
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "%s: %s\r\n", f.cfg.Headers.Verdict, env.Verdict)
	fmt.Fprintf(&out, "%s: %.4f\r\n", f.cfg.Headers.Score, env.Score)
	fmt.Fprintf(&out, "%s: %s\r\n", f.cfg.Headers.Reason, sanitizeHeaderValue(Reason(env)))

	if suspicious && f.cfg.ModifySubject && f.cfg.SubjectPrefix != "" && !strings.HasPrefix(subject, f.cfg.SubjectPrefix) {
		headerBlock = replaceSubject(headerBlock, f.cfg.SubjectPrefix+subject)
	}
	out.Write(headerBlock)
	out.Write(body)

	return &filterResult{message: out.Bytes(), envelope: env}, nil
}

// splitMessage returns the header block including its terminating blank line, and the body
func splitMessage(raw []byte) (header, body []byte) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[:i+4], raw[i+4:]
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i+2], raw[i+2:]
	}
	return raw, nil
}

// replaceSubject rewrites the Subject header, dropping its folded continuation lines
func replaceSubject(header []byte, subject string) []byte {
	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(header))
	scanner.Buffer(make([]byte, 0, 4096), len(header)+1)

	encoded := mime.QEncoding.Encode("utf-8", subject)
	replaced, skipping := false, false
	for scanner.Scan() {
		line := scanner.Text()
		if skipping && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) {
			continue
		}
		skipping = false
		if !replaced && len(line) >= 8 && strings.EqualFold(line[:8], "subject:") {
			fmt.Fprintf(&out, "Subject: %s\r\n", encoded)
			replaced, skipping = true, true
			continue
		}
		if line == "" || line == "\r" {
			if !replaced {
				fmt.Fprintf(&out, "Subject: %s\r\n", encoded)
				replaced = true
			}
			out.WriteString("\r\n")
			continue
		}
		out.WriteString(strings.TrimSuffix(line, "\r"))
		out.WriteString("\r\n")
	}
	return out.Bytes()
}

func sanitizeHeaderValue(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// relay sends the processed message on to the downstream MTA
func (f *SMTPFilter) relay(sender string, recipients []string, data []byte) error {
	addr := net.JoinHostPort(f.cfg.RelayAddress, strconv.Itoa(f.cfg.RelayPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := false
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", rcpt),
				zap.Error(err))
			continue
		}
		accepted = true
	}
	if !accepted {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// Message already accepted
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *SMTPFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *SMTPFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data analyzes, annotates and relays one message
func (s *smtpSession) Data(r io.Reader) error {
	f := s.filter
	raw, err := io.ReadAll(r)
	if err != nil {
		f.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	result, err := f.process(context.Background(), s.sender, raw)
	if err != nil {
		f.logger.Error("Failed to process message", zap.Error(err), zap.String("sender", s.sender))
		return err
	}

	if result.reject != nil {
		f.logger.Info("Rejecting suspected phishing email",
			zap.String("from", s.sender),
			zap.Float64("score", result.envelope.Score),
			zap.String("reason", Reason(result.envelope)))
		return result.reject
	}

	if f.cfg.RelayEnabled {
		if err := f.relay(s.sender, s.recipients, result.message); err != nil {
			f.logger.Error("Failed to relay email", zap.Error(err), zap.String("sender", s.sender))
			return err
		}
	} else {
		f.logger.Warn("Relay disabled, message dropped after analysis", zap.String("sender", s.sender))
	}

	fields := []zap.Field{zap.String("from", s.sender), zap.Int("recipients", len(s.recipients))}
	if result.envelope != nil {
		fields = append(fields,
			zap.Stringer("verdict", result.envelope.Verdict),
			zap.Float64("score", result.envelope.Score))
	} else {
		fields = append(fields, zap.Bool("trusted", true))
	}
	f.logger.Info("Processed email", fields...)
	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
