package frontend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/core"
	"github.com/mikey/phishsense/internal/utils"
)

// historyInputWidth is the longest input summary printed on a history line
const historyInputWidth = 80

// ScanOptions controls whether a CLI scan is written to history
type ScanOptions struct {
	Log       bool
	SessionID string
}

// CLIReporter runs scans for the command line and prints the results
type CLIReporter struct {
	service *core.AnalysisService
	logger  *zap.Logger
	out     io.Writer
	verbose bool
}

// NewCLIReporter creates a CLI reporter writing to out
func NewCLIReporter(service *core.AnalysisService, logger *zap.Logger, out io.Writer, verbose bool) *CLIReporter {
	return &CLIReporter{
		service: service,
		logger:  logger,
		out:     out,
		verbose: verbose,
	}
}

// ScanURL analyzes a URL and prints the envelope
func (r *CLIReporter) ScanURL(ctx context.Context, rawURL string, opts ScanOptions) (*core.Envelope, error) {
	return r.finish(ctx, r.service.AnalyzeURL(ctx, rawURL), opts)
}

// ScanEmail analyzes an email and prints the envelope
func (r *CLIReporter) ScanEmail(ctx context.Context, subject, body, sender string, opts ScanOptions) (*core.Envelope, error) {
	return r.finish(ctx, r.service.AnalyzeEmail(ctx, subject, body, sender), opts)
}

// ScanQRImage decodes and analyzes a QR image and prints the envelope
func (r *CLIReporter) ScanQRImage(ctx context.Context, image io.Reader, opts ScanOptions) (*core.Envelope, error) {
	return r.finish(ctx, r.service.AnalyzeQRImage(ctx, image), opts)
}

// ScanQRPayload analyzes an already decoded QR payload and prints the envelope
func (r *CLIReporter) ScanQRPayload(ctx context.Context, payload string, opts ScanOptions) (*core.Envelope, error) {
	return r.finish(ctx, r.service.AnalyzeQRPayload(ctx, payload), opts)
}

func (r *CLIReporter) finish(ctx context.Context, env *core.Envelope, opts ScanOptions) (*core.Envelope, error) {
	if opts.Log {
		r.service.LogScanBestEffort(ctx, env, opts.SessionID)
	}
	if r.verbose {
		r.logger.Debug("Scan complete",
			zap.String("type", string(env.Type)),
			zap.Stringer("verdict", env.Verdict),
			zap.String("reason", Reason(env)))
	}
	return env, r.PrintEnvelope(env)
}

// PrintEnvelope writes env as indented JSON
func (r *CLIReporter) PrintEnvelope(env *core.Envelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode scan result: %w", err)
	}
	_, err = fmt.Fprintln(r.out, string(data))
	return err
}

// History prints recent scans, or the scans of one session when sessionID is set
func (r *CLIReporter) History(ctx context.Context, limit int, sessionID string) error {
	var (
		scans []*core.Envelope
		err   error
	)
	if sessionID != "" {
		scans, err = r.service.SessionScans(ctx, sessionID, limit)
	} else {
		scans, err = r.service.RecentScans(ctx, limit)
	}
	if err != nil {
		return fmt.Errorf("failed to read scan history: %w", err)
	}

	if len(scans) == 0 {
		_, err := fmt.Fprintln(r.out, "No scans recorded.")
		return err
	}
	for i, env := range scans {
		if _, err := fmt.Fprintln(r.out, FormatHistoryLine(i+1, env)); err != nil {
			return err
		}
	}
	return nil
}

// FormatHistoryLine renders one history entry as "NNN. [timestamp] [type] [verdict] input"
func FormatHistoryLine(n int, env *core.Envelope) string {
	return fmt.Sprintf("%03d. [%s] [%s] [%s] %s",
		n,
		env.Timestamp.UTC().Format(time.RFC3339),
		env.Type,
		env.Verdict,
		utils.Snippet(env.Input.Summary(), historyInputWidth))
}
