package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/adapters/frontend"
	"github.com/mikey/phishsense/internal/core"
	"github.com/mikey/phishsense/internal/di"
)

const usage = `Usage: phishsense [global flags] <command> [command flags]

Commands:
  scan-url    [-log] [-session id] <url>
  scan-email  [-subject s] [-body b] [-sender addr] [-file message.eml|-] [-log] [-session id]
  scan-qr     (-image file.png | -payload text) [-log] [-session id]
  history     [-limit n] [-session id]

Global flags:
`

// errUsage marks command line mistakes; they exit with status 2
var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	flags, rest, err := di.ParseFlags("phishsense", args, stderr)
	if err != nil {
		printUsage(stderr)
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if len(rest) == 0 {
		printUsage(stderr)
		return 2
	}

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to build dependency container: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = container.Invoke(func(logger *zap.Logger, reporter *frontend.CLIReporter, store core.ScanStore) error {
		defer logger.Sync()
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close scan history", zap.Error(err))
			}
		}()
		return dispatch(ctx, reporter, rest[0], rest[1:], stderr)
	})
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, err)
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, usage)
	fs := di.NewFlagSet("phishsense", &di.CLIFlags{})
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// dispatch runs one subcommand
func dispatch(ctx context.Context, reporter *frontend.CLIReporter, command string, args []string, stderr io.Writer) error {
	switch command {
	case "scan-url":
		return scanURL(ctx, reporter, args, stderr)
	case "scan-email":
		return scanEmail(ctx, reporter, args, stderr)
	case "scan-qr":
		return scanQR(ctx, reporter, args, stderr)
	case "history":
		return history(ctx, reporter, args, stderr)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func newCommandFlags(name string, stderr io.Writer, opts *frontend.ScanOptions) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	if opts != nil {
		fs.BoolVar(&opts.Log, "log", false, "Append the result to scan history")
		fs.StringVar(&opts.SessionID, "session", "", "Session id for the history record (default: process session)")
	}
	return fs
}

func parseCommand(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

func scanURL(ctx context.Context, reporter *frontend.CLIReporter, args []string, stderr io.Writer) error {
	var opts frontend.ScanOptions
	fs := newCommandFlags("scan-url", stderr, &opts)
	if err := parseCommand(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: scan-url takes exactly one URL", errUsage)
	}
	_, err := reporter.ScanURL(ctx, fs.Arg(0), opts)
	return err
}

func scanEmail(ctx context.Context, reporter *frontend.CLIReporter, args []string, stderr io.Writer) error {
	var (
		opts                  frontend.ScanOptions
		subject, body, sender string
		file                  string
	)
	fs := newCommandFlags("scan-email", stderr, &opts)
	fs.StringVar(&subject, "subject", "", "Email subject")
	fs.StringVar(&body, "body", "", "Email body")
	fs.StringVar(&sender, "sender", "", "Sender address")
	fs.StringVar(&file, "file", "", "Read the message from an RFC 5322 file (- for stdin)")
	if err := parseCommand(fs, args); err != nil {
		return err
	}

	if file != "" {
		parsed, err := readEmailFile(file)
		if err != nil {
			return err
		}
		// Explicit flags win over the message headers
		if subject == "" {
			subject = parsed.Subject
		}
		if body == "" {
			body = parsed.Body
		}
		if sender == "" {
			sender = parsed.Sender
		}
	}

	_, err := reporter.ScanEmail(ctx, subject, body, sender, opts)
	return err
}

func readEmailFile(path string) (*frontend.ParsedEmail, error) {
	if path == "-" {
		return frontend.ParseEmail(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open email file: %w", err)
	}
	defer f.Close()
	return frontend.ParseEmail(f)
}

func scanQR(ctx context.Context, reporter *frontend.CLIReporter, args []string, stderr io.Writer) error {
	var (
		opts           frontend.ScanOptions
		image, payload string
	)
	fs := newCommandFlags("scan-qr", stderr, &opts)
	fs.StringVar(&image, "image", "", "QR code image file (PNG, JPEG or GIF)")
	fs.StringVar(&payload, "payload", "", "Already decoded QR payload")
	if err := parseCommand(fs, args); err != nil {
		return err
	}

	switch {
	case image != "" && payload != "":
		return fmt.Errorf("%w: scan-qr takes either -image or -payload, not both", errUsage)
	case image != "":
		f, err := os.Open(image)
		if err != nil {
			return fmt.Errorf("failed to open QR image: %w", err)
		}
		defer f.Close()
		_, err = reporter.ScanQRImage(ctx, f, opts)
		return err
	case payload != "":
		_, err := reporter.ScanQRPayload(ctx, payload, opts)
		return err
	default:
		return fmt.Errorf("%w: scan-qr needs -image or -payload", errUsage)
	}
}

func history(ctx context.Context, reporter *frontend.CLIReporter, args []string, stderr io.Writer) error {
	var (
		limit   int
		session string
	)
	fs := newCommandFlags("history", stderr, nil)
	fs.IntVar(&limit, "limit", 20, "Number of scans to show")
	fs.StringVar(&session, "session", "", "Only show scans of this session")
	if err := parseCommand(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments: %s", errUsage, strings.Join(fs.Args(), " "))
	}
	return reporter.History(ctx, limit, session)
}
