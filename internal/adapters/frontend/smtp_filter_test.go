package frontend

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/config"
	"github.com/mikey/phishsense/internal/core"
	"github.com/mikey/phishsense/internal/utils"
	"github.com/mikey/phishsense/internal/whitelist"
)

const phishingMessage = "From: Alice <alice@evil.test>\r\n" +
	"To: bob@corp.test\r\n" +
	"Subject: Account notice\r\n" +
	"\r\n" +
	"Please verify your account at http://evil.test/login now\r\n"

const harmlessMessage = "From: carol@friends.test\r\n" +
	"To: bob@corp.test\r\n" +
	"Subject: Lunch\r\n" +
	"\r\n" +
	"See you at noon\r\n"

func newTestFilter(t *testing.T, mutate func(*config.SMTPConfig)) (*SMTPFilter, *core.AnalysisService) {
	t.Helper()
	svc, _ := newTestService(t)
	cfg := config.NewFromViper(config.NewEmptyViper()).GetServer().SMTP
	cfg.TrustedDomains = []string{"corp.test"}
	if mutate != nil {
		mutate(&cfg)
	}
	logger := zap.NewNop()
	f := NewSMTPFilter(svc, whitelist.NewChecker(cfg.TrustedDomains, logger), utils.NewTextProcessor(logger), logger, cfg, 65536)
	return f, svc
}

func TestSMTPFilter_AnnotatesSuspiciousMail(t *testing.T) {
	f, svc := newTestFilter(t, nil)

	res, err := f.process(context.Background(), "alice@evil.test", []byte(phishingMessage))
	require.NoError(t, err)
	require.Nil(t, res.reject)
	require.NotNil(t, res.envelope)

	assert.Equal(t, core.VerdictSuspicious, res.envelope.Verdict)
	out := string(res.message)
	assert.True(t, strings.HasPrefix(out, "X-Phish-Verdict: suspicious\r\n"))
	assert.Contains(t, out, "X-Phish-Score: 0.7311\r\n")
	assert.Contains(t, out, "X-Phish-Reason: ")
	assert.Contains(t, out, "verify your account")
	assert.Contains(t, out, "Subject: Account notice\r\n")
	assert.True(t, strings.HasSuffix(out, "Please verify your account at http://evil.test/login now\r\n"))

	logged, err := svc.SessionScans(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, core.ScanTypeEmail, logged[0].Type)
	assert.Equal(t, testSessionID, logged[0].SessionID)
}

func TestSMTPFilter_HarmlessMail(t *testing.T) {
	f, _ := newTestFilter(t, nil)

	res, err := f.process(context.Background(), "carol@friends.test", []byte(harmlessMessage))
	require.NoError(t, err)
	assert.Equal(t, core.VerdictSafe, res.envelope.Verdict)

	out := string(res.message)
	assert.Contains(t, out, "X-Phish-Verdict: safe\r\n")
	assert.Contains(t, out, "X-Phish-Score: 0.0000\r\n")
	assert.Contains(t, out, "X-Phish-Reason: no indicators\r\n")
}

func TestSMTPFilter_ModifiesSubject(t *testing.T) {
	f, _ := newTestFilter(t, func(cfg *config.SMTPConfig) {
		cfg.ModifySubject = true
	})

	res, err := f.process(context.Background(), "alice@evil.test", []byte(phishingMessage))
	require.NoError(t, err)

	out := string(res.message)
	assert.Contains(t, out, "Subject: [PHISHING?] Account notice\r\n")
	assert.Equal(t, 1, strings.Count(out, "Subject:"))
}

func TestSMTPFilter_RejectsWhenBlocking(t *testing.T) {
	f, _ := newTestFilter(t, func(cfg *config.SMTPConfig) {
		cfg.BlockSuspicious = true
	})

	res, err := f.process(context.Background(), "alice@evil.test", []byte(phishingMessage))
	require.NoError(t, err)
	require.NotNil(t, res.reject)
	assert.Equal(t, 550, res.reject.Code)
	assert.Nil(t, res.message)
}

func TestSMTPFilter_TrustedSenderSkipsAnalysis(t *testing.T) {
	f, svc := newTestFilter(t, nil)

	res, err := f.process(context.Background(), "ceo@corp.test", []byte(phishingMessage))
	require.NoError(t, err)
	assert.Nil(t, res.envelope)
	assert.True(t, strings.HasPrefix(string(res.message), "X-Phish-Verdict: skipped\r\n"))

	logged, err := svc.RecentScans(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, logged)
}

func TestSMTPFilter_NoLoggingWhenDisabled(t *testing.T) {
	f, svc := newTestFilter(t, func(cfg *config.SMTPConfig) {
		cfg.LogScans = false
	})

	_, err := f.process(context.Background(), "alice@evil.test", []byte(phishingMessage))
	require.NoError(t, err)

	logged, err := svc.RecentScans(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, logged)
}

func TestSMTPFilter_UnparseableMessage(t *testing.T) {
	f, _ := newTestFilter(t, nil)
	_, err := f.process(context.Background(), "x@y.test", []byte("not a header line without colon\r\n\r\nbody"))
	assert.Error(t, err)
}

func TestReplaceSubject_FoldedHeader(t *testing.T) {
	header := []byte("From: a@b.test\r\nSubject: Very long\r\n\tcontinued subject\r\nTo: c@d.test\r\n\r\n")
	got := string(replaceSubject(header, "[X] Very long continued subject"))
	assert.Equal(t, "From: a@b.test\r\nSubject: [X] Very long continued subject\r\nTo: c@d.test\r\n\r\n", got)
}

func TestReplaceSubject_AddsMissingSubject(t *testing.T) {
	header := []byte("From: a@b.test\r\n\r\n")
	got := string(replaceSubject(header, "[X] "))
	assert.Equal(t, "From: a@b.test\r\nSubject: [X] \r\n\r\n", got)
}
