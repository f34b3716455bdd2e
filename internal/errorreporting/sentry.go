package errorreporting

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/onnwee/redpull/internal/config"
)

var enabled atomic.Bool

// piiPatterns are replaced with [REDACTED] before events leave the process.
// Browsed account names count as PII.
var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret)["\s:=]+[a-zA-Z0-9_-]{16,}`),
	regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	regexp.MustCompile(`(?i)/(?:u|user)/[A-Za-z0-9_-]{2,40}`),
}

// Init configures the Sentry client. Without a DSN it is a no-op.
func Init(cfg *config.Config) error {
	if cfg.SentryDSN == "" {
		enabled.Store(false)
		return nil
	}
	if err := ValidateDSN(cfg.SentryDSN); err != nil {
		return err
	}
	release := cfg.SentryRelease
	if release == "" {
		release = "dev"
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		Release:          release,
		SampleRate:       cfg.SentrySampleRate,
		BeforeSend:       beforeSend,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	enabled.Store(true)
	return nil
}

func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	for i := range event.Exception {
		event.Exception[i].Value = ScrubPII(event.Exception[i].Value)
	}
	event.Message = ScrubPII(event.Message)
	for key, value := range event.Extra {
		if str, ok := value.(string); ok {
			event.Extra[key] = ScrubPII(str)
		}
	}
	if event.Request != nil {
		for _, h := range []string{"Authorization", "Cookie", "X-Api-Key"} {
			delete(event.Request.Headers, h)
		}
		event.Request.QueryString = ""
		event.Request.URL = ScrubPII(event.Request.URL)
	}
	return event
}

// ScrubPII removes personally identifiable information from text.
func ScrubPII(text string) string {
	for _, pattern := range piiPatterns {
		text = pattern.ReplaceAllString(text, "[REDACTED]")
	}
	return text
}

// CaptureError reports err to Sentry.
func CaptureError(err error) {
	if err == nil || !enabled.Load() {
		return
	}
	sentry.CaptureException(err)
}

// CaptureErrorWithContext reports err with tags and extra values. Extras are scrubbed.
func CaptureErrorWithContext(err error, tags map[string]string, extras map[string]interface{}) {
	if err == nil || !enabled.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// AddBreadcrumb records a breadcrumb for later events.
func AddBreadcrumb(category, message string, level sentry.Level) {
	if !enabled.Load() {
		return
	}
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   ScrubPII(message),
		Level:     level,
		Timestamp: time.Now(),
	})
}

// Flush waits for buffered events to be sent.
func Flush(timeout time.Duration) bool {
	if !enabled.Load() {
		return true
	}
	return sentry.Flush(timeout)
}

// IsSentryEnabled reports whether Init configured a client.
func IsSentryEnabled() bool { return enabled.Load() }

// ValidateDSN checks that dsn looks like an http(s) Sentry DSN.
func ValidateDSN(dsn string) error {
	if !strings.HasPrefix(dsn, "https://") && !strings.HasPrefix(dsn, "http://") {
		return fmt.Errorf("invalid Sentry DSN format")
	}
	return nil
}
