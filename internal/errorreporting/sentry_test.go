package errorreporting

import (
	"errors"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"

	"github.com/onnwee/redpull/internal/config"
)

func TestScrubPII(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		secret string
	}{
		{"email", "contact test@example.com", "test@example.com"},
		{"bearer", "auth: Bearer abc123def456ghi789jklmno", "abc123def456ghi789jklmno"},
		{"ip", "client 192.168.1.10 failed", "192.168.1.10"},
		{"user path", "GET /user/somebody/submitted failed", "somebody"},
		{"short user path", "share link /u/another_one/s/xyz", "another_one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ScrubPII(tt.input)
			if strings.Contains(out, tt.secret) {
				t.Errorf("ScrubPII(%q) = %q still contains %q", tt.input, out, tt.secret)
			}
			if !strings.Contains(out, "[REDACTED]") {
				t.Errorf("expected redaction marker in %q", out)
			}
		})
	}
	if got := ScrubPII("/r/pics/hot"); got != "/r/pics/hot" {
		t.Errorf("subreddit paths should be kept, got %q", got)
	}
}

func TestInit_NotConfigured(t *testing.T) {
	if err := Init(&config.Config{}); err != nil {
		t.Fatalf("Init should not error without a DSN: %v", err)
	}
	if IsSentryEnabled() {
		t.Fatal("expected Sentry disabled")
	}
	// no-ops when disabled
	CaptureError(errors.New("ignored"))
	CaptureErrorWithContext(errors.New("ignored"), map[string]string{"a": "b"}, nil)
	if !Flush(0) {
		t.Fatal("Flush should report success when disabled")
	}
}

func TestInit_InvalidDSN(t *testing.T) {
	if err := Init(&config.Config{SentryDSN: "not-a-dsn"}); err == nil {
		t.Fatal("expected invalid DSN error")
	}
}

func TestInit_Configured(t *testing.T) {
	err := Init(&config.Config{
		SentryDSN:         "https://examplePublicKey@o0.ingest.sentry.io/0",
		SentryEnvironment: "test",
		SentrySampleRate:  1.0,
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { enabled.Store(false) })
	if !IsSentryEnabled() {
		t.Fatal("expected Sentry enabled")
	}
	sentry.Flush(0)
}

func TestBeforeSend(t *testing.T) {
	event := &sentry.Event{
		Message:   "Error with email test@example.com",
		Exception: []sentry.Exception{{Value: "token: bearer abc123def456ghi789jkl"}},
		Extra:     map[string]interface{}{"input": "https://www.reddit.com/user/private_person"},
		Request: &sentry.Request{
			URL: "http://localhost/api/resolve",
			Headers: map[string]string{
				"Authorization": "Bearer secret-token",
				"User-Agent":    "Mozilla/5.0",
			},
			QueryString: "input=private_person",
		},
	}

	result := beforeSend(event, nil)

	if strings.Contains(result.Message, "test@example.com") {
		t.Error("Email should be scrubbed from message")
	}
	if strings.Contains(result.Exception[0].Value, "abc123def456ghi789jkl") {
		t.Error("Token should be scrubbed from exception")
	}
	if s, _ := result.Extra["input"].(string); strings.Contains(s, "private_person") {
		t.Error("Username should be scrubbed from extra data")
	}
	if result.Request.Headers["Authorization"] != "" {
		t.Error("Authorization header should be removed")
	}
	if result.Request.Headers["User-Agent"] != "Mozilla/5.0" {
		t.Error("User-Agent header should be preserved")
	}
	if result.Request.QueryString != "" {
		t.Error("Query string should be removed")
	}
}

func TestValidateDSN(t *testing.T) {
	if err := ValidateDSN("https://key@o0.ingest.sentry.io/0"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateDSN("ftp://nope"); err == nil {
		t.Error("expected error for non-http DSN")
	}
}
