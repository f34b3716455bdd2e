package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// ensure defaults kick in with empty env
	for _, k := range []string{
		"REDDIT_USER_AGENT", "HTTP_MAX_RETRIES", "HTTP_RETRY_BASE_MS", "SCROLL_THRESHOLD_PX",
		"VIEWER_ACTIVE_ZONE", "VIEWER_KEYBOARD", "BLOCK_TERMS", "PROXY_URL", "REDDIT_CLIENT_ID",
		"UPSTREAM_RPS", "SESSION_IDLE_TTL_MS",
	} {
		os.Unsetenv(k)
	}
	ResetForTest()
	t.Cleanup(ResetForTest)

	cfg := Load()
	if cfg.UserAgent == "" {
		t.Fatalf("expected default UA, got empty")
	}
	if cfg.HTTPMaxRetries != 1 {
		t.Fatalf("expected default retries=1, got %d", cfg.HTTPMaxRetries)
	}
	if cfg.ScrollThresholdPx != 400 {
		t.Fatalf("expected default scroll threshold 400, got %d", cfg.ScrollThresholdPx)
	}
	if cfg.ViewerActiveZone != 0 || !cfg.ViewerKeyboard {
		t.Fatalf("unexpected viewer defaults: zone=%v keyboard=%v", cfg.ViewerActiveZone, cfg.ViewerKeyboard)
	}
	if len(cfg.BlockTerms) != 0 {
		t.Fatalf("expected no block terms by default, got %v", cfg.BlockTerms)
	}
	if cfg.UpstreamRPS != 0 {
		t.Fatalf("expected upstream pacing off, got %v", cfg.UpstreamRPS)
	}
	if cfg.SessionIdleTTL != 30*time.Minute {
		t.Fatalf("expected 30m idle ttl, got %v", cfg.SessionIdleTTL)
	}
	if cfg.ListingBase() != "https://api.reddit.com" {
		t.Fatalf("unexpected listing base %q", cfg.ListingBase())
	}
}

func TestLoadOverrides(t *testing.T) {
	os.Setenv("BLOCK_TERMS", "OnlyFans, promo ,")
	os.Setenv("VIEWER_ACTIVE_ZONE", "0.6")
	os.Setenv("REDDIT_CLIENT_ID", "abc123")
	os.Setenv("PROXY_URL", "https://worker.example.com/")
	t.Cleanup(func() {
		os.Unsetenv("BLOCK_TERMS")
		os.Unsetenv("VIEWER_ACTIVE_ZONE")
		os.Unsetenv("REDDIT_CLIENT_ID")
		os.Unsetenv("PROXY_URL")
		ResetForTest()
	})
	ResetForTest()

	cfg := Load()
	if want := []string{"onlyfans", "promo"}; !reflect.DeepEqual(cfg.BlockTerms, want) {
		t.Errorf("BlockTerms = %v, want %v", cfg.BlockTerms, want)
	}
	if cfg.ViewerActiveZone != 0.6 {
		t.Errorf("ViewerActiveZone = %v", cfg.ViewerActiveZone)
	}
	if !cfg.AnonymousOAuth() || cfg.ListingBase() != "https://oauth.reddit.com" {
		t.Errorf("expected oauth listing base, got %q", cfg.ListingBase())
	}
	if cfg.ProxyURL != "https://worker.example.com" {
		t.Errorf("ProxyURL = %q", cfg.ProxyURL)
	}
}

func TestLoadClampsInvalidZone(t *testing.T) {
	os.Setenv("VIEWER_ACTIVE_ZONE", "1.7")
	t.Cleanup(func() {
		os.Unsetenv("VIEWER_ACTIVE_ZONE")
		ResetForTest()
	})
	ResetForTest()
	if z := Load().ViewerActiveZone; z != 0 {
		t.Fatalf("expected out-of-range zone to disable dead zone, got %v", z)
	}
}
