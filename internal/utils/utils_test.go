package utils

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestUniqueStrings(t *testing.T) {
	got := UniqueStrings([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UniqueStrings = %v, want %v", got, want)
	}
}

func TestContainsAnyFold(t *testing.T) {
	needles := LowerAll([]string{"OnlyFans", "promo"})
	tests := []struct {
		haystack string
		want     bool
	}{
		{"check my ONLYFANS link", true},
		{"Big PROMO today", true},
		{"a cat picture", false},
		{"", false},
	}
	for _, tt := range tests {
		if _, ok := ContainsAnyFold(tt.haystack, needles); ok != tt.want {
			t.Errorf("ContainsAnyFold(%q) = %v, want %v", tt.haystack, ok, tt.want)
		}
	}
}

func TestStripPrefix(t *testing.T) {
	if got := StripPrefix("t3_abc"); got != "abc" {
		t.Errorf("StripPrefix = %q", got)
	}
	if got := StripPrefix("abc"); got != "abc" {
		t.Errorf("StripPrefix = %q", got)
	}
}

func TestGetEnvAsSlice(t *testing.T) {
	os.Setenv("TEST_SLICE", " a, ,b ,c")
	t.Cleanup(func() { os.Unsetenv("TEST_SLICE") })

	got := GetEnvAsSlice("TEST_SLICE", nil, ",")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("GetEnvAsSlice = %v, want %v", got, want)
	}
	if def := GetEnvAsSlice("TEST_SLICE_UNSET", []string{"x"}, ","); !reflect.DeepEqual(def, []string{"x"}) {
		t.Fatalf("expected default, got %v", def)
	}
}

func TestGetEnvAsBoolAndMillis(t *testing.T) {
	os.Setenv("TEST_BOOL", "on")
	os.Setenv("TEST_MS", "250")
	t.Cleanup(func() {
		os.Unsetenv("TEST_BOOL")
		os.Unsetenv("TEST_MS")
	})
	if !GetEnvAsBool("TEST_BOOL", false) {
		t.Error("expected true for 'on'")
	}
	if GetEnvAsBool("TEST_BOOL_UNSET", false) {
		t.Error("expected default false")
	}
	if got := GetEnvAsMillis("TEST_MS", 10); got != 250*time.Millisecond {
		t.Errorf("GetEnvAsMillis = %v", got)
	}
}
