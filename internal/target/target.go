// Package target turns free-form user input into the Reddit account or
// community whose posts should be listed.
package target

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Kind is the type of account a Target names.
type Kind string

const (
	KindUser      Kind = "user"
	KindSubreddit Kind = "subreddit"
)

// Mode is the explicit selector supplied alongside the input.
type Mode int

const (
	// ModeAuto keeps whatever kind the input implies.
	ModeAuto Mode = iota
	ModeUser
	ModeSubreddit
)

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "user"
	case ModeSubreddit:
		return "subreddit"
	default:
		return "auto"
	}
}

// MarshalText encodes the mode as its name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText accepts anything ParseMode does.
func (m *Mode) UnmarshalText(b []byte) error {
	*m = ParseMode(string(b))
	return nil
}

// ParseMode maps a selector string to a Mode. Unknown values are ModeAuto.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "u", "user":
		return ModeUser
	case "r", "sub", "subreddit":
		return ModeSubreddit
	default:
		return ModeAuto
	}
}

// Target identifies a user or subreddit.
type Target struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
}

// Path returns the listing path for the target.
func (t Target) Path() string {
	if t.Kind == KindSubreddit {
		return "/r/" + url.PathEscape(t.Name) + "/hot"
	}
	return "/user/" + url.PathEscape(t.Name) + "/submitted"
}

func (t Target) String() string {
	if t.Kind == KindSubreddit {
		return "r/" + t.Name
	}
	return "u/" + t.Name
}

// IsZero reports whether t is the empty Target.
func (t Target) IsZero() bool { return t.Name == "" }

// ErrInvalidInput is matched by every error Resolve returns.
var ErrInvalidInput = errors.New("input does not name a user or subreddit")

// ResolveError carries the input that could not be resolved.
type ResolveError struct {
	Input string
}

func (e *ResolveError) Error() string {
	in := e.Input
	if len(in) > 80 {
		in = in[:80] + "..."
	}
	return fmt.Sprintf("resolve %q: %v", in, ErrInvalidInput)
}

func (e *ResolveError) Unwrap() error { return ErrInvalidInput }

var (
	urlRe        = regexp.MustCompile(`(?i)^(?:https?://)?([a-z0-9-]+(?:\.[a-z0-9-]+)+)(?::\d+)?(/.*)?$`)
	userPathRe   = regexp.MustCompile(`(?i)/(?:user|u)/([A-Za-z0-9_-]{2,40})(?:/|$)`)
	subPathRe    = regexp.MustCompile(`(?i)/r/([A-Za-z0-9_]{2,40})(?:/|$)`)
	userPrefixRe = regexp.MustCompile(`(?i)^/?u/([A-Za-z0-9_-]{2,40})(?:/|$)`)
	subPrefixRe  = regexp.MustCompile(`(?i)^/?r/([A-Za-z0-9_]{2,40})(?:/|$)`)
	handleRe     = regexp.MustCompile(`^[A-Za-z0-9_-]{2,40}$`)
)

type rule struct {
	name  string
	match func(s string) (Target, bool)
}

// rules are tried in order; the first match wins.
var rules = []rule{
	{"url-user", func(s string) (Target, bool) {
		return matchURLPath(s, userPathRe, KindUser)
	}},
	{"url-subreddit", func(s string) (Target, bool) {
		return matchURLPath(s, subPathRe, KindSubreddit)
	}},
	{"prefix", func(s string) (Target, bool) {
		if m := userPrefixRe.FindStringSubmatch(s); m != nil {
			return Target{Kind: KindUser, Name: m[1]}, true
		}
		if m := subPrefixRe.FindStringSubmatch(s); m != nil {
			return Target{Kind: KindSubreddit, Name: m[1]}, true
		}
		return Target{}, false
	}},
	{"handle", func(s string) (Target, bool) {
		if handleRe.MatchString(s) {
			return Target{Kind: KindUser, Name: s}, true
		}
		return Target{}, false
	}},
}

func matchURLPath(s string, re *regexp.Regexp, kind Kind) (Target, bool) {
	hm := urlRe.FindStringSubmatch(s)
	if hm == nil {
		return Target{}, false
	}
	if m := re.FindStringSubmatch(hm[2]); m != nil {
		return Target{Kind: kind, Name: m[1]}, true
	}
	return Target{}, false
}

// normalize strips surrounding whitespace, fragments, query strings, a .json
// suffix and trailing slashes.
func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if strings.HasSuffix(strings.ToLower(s), ".json") {
		s = strings.TrimRight(s[:len(s)-len(".json")], "/")
	}
	return s
}

// Resolve extracts a Target from raw. An explicit mode overrides the kind the
// input implies but keeps the extracted name.
func Resolve(raw string, mode Mode) (Target, error) {
	s := normalize(raw)
	if s == "" {
		return Target{}, &ResolveError{Input: raw}
	}
	for _, r := range rules {
		t, ok := r.match(s)
		if !ok {
			continue
		}
		switch mode {
		case ModeUser:
			t.Kind = KindUser
		case ModeSubreddit:
			t.Kind = KindSubreddit
		}
		return t, nil
	}
	return Target{}, &ResolveError{Input: raw}
}
