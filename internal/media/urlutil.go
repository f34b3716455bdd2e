package media

import (
	"html"
	"net/url"
	"path"
	"strings"
)

// splitURL separates raw into the part before any query or fragment and the rest.
func splitURL(raw string) (base, rest string) {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i], raw[i:]
	}
	return raw, ""
}

// pathExt returns the lower-cased extension of the URL path, ignoring query and fragment.
func pathExt(raw string) string {
	base, _ := splitURL(raw)
	if i := strings.Index(base, "://"); i >= 0 {
		base = base[i+3:]
		j := strings.IndexByte(base, '/')
		if j < 0 {
			return ""
		}
		base = base[j:]
	}
	return strings.ToLower(path.Ext(base))
}

// replaceExt swaps the path extension of raw for ext, keeping query and fragment.
func replaceExt(raw, ext string) string {
	base, rest := splitURL(raw)
	old := path.Ext(base)
	if old == "" {
		return raw
	}
	return base[:len(base)-len(old)] + ext + rest
}

// parse returns the URL with a lower-cased host, or nil.
func parse(raw string) *url.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}
	u.Host = strings.ToLower(u.Host)
	return u
}

// hostIs reports whether host is domain or a subdomain of it.
func hostIs(host, domain string) bool {
	host = strings.TrimSuffix(host, ".")
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// lastSegment returns the final non-empty path segment.
func lastSegment(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

func unescape(s string) string {
	return html.UnescapeString(strings.TrimSpace(s))
}
