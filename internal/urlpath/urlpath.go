// Package urlpath maps files found under a site root to canonical site URLs.
package urlpath

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// ErrInvalidDomain is returned by NormalizeDomain for unusable domains.
var ErrInvalidDomain = errors.New("invalid site domain")

const (
	indexFile = "index.html"
	htmlExt   = ".html"
)

// ToURLPath converts a path relative to the site root into a canonical URL path.
//
//	index.html            -> /
//	about/index.html      -> /about/
//	blog/post1/index.html -> /blog/post1/
//	foo.html              -> /foo.html
//	fonts                 -> /fonts/
//
// Backslashes are treated as separators so Windows walks produce the same URLs.
func ToURLPath(rel string) string {
	p := strings.ReplaceAll(rel, `\`, "/")
	if os.PathSeparator != '/' && os.PathSeparator != '\\' {
		p = strings.ReplaceAll(p, string(os.PathSeparator), "/")
	}

	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	p = trimLeading(p)

	switch {
	case isIndex(p):
		p = p[:len(p)-len(indexFile)]
		if p != "" && !strings.HasSuffix(p, "/") {
			p += "/"
		}
	case hasSuffixFold(p, htmlExt):
	default:
		if p != "" && !strings.HasSuffix(p, "/") {
			p += "/"
		}
	}

	return "/" + p
}

// IsHTML reports whether name has a .html extension, ignoring case.
func IsHTML(name string) bool {
	return hasSuffixFold(name, htmlExt)
}

// NormalizeDomain validates a site domain and strips trailing slashes.
func NormalizeDomain(raw string) (string, error) {
	d := strings.TrimSpace(raw)
	if d == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDomain)
	}
	u, err := url.Parse(d)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDomain, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q needs an http or https scheme", ErrInvalidDomain, raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidDomain, raw)
	}
	if u.RawQuery != "" || u.Fragment != "" || strings.ContainsAny(d, "?#") {
		return "", fmt.Errorf("%w: %q must not carry a query or fragment", ErrInvalidDomain, raw)
	}
	return strings.TrimRight(d, "/"), nil
}

// Location joins a normalized domain and a canonical URL path, percent-encoding
// each path segment ("my page.html" -> "my%20page.html").
func Location(domain, urlPath string) string {
	segs := strings.Split(strings.TrimLeft(urlPath, "/"), "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(domain, "/") + "/" + strings.Join(segs, "/")
}

func isIndex(p string) bool {
	if !hasSuffixFold(p, indexFile) {
		return false
	}
	rest := p[:len(p)-len(indexFile)]
	return rest == "" || strings.HasSuffix(rest, "/")
}

func trimLeading(p string) string {
	for {
		switch {
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		default:
			return p
		}
	}
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}
