package common

import (
	"net/url"
	"strings"
)

// ResolveURL normalizes a discovered href or form action against the site
// root. Protocol-relative references become https, absolute URLs pass through
// unchanged, and anything else is resolved relative to the root.
func ResolveURL(siteRoot, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}

	base, err := url.Parse(siteRoot)
	if err != nil {
		return ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(rel).String()
}

// SameHost reports whether two URLs share a hostname. Used to detect
// redirects that left the expected site.
func SameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Hostname() == ub.Hostname()
}
