package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// SourceKind classifies a URL by the service family hosting it.
type SourceKind string

const (
	KindTwitter SourceKind = SourceTwitter
	KindArxiv   SourceKind = SourceArxiv
	KindACM     SourceKind = SourceACM
	KindWeb     SourceKind = SourceWeb
)

var (
	tweetIDRe    = regexp.MustCompile(`/status/(\d+)`)
	arxivIDRe    = regexp.MustCompile(`(?i)arxiv\.org/(?:abs|pdf)/([a-z\-]+/\d+|\d+\.\d+)`)
	acmDOIRe     = regexp.MustCompile(`doi/([\d.]+/\d+)`)
	trailingIDRe = regexp.MustCompile(`/(\d+)$`)
)

// DetectSource classifies a URL into a source kind and pulls out the
// service-specific identifier (tweet id, arXiv id, DOI). Unrecognized
// domains classify as generic web with an empty id.
func DetectSource(rawURL string) (SourceKind, string) {
	parsed, err := url.Parse(strings.ToLower(rawURL))
	if err != nil {
		return KindWeb, ""
	}
	domain := parsed.Host

	if strings.Contains(domain, "twitter.com") || strings.Contains(domain, "x.com") {
		if m := tweetIDRe.FindStringSubmatch(rawURL); m != nil {
			return KindTwitter, m[1]
		}
		return KindTwitter, ""
	}

	if strings.Contains(domain, "arxiv.org") {
		if m := arxivIDRe.FindStringSubmatch(rawURL); m != nil {
			return KindArxiv, m[1]
		}
		return KindArxiv, ""
	}

	if strings.Contains(domain, "dl.acm.org") || strings.Contains(domain, "acm.org") {
		if m := acmDOIRe.FindStringSubmatch(rawURL); m != nil {
			return KindACM, m[1]
		}
		if m := trailingIDRe.FindStringSubmatch(parsed.Path); m != nil {
			return KindACM, m[1]
		}
		return KindACM, ""
	}

	return KindWeb, ""
}

// IsValidURL reports whether s parses as an absolute URL with a host.
func IsValidURL(s string) bool {
	parsed, err := url.Parse(s)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}

// NormalizeURL puts a URL into a standard shape: https scheme when missing,
// no trailing slash, no fragment.
func NormalizeURL(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.TrimRight(parsed.Path, "/")
	result := parsed.Scheme + "://" + parsed.Host + path
	if parsed.RawQuery != "" {
		result += "?" + parsed.RawQuery
	}
	return result
}

// Domain extracts the host from a URL, falling back to the input.
func Domain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}
