package extract

import "github.com/mvanwyk/curio/internal/ratelimit"

// NewDefaultRouter wires up the standard extractor set. Priority order
// matters: specialized extractors first, the generic web fallback last.
func NewDefaultRouter(twitterBearerToken string, limits *ratelimit.Registry) *Router {
	return NewRouter(
		NewTwitterExtractor(twitterBearerToken, limits.Get(ratelimit.APITwitter)),
		NewArxivExtractor(limits.Get(ratelimit.APIArxiv)),
		NewACMExtractor(limits.Get(ratelimit.APIWeb)),
		NewPDFExtractor(),
		NewWebExtractor(limits.Get(ratelimit.APIWeb)),
	)
}
