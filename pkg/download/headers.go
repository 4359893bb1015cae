package download

import (
	"net/http"
	"strings"
)

const (
	feedAccept  = "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,*/*;q=0.5"
	mediaAccept = "audio/*,video/*,application/octet-stream;q=0.9,*/*;q=0.5"
)

// FeedHeader returns request headers for a feed fetch. A non-empty freshness token
// becomes the If-Modified-Since value.
func FeedHeader(lastModified string) http.Header {
	h := http.Header{}
	h.Set("Accept", feedAccept)
	h.Set("Cache-Control", "no-cache")
	if lm := strings.TrimSpace(lastModified); lm != "" {
		h.Set("If-Modified-Since", lm)
	}
	return h
}

// MediaHeader returns request headers for an episode download
func MediaHeader() http.Header {
	h := http.Header{}
	h.Set("Accept", mediaAccept)
	return h
}

// addDefaultHeaders sets headers common to every request, caller's headers win
func addDefaultHeaders(req *http.Request, userAgent string, extra http.Header) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Connection", "keep-alive")
	for k, vv := range extra {
		req.Header.Del(k)
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
}
