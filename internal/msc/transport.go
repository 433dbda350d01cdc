package msc

import (
	"bufio"
	"bytes"
	"net/http"
	"net/http/httputil"

	"github.com/gregjones/httpcache"
)

// cachingTransport stores successful GET responses in an httpcache.Cache.
// GeoMet sends no cache validators, so the RFC 7234 heuristics would never
// store anything; instead every 200 is cached unconditionally and freshness
// is the cache's TTL problem.
type cachingTransport struct {
	cache httpcache.Cache
	base  http.RoundTripper
}

func newCachingTransport(cache httpcache.Cache, base http.RoundTripper) *cachingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &cachingTransport{cache: cache, base: base}
}

func (t *cachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || t.cache == nil {
		return t.base.RoundTrip(req)
	}

	key := req.URL.String()
	if dump, ok := t.cache.Get(key); ok {
		resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(dump)), req)
		if err == nil {
			resp.Header.Set(httpcache.XFromCache, "1")
			return resp, nil
		}
		// Unreadable entry; drop it and fall through to the network.
		t.cache.Delete(key)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	dump, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return resp, nil
	}
	t.cache.Set(key, dump)

	// DumpResponse consumed the body; hand the caller the stored copy.
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(dump)), req)
}
