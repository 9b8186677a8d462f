package netwatch

import (
	"context"
	"net/http"
	"time"
)

// probeTimeout bounds a single reachability check. A probe that takes longer
// than this is as good as offline.
const probeTimeout = 5 * time.Second

// HTTPProber checks reachability with a HEAD request against a fixed URL,
// typically the health endpoint of the remote store.
type HTTPProber struct {
	url  string
	http *http.Client
}

// NewHTTPProber creates a prober for url.
func NewHTTPProber(url string) *HTTPProber {
	return &HTTPProber{
		url:  url,
		http: &http.Client{Timeout: probeTimeout},
	}
}

// Probe implements Prober. Any response at all counts as online; only a
// transport-level failure means the network is unreachable.
func (p *HTTPProber) Probe(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false, err
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return true, nil
}
