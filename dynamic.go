package lifeline

import (
	"errors"
	"net/http"
	"time"

	"github.com/bloodbridge/lifeline/core"
	"github.com/bloodbridge/lifeline/domain"
)

const (
	// StaleHeader is set on responses served from the runtime generation after
	// a failed live fetch, so callers can tell a degraded reply from a fresh one.
	StaleHeader = "X-Lifeline-Stale"

	// CachedAtHeader carries the storage timestamp (RFC 3339) of a stale reply.
	CachedAtHeader = "X-Lifeline-Cached-At"
)

// DynamicHandler resolves API-like requests with a network-first strategy:
// a live fetch is attempted first and the last stored snapshot is served only
// when the network is unreachable. Snapshots live in a runtime-scoped
// generation whose lifecycle is independent of asset versioning.
type DynamicHandler struct {
	Store      *Store // Cache store used for snapshots and fallbacks
	Generation string // Runtime generation name
	Log        LogFunc
}

// Resolve returns a response for the request. It never returns an error; a
// failed fetch degrades to the last snapshot, labeled with the staleness
// headers, and finally to a structured offline payload.
func (h *DynamicHandler) Resolve(req *http.Request) *http.Response {
	req = core.ContextWithGeneration(req, h.Generation)

	res, err := h.Store.Client.Do(outboundRequest(req, nil))
	if err == nil {
		if res.StatusCode >= 200 && res.StatusCode < 300 && cacheableMethod(req.Method) {
			if putErr := h.Store.Put(h.Generation, req, res); putErr != nil {
				h.Log("ERROR", "storing api snapshot failed: "+putErr.Error(), requestLogOptions(req)...)
			}
		}
		return res
	}

	h.Log("INFO", "api fetch failed, falling back to snapshot: "+err.Error(), requestLogOptions(req)...)

	if cacheableMethod(req.Method) {
		entry, matchErr := h.Store.Match(h.Generation, req)
		if matchErr == nil {
			stale := ResponseFromEntry(req, entry)
			stale.Header.Set(StaleHeader, "true")
			stale.Header.Set(CachedAtHeader, entry.StoredAt.UTC().Format(time.RFC3339))
			return stale
		}
		if !errors.Is(matchErr, domain.ErrCacheMiss) {
			h.Log("WARN", "snapshot lookup failed: "+matchErr.Error(), requestLogOptions(req)...)
		}
	}

	return offlineErrorResponse(req)
}

// cacheableMethod reports whether snapshots are kept for the method. Only
// read operations are ever stored.
func cacheableMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}
