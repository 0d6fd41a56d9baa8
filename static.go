package lifeline

import (
	"errors"
	"net/http"

	"github.com/bloodbridge/lifeline/core"
	"github.com/bloodbridge/lifeline/domain"
)

// StaticHandler resolves requests for bundled application assets with a
// cache-first strategy: the persisted snapshot is preferred and the network
// is only consulted on a miss, with the fetched copy written through into the
// generation for next time.
type StaticHandler struct {
	Store      *Store // Cache store used for lookups and write-through population
	OfflineURL string // URL of the offline substitute resource, optional
	Log        LogFunc
}

// Resolve returns a response for the request, addressing the named static
// generation. It never returns an error; every failure is absorbed into a
// served response, falling back to the offline substitute and finally to a
// synthesized unavailable reply.
func (h *StaticHandler) Resolve(req *http.Request, generation string) *http.Response {
	req = core.ContextWithGeneration(req, generation)

	entry, err := h.Store.Match(generation, req)
	if err == nil {
		return ResponseFromEntry(req, entry)
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		// Store read failures degrade to a miss.
		h.Log("WARN", "cache lookup failed: "+err.Error(), requestLogOptions(req)...)
	}

	res, err := h.Store.Client.Do(outboundRequest(req, nil))
	if err == nil {
		if res.StatusCode >= 200 && res.StatusCode < 300 {
			if putErr := h.Store.Put(generation, req, res); putErr != nil {
				h.Log("ERROR", "write-through population failed: "+putErr.Error(), requestLogOptions(req)...)
			}
		}
		return res
	}

	h.Log("INFO", "asset fetch failed, serving offline substitute: "+err.Error(), requestLogOptions(req)...)

	if h.OfflineURL != "" {
		offline, offlineErr := h.Store.MatchURL(generation, h.OfflineURL, http.MethodGet)
		if offlineErr == nil {
			return ResponseFromEntry(req, offline)
		}
	}

	return unavailableResponse(req)
}
