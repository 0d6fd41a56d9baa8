package lifeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bloodbridge/lifeline/domain"
)

// ResponseFromEntry rebuilds an http.Response from a stored snapshot. The
// entry's headers are cloned so callers may annotate the response without
// mutating the stored copy.
func ResponseFromEntry(req *http.Request, entry *domain.CacheEntry) *http.Response {
	status := entry.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", entry.StatusCode, http.StatusText(entry.StatusCode))
	}
	res := &http.Response{
		Status:        status,
		StatusCode:    entry.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Request:       req,
		Header:        entry.Headers.Clone(),
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
	}
	if res.Header == nil {
		res.Header = make(http.Header)
	}
	res.Header.Set("Content-Length", fmt.Sprintf("%d", len(entry.Body)))
	return res
}

// synthesizedResponse builds a response from raw bytes with the given status
// code and content type.
func synthesizedResponse(req *http.Request, statusCode int, contentType string, body []byte) *http.Response {
	res := &http.Response{
		Status:        fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		StatusCode:    statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Request:       req,
		Header:        make(http.Header),
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
	res.Header.Set("Content-Type", contentType)
	res.Header.Set("Content-Length", fmt.Sprintf("%d", len(body)))
	return res
}

// unavailableResponse is the synthesized reply for a static request that can
// be satisfied neither from the cache nor from the network.
func unavailableResponse(req *http.Request) *http.Response {
	return synthesizedResponse(req, http.StatusServiceUnavailable, "text/plain; charset=utf-8",
		[]byte("Offline - Content not available"))
}

// offlineErrorResponse is the synthesized reply for an API request with no
// live connection and no stored snapshot. The payload is structured so the
// application can render a friendly offline state.
func offlineErrorResponse(req *http.Request) *http.Response {
	payload, _ := json.Marshal(map[string]any{
		"error":   "offline",
		"offline": true,
		"url":     NormalizeURL(req.URL),
	})
	return synthesizedResponse(req, http.StatusServiceUnavailable, "application/json", payload)
}

// queuedResponse is the synthesized reply for a mutation deferred while
// offline. The record ID lets the application correlate the eventual replay.
func queuedResponse(req *http.Request, rec *domain.MutationRecord) *http.Response {
	payload, _ := json.Marshal(map[string]any{
		"queued": true,
		"tag":    rec.Tag,
		"id":     rec.ID.String(),
	})
	return synthesizedResponse(req, http.StatusAccepted, "application/json", payload)
}

// outboundRequest clones an intercepted request into a form the client can
// send upstream. Requests read off the wire carry RequestURI, which the
// client transport rejects.
func outboundRequest(req *http.Request, body []byte) *http.Request {
	outbound := req.Clone(req.Context())
	outbound.RequestURI = ""
	if body != nil {
		outbound.Body = io.NopCloser(bytes.NewReader(body))
		outbound.ContentLength = int64(len(body))
		outbound.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	} else if req.Body == nil {
		outbound.Body = http.NoBody
		outbound.ContentLength = 0
	}
	return outbound
}
