package lifeline

import (
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/bloodbridge/lifeline/core"
	"github.com/bloodbridge/lifeline/domain"
)

// strategyTransport is the single dispatch point for every request the
// application sends through the gateway. Each request is classified exactly
// once and routed to its resolution strategy; classified requests never
// surface a transport error, so the application cannot fall through to an
// uncontrolled network path.
type strategyTransport struct {
	gateway *Gateway
	base    http.RoundTripper
}

// newStrategyTransport creates the gateway's round tripper. Bypass traffic
// rides the default transport unmodified.
func newStrategyTransport(gateway *Gateway) http.RoundTripper {
	return &strategyTransport{
		gateway: gateway,
		base:    http.DefaultTransport,
	}
}

// RoundTrip satisfies http.RoundTripper. It stamps the request with an ID,
// classifies it, and hands it to the matching resolver.
func (t *strategyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	gateway := t.gateway

	if id, err := uuid.NewV7(); err == nil {
		req = core.ContextWithRequestID(req, id)
	}

	switch gateway.Classifier.Classify(req) {
	case RouteAPI:
		if tag, ok := gateway.Classifier.MutationTag(req); ok && gateway.Queue.Enabled(tag) {
			return gateway.resolveMutation(req, tag), nil
		}
		return gateway.Dynamic.Resolve(req), nil
	case RouteStatic:
		return gateway.Static.Resolve(req, gateway.Lifecycle.CurrentGeneration()), nil
	}
	return t.base.RoundTrip(req)
}

// requestLogOptions collects the log options derivable from a request's
// context: the ID stamped at dispatch and the generation the resolving
// handler is addressing.
func requestLogOptions(req *http.Request) []func(log *domain.Log) error {
	var options []func(log *domain.Log) error
	if id, ok := core.RequestIDFromContext(req.Context()); ok {
		options = append(options, core.LogWithRequestID(id))
	}
	if generation, ok := core.GenerationFromContext(req.Context()); ok {
		options = append(options, core.LogWithContext(map[string]any{"generation": generation}))
	}
	return options
}

// resolveMutation sends a deferrable mutation live and, when the network is
// unreachable, records it durably for later replay. The caller gets an
// accepted reply carrying the record so the application can reconcile once
// the replay lands.
func (gateway *Gateway) resolveMutation(req *http.Request, tag string) *http.Response {
	var payload []byte
	if req.Body != nil {
		buffered, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			gateway.logf("ERROR", "reading mutation body: "+err.Error(), requestLogOptions(req)...)
			return unavailableResponse(req)
		}
		payload = buffered
	}

	res, err := gateway.Client.Do(outboundRequest(req, payload))
	if err == nil {
		return res
	}

	gateway.logf("INFO", fmt.Sprintf("mutation send failed, deferring under tag %s: %s", tag, err.Error()), requestLogOptions(req)...)

	rec, enqueueErr := gateway.Queue.Enqueue(req, payload, tag)
	if enqueueErr != nil {
		gateway.logf("ERROR", "deferring mutation failed: "+enqueueErr.Error(), requestLogOptions(req)...)
		return unavailableResponse(req)
	}
	return queuedResponse(req, rec)
}
