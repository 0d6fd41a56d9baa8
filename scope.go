package lifeline

import (
	"net/http"
	"sort"
	"strings"
)

// DefaultAPIPrefix is the path prefix that marks a request as API-like when
// no other prefix is configured.
const DefaultAPIPrefix = "/api/"

// RouteKind is the resolution strategy assigned to a classified request.
type RouteKind string

const (
	RouteStatic RouteKind = "static" // Cache-first, bundled application assets
	RouteAPI    RouteKind = "api"    // Network-first, volatile data
	RouteBypass RouteKind = "bypass" // Forwarded untouched, never cached
)

// Classifier assigns every intercepted request a resolution strategy based on
// its origin, path, and method. Classification depends only on those three
// inputs, so a given request always routes the same way.
type Classifier struct {
	APIPrefix string            // Path prefix marking API-like requests
	Origin    string            // Application origin; empty matches any host
	TagRules  map[string]string // Path prefix to mutation tag, for deferrable mutations
}

// NewClassifier creates a classifier for the given origin. An empty apiPrefix
// falls back to DefaultAPIPrefix.
func NewClassifier(origin string, apiPrefix string) *Classifier {
	if apiPrefix == "" {
		apiPrefix = DefaultAPIPrefix
	}
	return &Classifier{
		APIPrefix: apiPrefix,
		Origin:    origin,
		TagRules:  make(map[string]string),
	}
}

// AddTagRule marks mutations under the path prefix as deferrable, queued
// under the given tag when they fail.
func (c *Classifier) AddTagRule(prefix string, tag string) {
	c.TagRules[prefix] = tag
}

// Tags returns the distinct mutation tags in stable order.
func (c *Classifier) Tags() []string {
	seen := make(map[string]bool)
	tags := []string{}
	for _, tag := range c.TagRules {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Classify assigns the request a resolution strategy. Cross-origin requests
// and non-idempotent requests outside the API prefix bypass the cache layer
// entirely.
func (c *Classifier) Classify(req *http.Request) RouteKind {
	if c.Origin != "" && req.URL.Host != "" && req.URL.Host != c.Origin {
		return RouteBypass
	}
	if strings.HasPrefix(req.URL.Path, c.APIPrefix) {
		return RouteAPI
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		return RouteStatic
	}
	return RouteBypass
}

// MutationTag resolves the deferral tag for a mutating request. Only
// mutating methods under a registered prefix are deferrable; everything else
// reports false. Overlapping prefixes resolve to the longest match.
func (c *Classifier) MutationTag(req *http.Request) (string, bool) {
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return "", false
	}
	matched := ""
	tag := ""
	for prefix, candidate := range c.TagRules {
		if strings.HasPrefix(req.URL.Path, prefix) && len(prefix) > len(matched) {
			matched = prefix
			tag = candidate
		}
	}
	if matched == "" {
		return "", false
	}
	return tag, true
}
