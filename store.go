package lifeline

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gabriel-vasile/mimetype"

	"github.com/bloodbridge/lifeline/domain"
)

// Store combines the persistent cache repository with the network client,
// implementing the cache contract consumed by the resolution handlers and the
// lifecycle manager. The store keys every operation by an explicit generation
// name; there is no implicit "current" pointer at this layer.
type Store struct {
	Repo   domain.CacheRepository // Persistent backing for generations and entries
	Client *http.Client           // HTTP client used for bulk pre-warming
}

// Open creates the named generation if absent. Opening is idempotent.
func (store *Store) Open(name string) (*domain.Generation, error) {
	generation, err := store.Repo.OpenGeneration(name)
	if err != nil {
		return nil, fmt.Errorf("opening generation %s : %w", name, err)
	}
	return generation, nil
}

// Match looks up the stored snapshot for the request in the named generation.
// The lookup is exact on normalized URL and method; domain.ErrCacheMiss
// signals a normal miss.
func (store *Store) Match(generation string, req *http.Request) (*domain.CacheEntry, error) {
	return store.Repo.Match(generation, NormalizeURL(req.URL), req.Method)
}

// MatchURL looks up the stored snapshot for a raw URL string with the given
// method. Used for the offline substitute resource, which is addressed by
// configuration rather than by an incoming request.
func (store *Store) MatchURL(generation, rawURL, method string) (*domain.CacheEntry, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url %s : %w", rawURL, err)
	}
	return store.Repo.Match(generation, NormalizeURL(parsed), method)
}

// Put snapshots the response into the named generation, replacing any entry
// under the same key. The response body is consumed and restored so the
// caller can still serve it. Callers are responsible for only storing
// responses they consider successful; the store does not enforce this.
func (store *Store) Put(generation string, req *http.Request, res *http.Response) error {
	if _, err := store.Open(generation); err != nil {
		return err
	}
	entry, err := NewCacheEntry(generation, req, res)
	if err != nil {
		return fmt.Errorf("snapshotting %s : %w", NormalizeURL(req.URL), err)
	}
	if err := store.Repo.Put(entry); err != nil {
		return fmt.Errorf("storing %s in generation %s : %w", entry.URL, generation, err)
	}
	return nil
}

// AddAll bulk-fetches each URL over the network and stores the results into
// the named generation as a unit. Every fetch must return a success status;
// if any fetch fails the whole operation fails and nothing is written, so a
// partially warmed generation is never committed.
func (store *Store) AddAll(ctx context.Context, generation string, urls []string) error {
	if _, err := store.Open(generation); err != nil {
		return err
	}

	entries := make([]*domain.CacheEntry, 0, len(urls))
	for _, rawURL := range urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("building request for %s : %w", rawURL, err)
		}

		res, err := store.Client.Do(req)
		if err != nil {
			return fmt.Errorf("pre-warming %s : %w", rawURL, err)
		}

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			res.Body.Close()
			return fmt.Errorf("pre-warming %s : unexpected status %s", rawURL, res.Status)
		}

		entry, err := NewCacheEntry(generation, req, res)
		res.Body.Close()
		if err != nil {
			return fmt.Errorf("snapshotting %s : %w", rawURL, err)
		}
		entries = append(entries, entry)
	}

	if err := store.Repo.PutBatch(generation, entries); err != nil {
		return fmt.Errorf("committing %d entries to generation %s : %w", len(entries), generation, err)
	}
	return nil
}

// ListGenerationNames returns the names of all generations in the store.
func (store *Store) ListGenerationNames() ([]string, error) {
	return store.Repo.ListGenerationNames()
}

// DeleteGeneration removes a generation and all its entries irreversibly.
func (store *Store) DeleteGeneration(name string) error {
	return store.Repo.DeleteGeneration(name)
}

// NormalizeURL returns the canonical absolute form of a request URL used as
// the cache key: lowercased scheme and host, no fragment, and "/" for an
// empty path.
func NormalizeURL(u *url.URL) string {
	norm := *u
	norm.Fragment = ""
	norm.Scheme = strings.ToLower(norm.Scheme)
	norm.Host = strings.ToLower(norm.Host)
	if norm.Path == "" {
		norm.Path = "/"
	}
	return norm.String()
}

// NewCacheEntry builds a cache entry from a response. The body is read fully,
// decompressed if the origin encoded it, and restored on the response so the
// caller can still serve it. When the origin omits a content type, one is
// sniffed from the body.
func NewCacheEntry(generation string, req *http.Request, res *http.Response) (*domain.CacheEntry, error) {
	body, err := decodeBody(res)
	if err != nil {
		return nil, err
	}

	headers := res.Header.Clone()
	if headers.Get("Content-Type") == "" && len(body) > 0 {
		headers.Set("Content-Type", mimetype.Detect(body).String())
	}

	return &domain.CacheEntry{
		Generation: generation,
		URL:        NormalizeURL(req.URL),
		Method:     req.Method,
		Status:     res.Status,
		StatusCode: res.StatusCode,
		Headers:    headers,
		Body:       body,
		StoredAt:   time.Now(),
	}, nil
}

// decodeBody reads the entire response body, decompressing gzip and brotli
// encodings, and replaces res.Body with the decoded bytes. The Content-Length
// and Content-Encoding headers are updated to reflect the stored form.
func decodeBody(res *http.Response) ([]byte, error) {
	if res.Body == nil {
		return nil, nil
	}
	defer res.Body.Close()

	var reader io.Reader = res.Body
	encoding := res.Header.Get("Content-Encoding")
	switch encoding {
	case "gzip":
		gzipReader, err := gzip.NewReader(res.Body)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	case "br":
		reader = brotli.NewReader(res.Body)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading response body : %w", err)
	}

	res.Body = io.NopCloser(bytes.NewReader(body))
	res.ContentLength = int64(len(body))
	res.Header.Set("Content-Length", fmt.Sprintf("%d", len(body)))
	if encoding != "" {
		res.Header.Del("Content-Encoding")
	}
	res.TransferEncoding = nil
	return body, nil
}
