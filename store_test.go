package lifeline

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bloodbridge/lifeline/domain"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"drops fragment", "http://app.local/page#section", "http://app.local/page"},
		{"lowercases scheme and host", "HTTP://App.Local/Page", "http://app.local/Page"},
		{"empty path becomes root", "http://app.local", "http://app.local/"},
		{"query preserved", "http://app.local/api/donors?bloodType=O-", "http://app.local/api/donors?bloodType=O-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := url.Parse(tt.raw)
			if err != nil {
				t.Fatalf("url.Parse(%q) failed: %v", tt.raw, err)
			}
			if got := NormalizeURL(parsed); got != tt.want {
				t.Fatalf("\nwanted:\n%s\ngot:\n%s", tt.want, got)
			}
		})
	}
}

func TestStorePut(t *testing.T) {
	repo, teardown := newTestRepo(t)
	defer teardown()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>donate</html>"))
	}))
	defer server.Close()

	store := &Store{Repo: repo, Client: server.Client()}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/index.html", nil)
	res, err := store.Client.Do(req)
	if err != nil {
		t.Fatalf("fetching test asset: %v", err)
	}
	defer res.Body.Close()

	if err := store.Put("static-v1.0.0", req, res); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	t.Run("body still servable after snapshot", func(t *testing.T) {
		body, _ := io.ReadAll(res.Body)
		if string(body) != "<html>donate</html>" {
			t.Fatalf("\nwanted:\n<html>donate</html>\ngot:\n%s", body)
		}
	})

	t.Run("entry retrievable by normalized key", func(t *testing.T) {
		entry, err := store.Match("static-v1.0.0", req)
		if err != nil {
			t.Fatalf("Match() failed: %v", err)
		}
		if string(entry.Body) != "<html>donate</html>" {
			t.Fatalf("\nwanted:\n<html>donate</html>\ngot:\n%s", entry.Body)
		}
		if entry.Headers.Get("Content-Type") != "text/html" {
			t.Fatalf("\nwanted:\ntext/html\ngot:\n%s", entry.Headers.Get("Content-Type"))
		}
	})

	t.Run("miss in another generation", func(t *testing.T) {
		if _, err := store.Match("static-v2.0.0", req); !errors.Is(err, domain.ErrCacheMiss) {
			t.Fatalf("\nwanted:\nErrCacheMiss\ngot:\n%v", err)
		}
	})
}

func TestNewCacheEntry(t *testing.T) {
	t.Run("decodes gzip body before storage", func(t *testing.T) {
		var compressed bytes.Buffer
		gzipWriter := gzip.NewWriter(&compressed)
		gzipWriter.Write([]byte(`{"donors":[]}`))
		gzipWriter.Close()

		req, _ := http.NewRequest(http.MethodGet, "http://app.local/api/donors", nil)
		res := &http.Response{
			Status:     "200 OK",
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Encoding": []string{"gzip"}},
			Body:       io.NopCloser(&compressed),
		}

		entry, err := NewCacheEntry("runtime", req, res)
		if err != nil {
			t.Fatalf("NewCacheEntry() failed: %v", err)
		}
		if string(entry.Body) != `{"donors":[]}` {
			t.Fatalf("\nwanted:\n{\"donors\":[]}\ngot:\n%s", entry.Body)
		}
		if entry.Headers.Get("Content-Encoding") != "" {
			t.Fatalf("\nwanted:\nno Content-Encoding\ngot:\n%s", entry.Headers.Get("Content-Encoding"))
		}
	})

	t.Run("sniffs missing content type", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "http://app.local/logo", nil)
		res := &http.Response{
			Status:     "200 OK",
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("<html><body>x</body></html>")),
		}

		entry, err := NewCacheEntry("runtime", req, res)
		if err != nil {
			t.Fatalf("NewCacheEntry() failed: %v", err)
		}
		if !strings.HasPrefix(entry.Headers.Get("Content-Type"), "text/html") {
			t.Fatalf("\nwanted:\ntext/html prefix\ngot:\n%s", entry.Headers.Get("Content-Type"))
		}
	})
}

func TestStoreAddAll(t *testing.T) {
	repo, teardown := newTestRepo(t)
	defer teardown()

	mux := http.NewServeMux()
	mux.HandleFunc("/index.html", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("index"))
	})
	mux.HandleFunc("/app.js", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("console.log('bloodbridge')"))
	})
	mux.HandleFunc("/missing.css", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := &Store{Repo: repo, Client: server.Client()}

	t.Run("failed fetch commits nothing", func(t *testing.T) {
		urls := []string{server.URL + "/index.html", server.URL + "/missing.css"}
		if err := store.AddAll(context.Background(), "static-v1.0.0", urls); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}

		count, err := repo.CountEntries("static-v1.0.0")
		if err != nil {
			t.Fatalf("CountEntries() failed: %v", err)
		}
		if count != 0 {
			t.Fatalf("\nwanted:\n0 entries\ngot:\n%d", count)
		}
	})

	t.Run("all fetches succeed and commit together", func(t *testing.T) {
		urls := []string{server.URL + "/index.html", server.URL + "/app.js"}
		if err := store.AddAll(context.Background(), "static-v1.0.0", urls); err != nil {
			t.Fatalf("AddAll() failed: %v", err)
		}

		count, err := repo.CountEntries("static-v1.0.0")
		if err != nil {
			t.Fatalf("CountEntries() failed: %v", err)
		}
		if count != 2 {
			t.Fatalf("\nwanted:\n2 entries\ngot:\n%d", count)
		}

		entry, err := store.MatchURL("static-v1.0.0", server.URL+"/app.js", http.MethodGet)
		if err != nil {
			t.Fatalf("MatchURL() failed: %v", err)
		}
		if string(entry.Body) != "console.log('bloodbridge')" {
			t.Fatalf("\nwanted:\nconsole.log('bloodbridge')\ngot:\n%s", entry.Body)
		}
	})
}
