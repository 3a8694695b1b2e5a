package yuque

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/starford/yuhex/internal/apperr"
	"github.com/starford/yuhex/internal/toc"
)

type fakeAPI struct {
	userCalls atomic.Int32
	repoCalls atomic.Int32
}

func (f *fakeAPI) router(t *testing.T) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("X-Auth-Token") != "secret" {
				http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/user", func(w http.ResponseWriter, _ *http.Request) {
		f.userCalls.Add(1)
		writeJSON(w, `{"data":{"id":42,"login":"alice"}}`)
	})
	r.Get("/users/{id}/repos", func(w http.ResponseWriter, req *http.Request) {
		f.repoCalls.Add(1)
		if chi.URLParam(req, "id") != "42" {
			http.NotFound(w, req)
			return
		}
		writeJSON(w, `{"data":[
			{"id":1,"name":"other","namespace":"alice/other","user":{"login":"alice"}},
			{"id":7,"name":"blog","namespace":"alice/blog","user":{"login":"alice"}}
		]}`)
	})
	r.Get("/repos/{id}/toc", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, `{"data":[
			{"uuid":"g1","type":"TITLE","title":"Guides","parent_uuid":"","doc_id":0},
			{"uuid":"d1","type":"DOC","title":"Intro","parent_uuid":"g1","doc_id":1001},
			{"uuid":"d2","type":"DOC","title":"Usage","parent_uuid":"g1","doc_id":"1002"}
		]}`)
	})
	r.Get("/repos/{id}/docs/{doc}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "doc") != "1001" {
			http.NotFound(w, req)
			return
		}
		writeJSON(w, `{"data":{"id":1001,"title":"Intro","slug":"intro",
			"created_at":"2024-01-02T03:04:05.000Z","updated_at":"2024-01-03T03:04:05.000Z",
			"published_at":"2024-01-02T03:04:05.000Z","body":"hello",
			"tags":[{"title":"go"},"yaml"]}}`)
	})
	return r
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func newTestClient(t *testing.T, token string) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.router(t))
	t.Cleanup(srv.Close)
	c := NewClient(Options{BaseURL: srv.URL + "/", Token: token, Login: "alice", Repo: "blog"},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return c, api
}

func TestRepoID_ResolvedOnce(t *testing.T) {
	c, api := newTestClient(t, "secret")
	ctx := context.Background()
	for range 3 {
		id, err := c.RepoID(ctx)
		if err != nil {
			t.Fatalf("RepoID: %v", err)
		}
		if id != "7" {
			t.Errorf("repo id = %q, want 7", id)
		}
	}
	if api.userCalls.Load() != 1 || api.repoCalls.Load() != 1 {
		t.Errorf("calls user=%d repos=%d, want 1/1", api.userCalls.Load(), api.repoCalls.Load())
	}
}

func TestFetchHierarchy(t *testing.T) {
	c, _ := newTestClient(t, "secret")
	items, err := c.FetchHierarchy(context.Background())
	if err != nil {
		t.Fatalf("FetchHierarchy: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	if items[0].Type != toc.KindGroup || items[0].DocID != "" {
		t.Errorf("group item = %+v", items[0])
	}
	if items[1].DocID != "1001" || items[2].DocID != "1002" {
		t.Errorf("doc ids = %q, %q", items[1].DocID, items[2].DocID)
	}
}

func TestFetchDocument(t *testing.T) {
	c, _ := newTestClient(t, "secret")
	doc, err := c.FetchDocument(context.Background(), "1001")
	if err != nil {
		t.Fatalf("FetchDocument: %v", err)
	}
	if doc.ID != "1001" || doc.Slug != "intro" || doc.Body != "hello" {
		t.Errorf("doc = %+v", doc)
	}
	if !reflect.DeepEqual(doc.SourceTags, []string{"go", "yaml"}) {
		t.Errorf("source tags = %v", doc.SourceTags)
	}
}

func TestFetchDocument_NotFound(t *testing.T) {
	c, _ := newTestClient(t, "secret")
	_, err := c.FetchDocument(context.Background(), "9999")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBadToken(t *testing.T) {
	c, _ := newTestClient(t, "wrong")
	if _, err := c.FetchHierarchy(context.Background()); err == nil {
		t.Error("expected error for bad token")
	}
}

func TestUnknownRepo(t *testing.T) {
	c, _ := newTestClient(t, "secret")
	c.opts.Repo = "missing"
	_, err := c.RepoID(context.Background())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestID_Unmarshal(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
		D ID `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"a":12,"b":"x9","c":null,"d":0}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.A != "12" || v.B != "x9" || v.C != "" || v.D != "" {
		t.Errorf("ids = %+v", v)
	}
}
