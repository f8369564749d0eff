package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/signalpost/signalpost/internal/asset"
	"github.com/signalpost/signalpost/internal/dedup"
	"github.com/signalpost/signalpost/internal/draft"
	"github.com/signalpost/signalpost/internal/engine"
	"github.com/signalpost/signalpost/internal/extract"
	"github.com/signalpost/signalpost/internal/gate"
	"github.com/signalpost/signalpost/internal/instance"
	"github.com/signalpost/signalpost/internal/llm"
	"github.com/signalpost/signalpost/internal/publish"
	"github.com/signalpost/signalpost/internal/source"
)

type sink struct{ posts []publish.Post }

func (s *sink) Name() string { return "console" }

func (s *sink) Publish(_ context.Context, post publish.Post) error {
	s.posts = append(s.posts, post)
	return nil
}

func newTestServer(t *testing.T) (*Server, *sink) {
	t.Helper()
	collaborator := llm.NewMock("drafted post")
	registry := source.NewRegistry(source.ExtractorFunc(func(_ context.Context, link string) (source.Extraction, error) {
		if strings.Contains(link, "broken") {
			return source.Extraction{}, errors.New("unreachable")
		}
		return source.Extraction{SourceID: link, Text: "content"}, nil
	}))

	store := instance.NewMemoryStore()
	dedupStore := dedup.NewMemoryStore()
	out := &sink{}
	eng, err := engine.New(
		store,
		extract.New(source.NewRouter(), registry),
		gate.New(dedupStore, collaborator, "", nil),
		draft.New(collaborator, 280, "plain", "", nil),
		asset.New(collaborator),
		[]publish.Publisher{out},
		dedupStore,
		engine.WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return NewServer(eng, store, nil), out
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func startSuspended(t *testing.T, server *Server) instance.Instance {
	t.Helper()
	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/v1/instances",
		`{"links":["https://example.com/a"],"overrides":{"skipRelevanceCheck":true,"textOnly":true}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body)
	}
	var in instance.Instance
	if err := json.Unmarshal(rec.Body.Bytes(), &in); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Status != instance.StatusSuspended {
		t.Fatalf("status = %s, want suspended", in.Status)
	}
	return in
}

func TestStartInstanceSuspends(t *testing.T) {
	server, _ := newTestServer(t)
	in := startSuspended(t, server)
	if in.Payload.PostText != "drafted post" {
		t.Fatalf("postText = %q", in.Payload.PostText)
	}
}

func TestStartInstanceRequiresLinks(t *testing.T) {
	server, _ := newTestServer(t)
	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/v1/instances", `{"links":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestResumeApprovePublishes(t *testing.T) {
	server, out := newTestServer(t)
	in := startSuspended(t, server)

	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/v1/instances/"+in.ID+"/resume",
		`{"decision":"approve"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("resume status = %d: %s", rec.Code, rec.Body)
	}
	var final instance.Instance
	if err := json.Unmarshal(rec.Body.Bytes(), &final); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if final.Status != instance.StatusCommitted {
		t.Fatalf("status = %s, want committed", final.Status)
	}
	if len(out.posts) != 1 {
		t.Fatalf("published %d posts, want 1", len(out.posts))
	}
}

func TestResumeTwiceConflicts(t *testing.T) {
	server, _ := newTestServer(t)
	in := startSuspended(t, server)

	first := doJSON(t, server.Handler(), http.MethodPost, "/api/v1/instances/"+in.ID+"/resume",
		`{"decision":"approve"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first resume = %d", first.Code)
	}
	second := doJSON(t, server.Handler(), http.MethodPost, "/api/v1/instances/"+in.ID+"/resume",
		`{"decision":"approve"}`)
	if second.Code != http.StatusConflict {
		t.Fatalf("second resume = %d, want 409", second.Code)
	}
}

func TestResumeUnknownInstance(t *testing.T) {
	server, _ := newTestServer(t)
	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/v1/instances/missing/resume",
		`{"decision":"approve"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestResumeInvalidDecision(t *testing.T) {
	server, _ := newTestServer(t)
	in := startSuspended(t, server)
	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/v1/instances/"+in.ID+"/resume",
		`{"decision":"maybe"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListInstancesFiltersByStatus(t *testing.T) {
	server, _ := newTestServer(t)
	startSuspended(t, server)

	rec := doJSON(t, server.Handler(), http.MethodGet, "/api/v1/instances?status=suspended", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var suspended []instance.Instance
	if err := json.Unmarshal(rec.Body.Bytes(), &suspended); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(suspended) != 1 {
		t.Fatalf("suspended = %d, want 1", len(suspended))
	}

	rec = doJSON(t, server.Handler(), http.MethodGet, "/api/v1/instances?status=committed", "")
	var committed []instance.Instance
	if err := json.Unmarshal(rec.Body.Bytes(), &committed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(committed) != 0 {
		t.Fatalf("committed = %d, want 0", len(committed))
	}
}

func TestGetInstance(t *testing.T) {
	server, _ := newTestServer(t)
	in := startSuspended(t, server)

	rec := doJSON(t, server.Handler(), http.MethodGet, "/api/v1/instances/"+in.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = doJSON(t, server.Handler(), http.MethodGet, "/api/v1/instances/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	rec := doJSON(t, server.Handler(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
