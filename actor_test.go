package fedicore

import (
	"context"
	"crypto"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-fed/activity/streams"
	"github.com/go-fed/activity/streams/vocab"
)

func testPerson(t *testing.T, id string) vocab.Type {
	t.Helper()
	p := streams.NewActivityStreamsPerson()
	idProp := streams.NewActivityStreamsIdProperty()
	iri, err := url.Parse(id)
	if err != nil {
		t.Fatalf("parsing test id %q: %v", id, err)
	}
	idProp.SetIRI(iri)
	p.SetActivityStreamsId(idProp)
	return p
}

func newTestContext() *Context {
	c := NewContext(context.Background(), nil, nil, nil)
	return &c
}

func newTestContextForRequest(r *http.Request) *Context {
	c := NewContext(context.Background(), r.URL, nil, nil)
	return &c
}

func TestServeActorPrecedence(t *testing.T) {
	fallbackHit := func() (http.Handler, *bool) {
		hit := false
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hit = true
			w.WriteHeader(http.StatusTeapot)
		}), &hit
	}

	t.Run("no dispatcher means not found", func(t *testing.T) {
		notFound, hit := fallbackHit()
		fb := Fallbacks{NotFound: notFound}
		r := httptest.NewRequest(http.MethodGet, "https://example.com/users/alice", nil)
		w := httptest.NewRecorder()
		ServeActor(w, r, newTestContext(), "alice", nil, nil, fb)
		if !*hit {
			t.Error("expected NotFound fallback to be invoked")
		}
	})

	t.Run("actor not found means not found", func(t *testing.T) {
		notFound, hit := fallbackHit()
		fb := Fallbacks{NotFound: notFound}
		dispatch := func(c context.Context, handle string) (vocab.Type, error) {
			return nil, nil
		}
		r := httptest.NewRequest(http.MethodGet, "https://example.com/users/alice", nil)
		w := httptest.NewRecorder()
		ServeActor(w, r, newTestContext(), "alice", dispatch, nil, fb)
		if !*hit {
			t.Error("expected NotFound fallback to be invoked")
		}
	})

	t.Run("html request means not acceptable", func(t *testing.T) {
		notAcceptable, hit := fallbackHit()
		fb := Fallbacks{NotAcceptable: notAcceptable}
		dispatch := func(c context.Context, handle string) (vocab.Type, error) {
			return testPerson(t, "https://example.com/users/alice"), nil
		}
		r := httptest.NewRequest(http.MethodGet, "https://example.com/users/alice", nil)
		r.Header.Set("Accept", "text/html")
		w := httptest.NewRecorder()
		ServeActor(w, r, newTestContext(), "alice", dispatch, nil, fb)
		if !*hit {
			t.Error("expected NotAcceptable fallback to be invoked")
		}
	})

	t.Run("failing authorization means unauthorized", func(t *testing.T) {
		unauthorized, hit := fallbackHit()
		fb := Fallbacks{Unauthorized: unauthorized}
		dispatch := func(c context.Context, handle string) (vocab.Type, error) {
			return testPerson(t, "https://example.com/users/alice"), nil
		}
		authorize := func(c context.Context, key crypto.PublicKey, owner vocab.Type, handle string) (bool, error) {
			return false, nil
		}
		r := httptest.NewRequest(http.MethodGet, "https://example.com/users/alice", nil)
		w := httptest.NewRecorder()
		ServeActor(w, r, newTestContext(), "alice", dispatch, authorize, fb)
		if !*hit {
			t.Error("expected Unauthorized fallback to be invoked")
		}
	})

	t.Run("happy path serializes and returns 200", func(t *testing.T) {
		dispatch := func(c context.Context, handle string) (vocab.Type, error) {
			return testPerson(t, "https://example.com/users/alice"), nil
		}
		r := httptest.NewRequest(http.MethodGet, "https://example.com/users/alice", nil)
		w := httptest.NewRecorder()
		ServeActor(w, r, newTestContext(), "alice", dispatch, nil, Fallbacks{})
		if w.Code != http.StatusOK {
			t.Errorf("got status %d, want %d", w.Code, http.StatusOK)
		}
		if ct := w.Header().Get("Content-Type"); ct != ContentTypeJSONLD {
			t.Errorf("got Content-Type %q, want %q", ct, ContentTypeJSONLD)
		}
		if vary := w.Header().Get("Vary"); vary != "Accept" {
			t.Errorf("got Vary %q, want %q", vary, "Accept")
		}
		if !containsSubstr(w.Body.String(), "alice") {
			t.Errorf("expected serialized body to contain the actor id, got %s", w.Body.String())
		}
	})
}

func containsSubstr(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
