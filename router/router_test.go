package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/go-fed/fedicore"
	"github.com/go-fed/activity/streams/vocab"
)

func TestRegisterActorExtractsHandle(t *testing.T) {
	var gotHandle string
	dispatch := fedicore.ActorDispatchFunc(func(c context.Context, handle string) (vocab.Type, error) {
		gotHandle = handle
		return nil, nil
	})

	m := mux.NewRouter()
	fb := fedicore.Fallbacks{
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}),
	}
	RegisterActor(m, "/users/{handle}", Resolvers{}, dispatch, nil, fb)

	r := httptest.NewRequest(http.MethodGet, "https://example.com/users/alice", nil)
	w := httptest.NewRecorder()
	m.ServeHTTP(w, r)

	if gotHandle != "alice" {
		t.Errorf("got handle %q, want %q", gotHandle, "alice")
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d (nil actor means not found)", w.Code, http.StatusNotFound)
	}
}

func TestRegisterCollectionExtractsCursorAndFilter(t *testing.T) {
	var gotCursor *string
	var gotFilter string
	dispatch := fedicore.CollectionDispatchFunc(func(c context.Context, handle string, cursor *string, filter string) (*fedicore.Page, error) {
		gotCursor = cursor
		gotFilter = filter
		return &fedicore.Page{}, nil
	})

	m := mux.NewRouter()
	cc := &fedicore.CollectionCallbacks{Dispatch: dispatch}
	RegisterCollection(m, "/users/{handle}/followers", "followers", "type", Resolvers{}, nil, cc, fedicore.Fallbacks{
		NotFound:      http.NotFoundHandler(),
		NotAcceptable: http.NotFoundHandler(),
	})

	r := httptest.NewRequest(http.MethodGet, "https://example.com/users/alice/followers?cursor=abc&type=Person", nil)
	w := httptest.NewRecorder()
	m.ServeHTTP(w, r)

	if gotCursor == nil || *gotCursor != "abc" {
		t.Errorf("got cursor %v, want %q", gotCursor, "abc")
	}
	if gotFilter != "Person" {
		t.Errorf("got filter %q, want %q", gotFilter, "Person")
	}
}

func TestRegisterInboxExtractsHandle(t *testing.T) {
	var gotHandle string
	h := &fedicore.InboxHandlers{
		ActorDispatch: func(c context.Context, handle string) (vocab.Type, error) {
			gotHandle = handle
			return nil, nil
		},
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}),
	}

	m := mux.NewRouter()
	RegisterInbox(m, "/users/{handle}/inbox", Resolvers{}, h)

	r := httptest.NewRequest(http.MethodPost, "https://example.com/users/alice/inbox", nil)
	w := httptest.NewRecorder()
	m.ServeHTTP(w, r)

	if gotHandle != "alice" {
		t.Errorf("got handle %q, want %q", gotHandle, "alice")
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d (nil actor means not found)", w.Code, http.StatusNotFound)
	}
}

func TestRegisterSharedInboxPassesNilHandle(t *testing.T) {
	dispatchCalled := false
	h := &fedicore.InboxHandlers{
		ActorDispatch: func(c context.Context, handle string) (vocab.Type, error) {
			dispatchCalled = true
			return nil, nil
		},
		NotFound: http.NotFoundHandler(),
	}

	m := mux.NewRouter()
	RegisterSharedInbox(m, "/inbox", Resolvers{}, h)

	r := httptest.NewRequest(http.MethodPost, "https://example.com/inbox", nil)
	w := httptest.NewRecorder()
	m.ServeHTTP(w, r)

	if dispatchCalled {
		t.Error("the shared inbox must not resolve a handle; ActorDispatch should only be checked for nil-ness")
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", w.Code, http.StatusNotFound)
	}
}
