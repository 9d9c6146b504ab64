package fedicore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parsing %q: %v", raw, err)
	}
	return u
}

func TestServeCollectionInlineSummary(t *testing.T) {
	itemURL := mustParseURL(t, "https://example.com/objects/1")
	dispatch := func(c context.Context, handle string, cursor *string, filter string) (*Page, error) {
		if cursor != nil {
			t.Errorf("expected nil cursor for the no-cursoring summary path, got %v", *cursor)
		}
		return &Page{Items: []interface{}{itemURL}}, nil
	}
	cc := &CollectionCallbacks{Dispatch: dispatch}
	r := httptest.NewRequest(http.MethodGet, "https://example.com/users/alice/followers", nil)
	w := httptest.NewRecorder()
	ServeCollection(w, r, newTestContextForRequest(r), "followers", "alice", "", nil, cc, Fallbacks{})

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}
	if vary := w.Header().Get("Vary"); vary != "Accept" {
		t.Errorf("got Vary %q, want %q", vary, "Accept")
	}
	if ct := w.Header().Get("Content-Type"); ct != ContentTypeJSONLD {
		t.Errorf("got Content-Type %q, want %q", ct, ContentTypeJSONLD)
	}
	var doc orderedCollection
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if doc.TotalItems != nil {
		t.Errorf("expected omitted totalItems, got %v", *doc.TotalItems)
	}
	if len(doc.Items) != 1 {
		t.Fatalf("expected 1 inlined item, got %d", len(doc.Items))
	}
}

func TestServeCollectionSummaryWithCursors(t *testing.T) {
	first := "cursor-1"
	last := "cursor-9"
	total := int64(42)
	cc := &CollectionCallbacks{
		Dispatch: func(c context.Context, handle string, cursor *string, filter string) (*Page, error) {
			t.Fatal("dispatch should not be called when a first cursor is offered and no cursor was requested")
			return nil, nil
		},
		FirstCursor: func(c context.Context, handle string) (*string, error) { return &first, nil },
		LastCursor:  func(c context.Context, handle string) (*string, error) { return &last, nil },
		Counter:     func(c context.Context, handle string) (*int64, error) { return &total, nil },
	}
	r := httptest.NewRequest(http.MethodGet, "https://example.com/users/alice/followers", nil)
	w := httptest.NewRecorder()
	ServeCollection(w, r, newTestContextForRequest(r), "followers", "alice", "", nil, cc, Fallbacks{})

	var doc orderedCollection
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if doc.TotalItems == nil || *doc.TotalItems != total {
		t.Errorf("expected totalItems %d, got %v", total, doc.TotalItems)
	}
	if doc.First == "" || doc.Last == "" {
		t.Errorf("expected first and last links, got first=%q last=%q", doc.First, doc.Last)
	}
	if len(doc.Items) != 0 {
		t.Errorf("expected no inlined items in the cursoring summary, got %d", len(doc.Items))
	}
}

func TestServeCollectionPageLinks(t *testing.T) {
	itemURL := mustParseURL(t, "https://example.com/objects/7")
	cc := &CollectionCallbacks{
		Dispatch: func(c context.Context, handle string, cursor *string, filter string) (*Page, error) {
			if cursor == nil || *cursor != "cursor-5" {
				t.Errorf("expected cursor-5, got %v", cursor)
			}
			return &Page{
				Items:      []interface{}{itemURL},
				PrevCursor: "cursor-4",
				HasPrev:    true,
				NextCursor: "cursor-6",
				HasNext:    true,
			}, nil
		},
	}
	r := httptest.NewRequest(http.MethodGet, "https://example.com/users/alice/followers?cursor=cursor-5", nil)
	w := httptest.NewRecorder()
	ServeCollection(w, r, newTestContextForRequest(r), "followers", "alice", "", nil, cc, Fallbacks{})

	var doc orderedCollectionPage
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if doc.PartOf == "" {
		t.Error("expected a partOf link")
	}
	if doc.Prev == "" || doc.Next == "" {
		t.Errorf("expected prev and next links, got prev=%q next=%q", doc.Prev, doc.Next)
	}
	if len(doc.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(doc.Items))
	}
}

func TestServeCollectionFilterDropsItems(t *testing.T) {
	kept := mustParseURL(t, "https://example.com/objects/keep")
	dropped := mustParseURL(t, "https://example.com/objects/drop")
	cc := &CollectionCallbacks{
		Dispatch: func(c context.Context, handle string, cursor *string, filter string) (*Page, error) {
			return &Page{Items: []interface{}{kept, dropped}}, nil
		},
	}
	filter := func(item interface{}) bool {
		u, ok := item.(*url.URL)
		return ok && u.String() == kept.String()
	}
	r := httptest.NewRequest(http.MethodGet, "https://example.com/users/alice/followers", nil)
	w := httptest.NewRecorder()
	ServeCollection(w, r, newTestContextForRequest(r), "followers", "alice", "", filter, cc, Fallbacks{})

	var doc orderedCollection
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if len(doc.Items) != 1 {
		t.Fatalf("expected filter to drop one item, got %d items", len(doc.Items))
	}
}
