// fedicore is the ActivityPub inbox/collection dispatch core of a
// federation server framework.
// Copyright (C) 2024 The fedicore Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package fedicore

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-fed/activity/pub"
	"github.com/go-fed/activity/streams"
	"github.com/go-fed/activity/streams/vocab"
	"github.com/go-fed/fedicore/internal/util"
)

const cursorQueryParam = "cursor"

// EmbeddedObjectOrLink marks a raw collection item that is already an
// Object, Link, or bare URL and should be embedded in the page as-is,
// rather than reduced to its id. A bare URL item is passed as a *url.URL.
type EmbeddedObjectOrLink struct {
	Value vocab.Type
}

// orderedCollection is the minimal AS2 wire shape for a collection
// summary. It is this core's own synthesized document rather than a
// constructed vocab.ActivityStreamsOrderedCollection: the full vocabulary
// object graph is an external collaborator (§1), so the dispatch core
// emits the narrow JSON-LD shape its own data model defines instead of
// pulling in the generator-heavy property-constructor surface.
type orderedCollection struct {
	Context    string        `json:"@context"`
	Type       string        `json:"type"`
	ID         string        `json:"id,omitempty"`
	TotalItems *int64        `json:"totalItems,omitempty"`
	Items      []interface{} `json:"orderedItems,omitempty"`
	First      string        `json:"first,omitempty"`
	Last       string        `json:"last,omitempty"`
}

// orderedCollectionPage is the minimal AS2 wire shape for a specific page.
type orderedCollectionPage struct {
	Context string        `json:"@context"`
	Type    string        `json:"type"`
	PartOf  string        `json:"partOf"`
	Items   []interface{} `json:"orderedItems"`
	Prev    string        `json:"prev,omitempty"`
	Next    string        `json:"next,omitempty"`
}

const activityStreamsContext = "https://www.w3.org/ns/activitystreams"

// projectItems normalizes each raw item to {object|link|URL}, applies
// filter if given, and logs the one-shot "apparently does not implement
// filtering" warning the first time filter drops something. Builds a
// single response; no concurrency hazard from the unguarded bool.
func projectItems(items []interface{}, filter FilterFunc) []interface{} {
	out := make([]interface{}, 0, len(items))
	warned := false
	for _, raw := range items {
		projected, ok := projectItem(raw)
		if !ok {
			continue
		}
		if filter != nil && !filter(projected) {
			if !warned {
				util.InfoLogger.Info("collection apparently does not implement filtering; may result in large payload")
				warned = true
			}
			continue
		}
		out = append(out, projected)
	}
	return out
}

func projectItem(item interface{}) (interface{}, bool) {
	switch v := item.(type) {
	case *url.URL:
		return v, true
	case EmbeddedObjectOrLink:
		return v.Value, true
	case vocab.Type:
		id, err := pub.GetId(v)
		if err != nil || id == nil {
			return nil, false
		}
		return id, true
	default:
		return nil, false
	}
}

func itemsToJSON(items []interface{}) []interface{} {
	out := make([]interface{}, 0, len(items))
	for _, it := range items {
		if u, ok := it.(*url.URL); ok {
			out = append(out, u.String())
			continue
		}
		if t, ok := it.(vocab.Type); ok {
			m, err := streams.Serialize(t)
			if err != nil {
				util.ErrorLogger.Errorf("fedicore: serializing embedded collection item failed: %v", err)
				continue
			}
			out = append(out, m)
			continue
		}
		out = append(out, it)
	}
	return out
}

// ServeCollection implements the Collection Responder (SPEC_FULL.md §4.4).
func ServeCollection(w http.ResponseWriter, r *http.Request, ctx *Context, name, handle, filterValue string,
	filter FilterFunc, cc *CollectionCallbacks, fb Fallbacks) {

	if cc == nil || cc.Dispatch == nil {
		fb.NotFound.ServeHTTP(w, r)
		return
	}

	reqURL, err := ctx.RequestURL()
	if err != nil {
		util.ErrorLogger.Errorf("fedicore: collection %q: %v", name, err)
		fb.NotFound.ServeHTTP(w, r)
		return
	}

	q := reqURL.Query()
	cursorVals, hasCursor := q[cursorQueryParam]
	var cursor string
	if hasCursor && len(cursorVals) > 0 {
		cursor = cursorVals[0]
	}

	var doc interface{}

	if !hasCursor {
		var firstCursor, lastCursor *string
		var total *int64

		if cc.FirstCursor != nil {
			firstCursor, err = cc.FirstCursor(ctx.Context, handle)
			if err != nil {
				util.ErrorLogger.Errorf("fedicore: collection %q firstCursor: %v", name, err)
				fb.NotFound.ServeHTTP(w, r)
				return
			}
		}
		if cc.Counter != nil {
			total, err = cc.Counter(ctx.Context, handle)
			if err != nil {
				util.ErrorLogger.Errorf("fedicore: collection %q counter: %v", name, err)
				fb.NotFound.ServeHTTP(w, r)
				return
			}
		}

		if firstCursor == nil {
			page, err := cc.Dispatch(ctx.Context, handle, nil, filterValue)
			if err != nil {
				util.ErrorLogger.Errorf("fedicore: collection %q dispatch: %v", name, err)
				fb.NotFound.ServeHTTP(w, r)
				return
			}
			if page == nil {
				fb.NotFound.ServeHTTP(w, r)
				return
			}
			doc = &orderedCollection{
				Context:    activityStreamsContext,
				Type:       "OrderedCollection",
				ID:         withoutCursor(reqURL).String(),
				TotalItems: total,
				Items:      itemsToJSON(projectItems(page.Items, filter)),
			}
		} else {
			if cc.LastCursor != nil {
				lastCursor, err = cc.LastCursor(ctx.Context, handle)
				if err != nil {
					util.ErrorLogger.Errorf("fedicore: collection %q lastCursor: %v", name, err)
					fb.NotFound.ServeHTTP(w, r)
					return
				}
			}
			sum := &orderedCollection{
				Context:    activityStreamsContext,
				Type:       "OrderedCollection",
				ID:         withoutCursor(reqURL).String(),
				TotalItems: total,
				First:      withCursor(reqURL, *firstCursor).String(),
			}
			if lastCursor != nil {
				sum.Last = withCursor(reqURL, *lastCursor).String()
			}
			doc = sum
		}
	} else {
		page, err := cc.Dispatch(ctx.Context, handle, &cursor, filterValue)
		if err != nil {
			util.ErrorLogger.Errorf("fedicore: collection %q dispatch: %v", name, err)
			fb.NotFound.ServeHTTP(w, r)
			return
		}
		if page == nil {
			fb.NotFound.ServeHTTP(w, r)
			return
		}
		ocp := &orderedCollectionPage{
			Context: activityStreamsContext,
			Type:    "OrderedCollectionPage",
			PartOf:  withoutCursor(reqURL).String(),
			Items:   itemsToJSON(projectItems(page.Items, filter)),
		}
		if page.HasPrev {
			ocp.Prev = withCursor(reqURL, page.PrevCursor).String()
		}
		if page.HasNext {
			ocp.Next = withCursor(reqURL, page.NextCursor).String()
		}
		doc = ocp
	}

	if !AcceptsJSONLD(r) {
		fb.NotAcceptable.ServeHTTP(w, r)
		return
	}

	if cc.Authorize != nil {
		key, owner, err := ctx.SignatureKey()
		if err != nil {
			util.ErrorLogger.Errorf("fedicore: collection %q signature key: %v", name, err)
			fb.Unauthorized.ServeHTTP(w, r)
			return
		}
		ok, err := cc.Authorize(ctx.Context, key, owner, handle)
		if err != nil {
			util.ErrorLogger.Errorf("fedicore: collection %q authorize: %v", name, err)
			fb.Unauthorized.ServeHTTP(w, r)
			return
		}
		if !ok {
			fb.Unauthorized.ServeHTTP(w, r)
			return
		}
	}

	b, err := json.Marshal(doc)
	if err != nil {
		util.ErrorLogger.Errorf("fedicore: collection %q marshal: %v", name, err)
		fb.NotFound.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Vary", "Accept")
	w.Header().Set("Content-Type", ContentTypeJSONLD)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		util.ErrorLogger.Errorf("fedicore: collection %q write: %v", name, err)
	}
}

func withCursor(u *url.URL, cursor string) *url.URL {
	c := *u
	q := c.Query()
	q.Set(cursorQueryParam, cursor)
	c.RawQuery = q.Encode()
	return &c
}

func withoutCursor(u *url.URL) *url.URL {
	c := *u
	q := c.Query()
	q.Del(cursorQueryParam)
	c.RawQuery = q.Encode()
	return &c
}
