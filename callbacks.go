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
	"context"
	"crypto"
	"net/http"
	"time"

	"github.com/go-fed/activity/streams/vocab"
)

// ActorDispatchFunc resolves a handle to the actor it names, for the Actor
// Responder. A nil result (with a nil error) means "not found".
type ActorDispatchFunc func(c context.Context, handle string) (vocab.Type, error)

// ObjectDispatchFunc resolves a route-parameter map to the object it names,
// for the Object Responder.
type ObjectDispatchFunc func(c context.Context, params map[string]string) (vocab.Type, error)

// Page is one page of a collection: its items plus opaque cursors to the
// previous/next page. HasPrev/HasNext report whether such a page exists;
// PrevCursor/NextCursor are only read when the matching flag is true.
type Page struct {
	Items      []interface{}
	PrevCursor string
	HasPrev    bool
	NextCursor string
	HasNext    bool
}

// CollectionDispatchFunc fetches a page of a collection. cursor is nil for
// the summary request; filter is passed through verbatim from the caller of
// ServeCollection. A nil Page (with a nil error) means "not found".
type CollectionDispatchFunc func(c context.Context, handle string, cursor *string, filter string) (*Page, error)

// CursorFunc produces the first/last cursor of a collection, or nil when
// the collection does not offer cursoring at all.
type CursorFunc func(c context.Context, handle string) (*string, error)

// CounterFunc produces the total item count of a collection, or nil when
// unknown. See SPEC_FULL.md's Open Question resolution: nil here must
// surface as an omitted totalItems, never a numeric sentinel.
type CounterFunc func(c context.Context, handle string) (*int64, error)

// FilterFunc is an in-process predicate applied to already-projected
// collection items; false drops the item.
type FilterFunc func(item interface{}) bool

// ActorAuthorizeFunc authorizes access to an actor resource. key and owner
// may both be nil for an unsigned request.
type ActorAuthorizeFunc func(c context.Context, key crypto.PublicKey, owner vocab.Type, handle string) (bool, error)

// ObjectAuthorizeFunc authorizes access to an object resource.
type ObjectAuthorizeFunc func(c context.Context, key crypto.PublicKey, owner vocab.Type, params map[string]string) (bool, error)

// CollectionAuthorizeFunc authorizes access to a collection resource.
type CollectionAuthorizeFunc func(c context.Context, key crypto.PublicKey, owner vocab.Type, handle string) (bool, error)

// CollectionCallbacks bundles the collaborators the Collection Responder
// needs for one named collection (followers, following, liked, ...).
type CollectionCallbacks struct {
	Dispatch    CollectionDispatchFunc // required
	Counter     CounterFunc             // optional
	FirstCursor CursorFunc              // optional
	LastCursor  CursorFunc              // optional
	Authorize   CollectionAuthorizeFunc // optional
}

// Fallbacks are the caller-supplied handlers invoked in place of the
// 404/406/401 federation-layer responses. They are returned verbatim, so
// ownership and side effects are entirely the caller's.
type Fallbacks struct {
	NotFound      http.Handler
	NotAcceptable http.Handler
	Unauthorized  http.Handler
}

// Listener handles one concrete (or ancestor) activity class. It may
// return an error, which the inbox pipeline reports via ErrorHandler and
// surfaces as a 500.
type Listener func(c context.Context, activity vocab.Type) error

// ErrorHandler is notified of every error the inbox pipeline swallows. It
// must not throw/panic and must not alter the status code already chosen.
type ErrorHandler func(c context.Context, err error)

// SignatureVerifier authenticates an inbox POST by HTTP signature. It
// returns the signer's public key and the IRI of the actor that owns it,
// or a nil key when the signature is absent or invalid, honoring the given
// freshness window.
type SignatureVerifier interface {
	Verify(r *http.Request, window time.Duration) (key crypto.PublicKey, keyOwnerID string, err error)
}

// ProofVerifier verifies a JSON activity bearing an embedded linked-data
// signature ("proof"). It returns (nil, nil) when the document carries no
// embedded proof at all, and an error only for a malformed document.
type ProofVerifier interface {
	VerifyActivity(c context.Context, raw []byte) (vocab.Type, error)
}

// KeyOwnershipPredicate reports whether key (whose owner the
// SignatureVerifier reported as keyOwnerID) is owned by the actor that the
// activity claims as its actor.
type KeyOwnershipPredicate func(c context.Context, activity vocab.Type, key crypto.PublicKey, keyOwnerID string) (bool, error)

// Store is the idempotency key-value collaborator the Inbox Pipeline
// consumes to record and detect replayed activities. Keys are passed as
// segments rather than a single pre-joined string so that implementations
// control their own separator/escaping.
type Store interface {
	Get(c context.Context, key []string) (bool, error)
	Set(c context.Context, key []string, value bool, ttl time.Duration) error
}
