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
	"bytes"
	"context"
	"crypto"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-fed/activity/pub"
	"github.com/go-fed/activity/streams"
	"github.com/go-fed/activity/streams/vocab"
	"github.com/go-fed/fedicore/internal/util"
)

// ListenerResolver resolves an activity to the nearest registered listener
// along its class ancestor chain. The listener package's Registry is the
// reference implementation (precomputed lookup, §9).
type ListenerResolver interface {
	Resolve(activity vocab.Type) (Listener, bool)
}

// InboxHandlers bundles every collaborator the Inbox Pipeline needs. It is
// gathered once at server construction (the distilled spec's "Registration"
// design note) and borrowed read-only by every inbox POST.
type InboxHandlers struct {
	// ActorDispatch resolves the handle an inbox POST targets to its
	// owning actor. Required: an inbox with no actor-dispatcher at all
	// falls back to NotFound regardless of which handle (if any) was
	// requested (stage 1).
	ActorDispatch ActorDispatchFunc

	// NotFound is invoked whenever stage 1's configuration sanity check
	// fails: no actor-dispatcher configured, or the requested handle
	// resolves to no actor.
	NotFound http.Handler

	// Proof verifies an activity carrying an embedded linked-data
	// signature. Optional; when nil, every request falls through to
	// Signatures.
	Proof ProofVerifier

	// Signatures verifies the HTTP signature on the request. Required
	// whenever Proof is nil or declines to handle a given request.
	Signatures SignatureVerifier

	// SignatureWindow bounds how stale a signed Date header may be.
	SignatureWindow time.Duration

	// Store records processed activity IRIs for replay detection.
	Store Store

	// KeyPrefix namespaces idempotency keys for this inbox (e.g. the
	// owning actor's handle), so distinct inboxes sharing a Store don't
	// collide.
	KeyPrefix string

	// TTL is how long an idempotency record is retained.
	TTL time.Duration

	// KeyOwnership reports whether the verified key belongs to the actor
	// the activity names as its actor.
	KeyOwnership KeyOwnershipPredicate

	// Listeners resolves an activity to the handler that processes it.
	Listeners ListenerResolver

	// OnError is notified of every error this pipeline swallows.
	OnError ErrorHandler
}

// ServeInbox implements the Inbox Pipeline (SPEC_FULL.md §4.5): verify,
// parse, deduplicate, dispatch to the resolved listener, record processed,
// and map the outcome to the federation-layer HTTP status. handle is nil
// for the shared inbox.
func ServeInbox(w http.ResponseWriter, r *http.Request, ctx *Context, handle *string, h *InboxHandlers) {
	c := ctx.Context

	// Stage 1: configuration sanity. Runs before any body I/O so a
	// misconfigured or unknown-handle inbox never reads the request.
	if h == nil || h.ActorDispatch == nil {
		util.InfoLogger.Infof("fedicore: inbox has no actor-dispatcher configured")
		serveNotFound(w, r, h)
		return
	}
	if handle != nil {
		actor, err := h.ActorDispatch(c, *handle)
		if err != nil || actor == nil {
			util.InfoLogger.Infof("fedicore: inbox handle %q does not resolve to an actor", *handle)
			serveNotFound(w, r, h)
			return
		}
	}

	err := serveInbox(c, w, r, h)
	if err == nil {
		return
	}

	de, ok := err.(*dispatchError)
	if !ok {
		de = listenerErr(err)
	}
	if h.OnError != nil {
		h.OnError(c, de)
	}
	writeInboxStatus(w, de)
}

func serveNotFound(w http.ResponseWriter, r *http.Request, h *InboxHandlers) {
	if h != nil && h.NotFound != nil {
		h.NotFound.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

func serveInbox(c context.Context, w http.ResponseWriter, r *http.Request, h *InboxHandlers) error {
	if h.Store == nil || h.Listeners == nil || h.KeyOwnership == nil {
		return listenerErr(errString("inbox handlers not fully configured"))
	}
	if h.Proof == nil && h.Signatures == nil {
		return listenerErr(errString("inbox has neither a proof verifier nor a signature verifier configured"))
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return malformedErr("Invalid JSON.", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	m := make(map[string]interface{})
	if err := json.Unmarshal(raw, &m); err != nil {
		return malformedErr("Invalid JSON.", err)
	}

	var activity vocab.Type
	var keyOwnerID string
	var key crypto.PublicKey

	if h.Proof != nil {
		activity, err = h.Proof.VerifyActivity(c, raw)
		if err != nil {
			return malformedErr("Invalid activity.", err)
		}
	}

	if activity == nil {
		if h.Signatures == nil {
			return unauthenticatedErr("Failed to verify the request signature.")
		}
		window := h.SignatureWindow
		if window <= 0 {
			window = 30 * time.Minute
		}
		key, keyOwnerID, err = h.Signatures.Verify(r, window)
		if err != nil || key == nil {
			return unauthenticatedErr("Failed to verify the request signature.")
		}

		activity, err = streams.ToType(c, m)
		if err != nil {
			return malformedErr("Invalid activity.", err)
		}
	}

	// The activity's id is optional (§3); when absent, deduplication is
	// skipped entirely per stage 5 and redelivery is the caller's concern.
	var dedupeKey []string
	id, _ := pub.GetId(activity)
	if id != nil {
		dedupeKey = []string{h.KeyPrefix, id.String()}
		seen, err := h.Store.Get(c, dedupeKey)
		if err != nil {
			return listenerErr(err)
		}
		if seen {
			w.WriteHeader(http.StatusAccepted)
			io.WriteString(w, "Activity <"+id.String()+"> has already been processed.")
			return nil
		}
	}

	actorID, err := activityActorIRI(activity)
	if err != nil || actorID == nil {
		return malformedErr("Missing actor.", err)
	}

	if key != nil {
		ok, err := h.KeyOwnership(c, activity, key, keyOwnerID)
		if err != nil {
			return listenerErr(err)
		}
		if !ok {
			return unauthenticatedErr("The signer and the actor do not match.")
		}
	}

	listener, ok := h.Listeners.Resolve(activity)
	if !ok {
		util.InfoLogger.Infof("fedicore: no listener registered for activity %v; ignoring", id)
		w.WriteHeader(http.StatusAccepted)
		return nil
	}

	if err := listener(c, activity); err != nil {
		return listenerErr(err)
	}

	if dedupeKey != nil {
		ttl := h.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		if err := h.Store.Set(c, dedupeKey, true, ttl); err != nil {
			util.ErrorLogger.Errorf("fedicore: recording idempotency key for %v failed: %v", id, err)
		}
	}

	w.WriteHeader(http.StatusAccepted)
	return nil
}

// activityActorIRI extracts the IRI of an activity's actor property. Types
// that carry no actor property (a non-Activity, or a malformed payload)
// return a nil id and a nil error; the caller treats that as malformed.
func activityActorIRI(activity vocab.Type) (*url.URL, error) {
	h, ok := activity.(actorPropertyHaver)
	if !ok {
		return nil, nil
	}
	prop := h.GetActivityStreamsActor()
	if prop == nil {
		return nil, nil
	}
	for iter := prop.Begin(); iter != prop.End(); iter = iter.Next() {
		id, err := pub.ToId(iter)
		if err != nil {
			continue
		}
		if id != nil {
			return id, nil
		}
	}
	return nil, nil
}

type actorPropertyHaver interface {
	GetActivityStreamsActor() vocab.ActivityStreamsActorProperty
}

func writeInboxStatus(w http.ResponseWriter, de *dispatchError) {
	switch de.kind {
	case kindInputMalformed:
		http.Error(w, de.body, http.StatusBadRequest)
	case kindUnauthenticated:
		http.Error(w, de.body, http.StatusUnauthorized)
	default:
		http.Error(w, de.body, http.StatusInternalServerError)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
