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
	"errors"
	"net/url"

	"github.com/go-fed/activity/streams/vocab"
)

const (
	requestURLContextKey = "fedicore.requestURL"
	userDataContextKey   = "fedicore.userData"
)

// HandleResolver resolves a bare handle to the actor it names, for
// Context.ResolveActor. The Actor Responder does not use it: ServeActor
// resolves the actor through the ActorDispatchFunc it is given.
type HandleResolver func(c context.Context, handle string) (vocab.Type, error)

// KeyResolver resolves the HTTP-signature key that authenticated the
// current request (if any) and the actor that owns it. Either return value
// may be nil for an unsigned request; this is exactly the "late-binding
// handle" the Request Context borrows per the data model.
type KeyResolver func(c context.Context) (key crypto.PublicKey, owner vocab.Type, err error)

// Context is the per-request, borrowed context threaded through every
// responder and the inbox pipeline. It embeds context.Context the way the
// teacher's util.Context does, adding typed accessors over a handful of
// unexported keys instead of making callers fish values out by raw key.
//
// A Context is never shared between requests: the Router constructs one
// fresh from r.Context() per incoming request.
type Context struct {
	context.Context

	resolveHandle HandleResolver
	resolveKey    KeyResolver

	// memoized signature key/owner; resolved at most once per request.
	keyResolved bool
	key         crypto.PublicKey
	keyOwner    vocab.Type
	keyErr      error
}

// NewContext builds a Context for a single request. resolveHandle and
// resolveKey may be nil when the endpoint being served doesn't need them
// (e.g. a handle-resolver is meaningless for the shared inbox).
func NewContext(parent context.Context, requestURL *url.URL, resolveHandle HandleResolver, resolveKey KeyResolver) Context {
	c := parent
	if requestURL != nil {
		u := *requestURL
		c = context.WithValue(c, requestURLContextKey, &u)
	}
	return Context{
		Context:       c,
		resolveHandle: resolveHandle,
		resolveKey:    resolveKey,
	}
}

// WithUserData threads opaque, user-supplied data through every callback
// invoked against this Context, per the Request Context's data model entry.
func (c Context) WithUserData(v interface{}) Context {
	c.Context = context.WithValue(c.Context, userDataContextKey, v)
	return c
}

// UserData returns the opaque user data attached by WithUserData, or nil.
func (c Context) UserData() interface{} {
	return c.Value(userDataContextKey)
}

// RequestURL returns the absolute URL of the request being served.
func (c Context) RequestURL() (*url.URL, error) {
	v := c.Value(requestURLContextKey)
	u, ok := v.(*url.URL)
	if !ok || u == nil {
		return nil, errors.New("fedicore: no request URL in context")
	}
	return u, nil
}

// ResolveActor resolves handle to an actor using the configured
// HandleResolver. Returns an error if none is configured.
func (c Context) ResolveActor(handle string) (vocab.Type, error) {
	if c.resolveHandle == nil {
		return nil, errors.New("fedicore: no handle resolver configured for this context")
	}
	return c.resolveHandle(c.Context, handle)
}

// SignatureKey returns the public key that signed the current request, and
// the actor that owns it, memoizing the lookup so that a single request
// resolves its signature at most once regardless of how many callbacks ask.
// Either return value is nil for an unsigned request.
func (c *Context) SignatureKey() (crypto.PublicKey, vocab.Type, error) {
	if c.keyResolved {
		return c.key, c.keyOwner, c.keyErr
	}
	c.keyResolved = true
	if c.resolveKey == nil {
		return nil, nil, nil
	}
	c.key, c.keyOwner, c.keyErr = c.resolveKey(c.Context)
	return c.key, c.keyOwner, c.keyErr
}
