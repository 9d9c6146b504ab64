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

// Package router wires the four federation endpoint kinds onto a
// gorilla/mux.Router, following the teacher's router.go/framework/handler.go
// route-registration helpers.
package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/go-fed/fedicore"
)

// HandleVar is the mux route variable carrying the actor handle, e.g.
// "/users/{handle}".
const HandleVar = "handle"

// Resolvers supply the per-request collaborators the Router threads into
// the Context it builds for every matched request.
type Resolvers struct {
	ResolveHandle fedicore.HandleResolver
	ResolveKey    fedicore.KeyResolver
}

// newContext builds a fedicore.Context for r using res.
func newContext(r *http.Request, res Resolvers) fedicore.Context {
	return fedicore.NewContext(r.Context(), r.URL, res.ResolveHandle, res.ResolveKey)
}

// RegisterActor wires pattern (containing {handle}) to the Actor Responder.
func RegisterActor(router *mux.Router, pattern string, res Resolvers,
	dispatch fedicore.ActorDispatchFunc, authorize fedicore.ActorAuthorizeFunc, fb fedicore.Fallbacks) *mux.Route {

	return router.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		handle := mux.Vars(r)[HandleVar]
		ctx := newContext(r, res)
		fedicore.ServeActor(w, r, &ctx, handle, dispatch, authorize, fb)
	}).Methods(http.MethodGet)
}

// RegisterObject wires pattern to the Object Responder. Every mux route
// variable in pattern is forwarded verbatim as the dispatcher's param map.
func RegisterObject(router *mux.Router, pattern string, res Resolvers,
	dispatch fedicore.ObjectDispatchFunc, authorize fedicore.ObjectAuthorizeFunc, fb fedicore.Fallbacks) *mux.Route {

	return router.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		ctx := newContext(r, res)
		fedicore.ServeObject(w, r, &ctx, mux.Vars(r), dispatch, authorize, fb)
	}).Methods(http.MethodGet)
}

// RegisterCollection wires pattern (containing {handle}) to the Collection
// Responder. name identifies the collection for diagnostics (e.g.
// "followers"); filterQueryParam, if non-empty, names the query parameter
// forwarded to the dispatcher as its filter value.
func RegisterCollection(router *mux.Router, pattern, name, filterQueryParam string, res Resolvers,
	filter fedicore.FilterFunc, cc *fedicore.CollectionCallbacks, fb fedicore.Fallbacks) *mux.Route {

	return router.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		handle := mux.Vars(r)[HandleVar]
		var filterValue string
		if filterQueryParam != "" {
			filterValue = r.URL.Query().Get(filterQueryParam)
		}
		ctx := newContext(r, res)
		fedicore.ServeCollection(w, r, &ctx, name, handle, filterValue, filter, cc, fb)
	}).Methods(http.MethodGet)
}

// RegisterInbox wires pattern (containing {handle}) to the Inbox Pipeline
// for a per-actor inbox.
func RegisterInbox(router *mux.Router, pattern string, res Resolvers, h *fedicore.InboxHandlers) *mux.Route {
	return router.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		handle := mux.Vars(r)[HandleVar]
		ctx := newContext(r, res)
		fedicore.ServeInbox(w, r, &ctx, &handle, h)
	}).Methods(http.MethodPost)
}

// RegisterSharedInbox wires pattern to the Inbox Pipeline with a nil handle,
// for the shared/instance-wide inbox endpoint.
func RegisterSharedInbox(router *mux.Router, pattern string, res Resolvers, h *fedicore.InboxHandlers) *mux.Route {
	return router.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		ctx := newContext(r, res)
		fedicore.ServeInbox(w, r, &ctx, nil, h)
	}).Methods(http.MethodPost)
}
