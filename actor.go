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
	"net/http"

	"github.com/go-fed/activity/streams"
	"github.com/go-fed/fedicore/internal/util"
)

// ServeActor implements the Actor Responder (SPEC_FULL.md §4.2). The
// 404-vs-406-vs-401 precedence is load-bearing: dispatcher-absent always
// wins over content negotiation, which always wins over authorization.
func ServeActor(w http.ResponseWriter, r *http.Request, ctx *Context, handle string,
	dispatch ActorDispatchFunc, authorize ActorAuthorizeFunc, fb Fallbacks) {

	if dispatch == nil {
		fb.NotFound.ServeHTTP(w, r)
		return
	}

	actor, err := dispatch(ctx.Context, handle)
	if err != nil {
		util.ErrorLogger.Errorf("fedicore: actor dispatch for %q failed: %v", handle, err)
		fb.NotFound.ServeHTTP(w, r)
		return
	}
	if actor == nil {
		fb.NotFound.ServeHTTP(w, r)
		return
	}

	if !AcceptsJSONLD(r) {
		fb.NotAcceptable.ServeHTTP(w, r)
		return
	}

	if authorize != nil {
		key, owner, err := ctx.SignatureKey()
		if err != nil {
			util.ErrorLogger.Errorf("fedicore: resolving signature key for actor %q failed: %v", handle, err)
			fb.Unauthorized.ServeHTTP(w, r)
			return
		}
		ok, err := authorize(ctx.Context, key, owner, handle)
		if err != nil {
			util.ErrorLogger.Errorf("fedicore: authorizing actor %q failed: %v", handle, err)
			fb.Unauthorized.ServeHTTP(w, r)
			return
		}
		if !ok {
			fb.Unauthorized.ServeHTTP(w, r)
			return
		}
	}

	m, err := streams.Serialize(actor)
	if err != nil {
		util.ErrorLogger.Errorf("fedicore: serializing actor %q failed: %v", handle, err)
		fb.NotFound.ServeHTTP(w, r)
		return
	}
	writeJSONLD(w, m)
}
