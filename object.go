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

// ServeObject implements the Object Responder (SPEC_FULL.md §4.3). It is
// the Actor Responder's twin: same precedence, same negotiation and
// response shape, but keyed by an arbitrary route-parameter map instead of
// a single handle.
func ServeObject(w http.ResponseWriter, r *http.Request, ctx *Context, params map[string]string,
	dispatch ObjectDispatchFunc, authorize ObjectAuthorizeFunc, fb Fallbacks) {

	if dispatch == nil {
		fb.NotFound.ServeHTTP(w, r)
		return
	}

	object, err := dispatch(ctx.Context, params)
	if err != nil {
		util.ErrorLogger.Errorf("fedicore: object dispatch for %v failed: %v", params, err)
		fb.NotFound.ServeHTTP(w, r)
		return
	}
	if object == nil {
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
			util.ErrorLogger.Errorf("fedicore: resolving signature key for object %v failed: %v", params, err)
			fb.Unauthorized.ServeHTTP(w, r)
			return
		}
		ok, err := authorize(ctx.Context, key, owner, params)
		if err != nil {
			util.ErrorLogger.Errorf("fedicore: authorizing object %v failed: %v", params, err)
			fb.Unauthorized.ServeHTTP(w, r)
			return
		}
		if !ok {
			fb.Unauthorized.ServeHTTP(w, r)
			return
		}
	}

	m, err := streams.Serialize(object)
	if err != nil {
		util.ErrorLogger.Errorf("fedicore: serializing object %v failed: %v", params, err)
		fb.NotFound.ServeHTTP(w, r)
		return
	}
	writeJSONLD(w, m)
}
