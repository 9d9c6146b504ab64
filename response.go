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
	"encoding/json"
	"net/http"

	"github.com/go-fed/activity/streams"
	"github.com/go-fed/activity/streams/vocab"
	"github.com/go-fed/fedicore/internal/util"
)

// writeJSONLD emits m as the JSON-LD body of a 200 response from the
// Actor or Object Responder, setting both Content-Type and Vary
// per the universal invariant that every successful negotiation response
// from a core responder carries both headers (SPEC_FULL.md §4.1, §8).
func writeJSONLD(w http.ResponseWriter, m map[string]interface{}) {
	b, err := json.Marshal(m)
	if err != nil {
		util.ErrorLogger.Errorf("fedicore: marshaling JSON-LD response failed: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	SetJSONLDHeaders(w)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		util.ErrorLogger.Errorf("fedicore: writing JSON-LD response failed: %v", err)
	}
}

// RespondWithObject serializes object to JSON-LD and emits it as a 200
// response with Content-Type application/activity+json and no Vary
// header, per the Object Response Helpers (§4.6). The document loader used
// during compaction is whatever streams.Serialize already resolves through
// the streams package's own JSON-LD plumbing; this core does not
// re-implement compaction.
func RespondWithObject(c context.Context, w http.ResponseWriter, object vocab.Type) error {
	m, err := streams.Serialize(object)
	if err != nil {
		return err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", ContentTypeJSONLD)
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(b)
	return err
}

// RespondWithObjectIfAcceptable negotiates first: if r does not accept
// JSON-LD, it returns (false, nil) so the caller can fall back to an HTML
// rendering instead. Otherwise it delegates to RespondWithObject and adds
// Vary: Accept, returning (true, err).
func RespondWithObjectIfAcceptable(c context.Context, w http.ResponseWriter, r *http.Request, object vocab.Type) (bool, error) {
	if !AcceptsJSONLD(r) {
		return false, nil
	}
	w.Header().Set("Vary", "Accept")
	if err := RespondWithObject(c, w, object); err != nil {
		return true, err
	}
	return true, nil
}
