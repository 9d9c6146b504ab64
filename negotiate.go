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
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// ContentTypeJSONLD is the Content-Type this core always sets on a
// successful JSON-LD response.
const ContentTypeJSONLD = "application/activity+json"

var jsonLDMediaTypes = map[string]bool{
	"application/activity+json": true,
	"application/ld+json":       true,
	"application/json":          true,
}

var htmlMediaTypes = map[string]bool{
	"text/html":             true,
	"application/xhtml+xml": true,
}

type acceptEntry struct {
	mediaType string
	q         float64
}

// AcceptsJSONLD decides whether r prefers ActivityStreams JSON-LD over
// HTML, per the Content Negotiator's contract:
//
//   - No parseable Accept header: true (clients that don't negotiate get
//     JSON-LD).
//   - Top preference is text/html or application/xhtml+xml: false.
//   - Otherwise true iff the accepted set contains activity+json, ld+json,
//     or plain json.
func AcceptsJSONLD(r *http.Request) bool {
	header := r.Header.Get("Accept")
	entries := parseAccept(header)
	if len(entries) == 0 {
		return true
	}
	if htmlMediaTypes[entries[0].mediaType] {
		return false
	}
	for _, e := range entries {
		if jsonLDMediaTypes[e.mediaType] {
			return true
		}
	}
	return false
}

// parseAccept splits an Accept header into media types ordered by
// descending quality (ties keep their original order), skipping entries
// that fail to parse. No external content-negotiation library is used
// here; see DESIGN.md for why this stays on net/http + mime.
func parseAccept(header string) []acceptEntry {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	entries := make([]acceptEntry, 0, len(parts))
	for _, p := range parts {
		mt, params, err := mime.ParseMediaType(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		q := 1.0
		if qs, ok := params["q"]; ok {
			if v, err := strconv.ParseFloat(qs, 64); err == nil {
				q = v
			}
		}
		entries = append(entries, acceptEntry{mediaType: mt, q: q})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].q > entries[j].q
	})
	return entries
}

// SetJSONLDHeaders sets the headers every successful negotiation response
// from a core responder must carry.
func SetJSONLDHeaders(w http.ResponseWriter) {
	w.Header().Set("Vary", "Accept")
	w.Header().Set("Content-Type", ContentTypeJSONLD)
}
