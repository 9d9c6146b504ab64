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

// Package listener resolves an incoming activity to the listener
// registered for its most specific class, walking up the class's declared
// ancestor chain when no exact match is registered.
package listener

import (
	"fmt"

	"github.com/go-fed/activity/streams/vocab"
	"github.com/go-fed/fedicore"
)

// Class names one node of the activity class hierarchy. Name is the AS2
// type name reported by vocab.Type.GetTypeName (e.g. "Create", "Announce").
// Extends lists its immediate parent classes; Builder expands this into a
// full ancestor-inclusive lookup so resolution is O(1) per request.
//
// Extends is optional for any of the standard ActivityStreams activity
// types (see defaultAncestry): their immediate supertype is already known
// to this package, following the class hierarchy go-fed/activity's
// generated vocab types implement. Only custom, non-standard activity
// subclasses need to declare it explicitly.
type Class struct {
	Name    string
	Extends []Class
}

// defaultAncestry is the immediate-supertype edge of every concrete
// ActivityStreams 2.0 activity type, per the vocabulary's own class
// hierarchy (https://www.w3.org/TR/activitystreams-vocabulary/#activity-types).
// It lets Build walk the chain for an activity type the caller never
// explicitly Register'd or declared, e.g. falling back from an
// unregistered Announce to a listener registered for Activity.
var defaultAncestry = map[string][]string{
	"IntransitiveActivity": {"Activity"},
	"Accept":               {"Activity"},
	"TentativeAccept":      {"Accept"},
	"Add":                  {"Activity"},
	"Arrive":               {"IntransitiveActivity"},
	"Block":                {"Ignore"},
	"Create":               {"Activity"},
	"Delete":               {"Activity"},
	"Dislike":              {"Activity"},
	"Flag":                 {"Activity"},
	"Follow":               {"Activity"},
	"Ignore":               {"Activity"},
	"Invite":               {"Offer"},
	"Join":                 {"Activity"},
	"Leave":                {"Activity"},
	"Like":                 {"Activity"},
	"Listen":               {"Activity"},
	"Move":                 {"Activity"},
	"Offer":                {"Activity"},
	"Question":             {"IntransitiveActivity"},
	"Reject":               {"Activity"},
	"TentativeReject":      {"Reject"},
	"Read":                 {"Activity"},
	"Remove":               {"Activity"},
	"Travel":               {"IntransitiveActivity"},
	"Undo":                 {"Activity"},
	"Update":               {"Activity"},
	"View":                 {"Activity"},
	"Announce":             {"Activity"},
}

// Builder accumulates (Class, Listener) registrations and expands them into
// a Registry. It is not safe for concurrent use; build it once at server
// construction, then discard it in favor of the Registry it produced.
type Builder struct {
	direct map[string]fedicore.Listener
	edges  map[string][]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		direct: make(map[string]fedicore.Listener),
		edges:  make(map[string][]string),
	}
}

// Register binds l to class, recording class's declared ancestry so Build
// can expand the chain later. A later call for the same class name
// overwrites the earlier listener but merges ancestry.
func (b *Builder) Register(class Class, l fedicore.Listener) *Builder {
	b.direct[class.Name] = l
	b.recordAncestry(class)
	return b
}

func (b *Builder) recordAncestry(class Class) {
	for _, parent := range class.Extends {
		b.edges[class.Name] = appendUnique(b.edges[class.Name], parent.Name)
		b.recordAncestry(parent)
	}
}

func appendUnique(ss []string, s string) []string {
	for _, existing := range ss {
		if existing == s {
			return ss
		}
	}
	return append(ss, s)
}

// Build expands every registration into its full ancestor-inclusive lookup
// table: a concrete class name resolves to its own listener if registered,
// else to the first registered ancestor's listener found by a depth-first
// walk of the declared Extends graph (parents in declared order), falling
// back to defaultAncestry for
// any standard ActivityStreams type whose ancestry was never explicitly
// declared.
func (b *Builder) Build() *Registry {
	resolved := make(map[string]fedicore.Listener, len(b.direct))
	for class := range unionKeys(b.direct, b.edges, defaultAncestry) {
		if l, ok := b.resolve(class, make(map[string]bool)); ok {
			resolved[class] = l
		}
	}
	return &Registry{byClass: resolved}
}

func (b *Builder) resolve(class string, seen map[string]bool) (fedicore.Listener, bool) {
	if seen[class] {
		return nil, false
	}
	seen[class] = true
	if l, ok := b.direct[class]; ok {
		return l, true
	}
	for _, parent := range b.ancestorsOf(class) {
		if l, ok := b.resolve(parent, seen); ok {
			return l, true
		}
	}
	return nil, false
}

// ancestorsOf returns class's immediate declared parents, preferring an
// explicit Register-time declaration over the built-in AS2 default.
func (b *Builder) ancestorsOf(class string) []string {
	if edges, ok := b.edges[class]; ok {
		return edges
	}
	return defaultAncestry[class]
}

func unionKeys(a map[string]fedicore.Listener, bs ...map[string][]string) map[string]bool {
	out := make(map[string]bool, len(a))
	for k := range a {
		out[k] = true
	}
	for _, b := range bs {
		for k := range b {
			out[k] = true
		}
	}
	return out
}

// Registry is the precomputed, read-only class-to-listener lookup table a
// Builder produces. It implements fedicore.ListenerResolver.
type Registry struct {
	byClass map[string]fedicore.Listener
}

// Resolve looks up the listener registered for activity's most specific
// class, or any registered ancestor of it.
func (reg *Registry) Resolve(activity vocab.Type) (fedicore.Listener, bool) {
	if activity == nil {
		return nil, false
	}
	l, ok := reg.byClass[activity.GetTypeName()]
	return l, ok
}

// String renders class name for diagnostics.
func (c Class) String() string {
	return fmt.Sprintf("Class(%s)", c.Name)
}
