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

// Command example wires the fedicore dispatch core onto a gorilla/mux
// server the way an embedding application would: a handle resolver backed
// by an in-memory actor table, an in-memory idempotency store, and a
// listener registered for Create activities.
package main

import (
	"context"
	"crypto"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"github.com/go-fed/activity/pub"
	"github.com/go-fed/activity/streams"
	"github.com/go-fed/activity/streams/vocab"

	"github.com/go-fed/fedicore"
	"github.com/go-fed/fedicore/config"
	"github.com/go-fed/fedicore/idempotency"
	"github.com/go-fed/fedicore/listener"
	"github.com/go-fed/fedicore/router"
)

// noopSignatureVerifier accepts every request unsigned by reporting a
// placeholder key for it; a real deployment would wire in
// sigverify.Verifier with a KeyFetcher backed by its actor storage instead.
type noopSignatureVerifier struct{}

func (noopSignatureVerifier) Verify(r *http.Request, window time.Duration) (crypto.PublicKey, string, error) {
	return struct{}{}, "", nil
}

type actorTable struct {
	byHandle map[string]vocab.Type
}

func (t *actorTable) resolve(c context.Context, handle string) (vocab.Type, error) {
	a, ok := t.byHandle[handle]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func knownActorIRI(scheme, host, handle string) (*url.URL, error) {
	return url.Parse(fmt.Sprintf("%s://%s/users/%s", scheme, host, handle))
}

func newDemoActor(scheme, host, handle string) vocab.Type {
	p := streams.NewActivityStreamsPerson()

	idProp := streams.NewActivityStreamsIdProperty()
	idURL, err := knownActorIRI(scheme, host, handle)
	if err != nil {
		log.Fatalf("building demo actor %q: %v", handle, err)
	}
	idProp.SetIRI(idURL)
	p.SetActivityStreamsId(idProp)

	nameProp := streams.NewActivityStreamsNameProperty()
	nameProp.AppendXMLSchemaString(handle)
	p.SetActivityStreamsName(nameProp)

	return p
}

func main() {
	configPath := flag.String("config", "", "path to an ini config file; defaults baked in if omitted")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}
	if cfg.ServerSection.Host == "" {
		cfg.ServerSection.Host = "localhost:8080"
	}
	if cfg.ServerSection.Scheme == "" {
		cfg.ServerSection.Scheme = "http"
	}

	actors := &actorTable{byHandle: map[string]vocab.Type{
		"alice": newDemoActor(cfg.ServerSection.Scheme, cfg.ServerSection.Host, "alice"),
	}}

	listeners := listener.NewBuilder().
		Register(listener.Class{Name: "Create"}, func(c context.Context, activity vocab.Type) error {
			id, err := pub.GetId(activity)
			if err != nil {
				return err
			}
			log.Printf("received Create activity %v", id)
			return nil
		}).
		Build()

	store := idempotency.NewMemory()

	inboxHandlers := &fedicore.InboxHandlers{
		ActorDispatch: actors.resolve,
		NotFound:      http.NotFoundHandler(),
		Signatures:    noopSignatureVerifier{},
		Store:         store,
		KeyPrefix:     cfg.IdempotencySection.KeyPrefix,
		TTL:           cfg.IdempotencyTTL(),
		KeyOwnership: func(c context.Context, activity vocab.Type, key crypto.PublicKey, keyOwnerID string) (bool, error) {
			return true, nil
		},
		Listeners: listeners,
		OnError: func(c context.Context, err error) {
			log.Printf("inbox error: %v", err)
		},
	}

	res := router.Resolvers{ResolveHandle: actors.resolve}
	fb := fedicore.Fallbacks{
		NotFound:      http.NotFoundHandler(),
		NotAcceptable: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotAcceptable) }),
		Unauthorized:  http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) }),
	}

	m := mux.NewRouter()
	router.RegisterActor(m, "/users/{handle}", res, actors.resolve, nil, fb)
	router.RegisterInbox(m, "/users/{handle}/inbox", res, inboxHandlers)
	router.RegisterSharedInbox(m, "/inbox", res, inboxHandlers)

	log.Printf("serving on %s", cfg.ServerSection.Host)
	log.Fatal(http.ListenAndServe(cfg.ServerSection.Host, m))
}
