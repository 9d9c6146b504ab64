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

// Package sigverify adapts github.com/go-fed/httpsig's request verifier to
// the fedicore.SignatureVerifier collaborator interface, closing the one
// gap httpsig itself leaves open: a signature time window.
package sigverify

import (
	"crypto"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-fed/httpsig"
)

// KeyFetcher resolves a keyId (the "keyId" parameter of the Signature
// header) to the public key it names and the IRI identifying its owner.
type KeyFetcher func(keyID string) (crypto.PublicKey, string, error)

// Verifier implements fedicore.SignatureVerifier by wrapping
// httpsig.NewVerifier, fetching the named key via FetchKey, and enforcing
// that the signed Date header falls within the caller's requested window.
type Verifier struct {
	FetchKey KeyFetcher
}

// New returns a Verifier backed by fetchKey.
func New(fetchKey KeyFetcher) *Verifier {
	return &Verifier{FetchKey: fetchKey}
}

// Verify matches ap/util.go's verifyHttpSignatures shape: build an
// httpsig.Verifier over r, resolve its KeyId via FetchKey, then Verify the
// signature with every algorithm this server accepts until one succeeds.
func (v *Verifier) Verify(r *http.Request, window time.Duration) (crypto.PublicKey, string, error) {
	if v.FetchKey == nil {
		return nil, "", errors.New("sigverify: no KeyFetcher configured")
	}

	verifier, err := httpsig.NewVerifier(r)
	if err != nil {
		return nil, "", fmt.Errorf("sigverify: no signature present: %w", err)
	}

	if err := checkDateWindow(r, window); err != nil {
		return nil, "", err
	}

	keyID := verifier.KeyId()
	pubKey, ownerID, err := v.FetchKey(keyID)
	if err != nil {
		return nil, "", fmt.Errorf("sigverify: fetching key %q: %w", keyID, err)
	}

	var verifyErr error
	for _, algo := range []httpsig.Algorithm{httpsig.RSA_SHA256, httpsig.ED25519} {
		if err := verifier.Verify(pubKey, algo); err == nil {
			return pubKey, ownerID, nil
		} else {
			verifyErr = err
		}
	}
	return nil, "", fmt.Errorf("sigverify: signature did not verify under any accepted algorithm: %w", verifyErr)
}

func checkDateWindow(r *http.Request, window time.Duration) error {
	if window <= 0 {
		return nil
	}
	dateHeader := r.Header.Get("Date")
	if dateHeader == "" {
		return errors.New("sigverify: no Date header to check against the signature window")
	}
	signedAt, err := http.ParseTime(dateHeader)
	if err != nil {
		return fmt.Errorf("sigverify: unparseable Date header: %w", err)
	}
	if delta := time.Since(signedAt); delta > window || delta < -window {
		return fmt.Errorf("sigverify: Date header %s is outside the %s signature window", dateHeader, window)
	}
	return nil
}
