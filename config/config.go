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

// Package config loads the fedicore server's ini-backed configuration,
// following the teacher's config.go struct-tag idiom.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// ServerSection configures the server's own identity.
type ServerSection struct {
	Host   string `ini:"host" comment:"Host this server is served at, e.g. example.com"`
	Scheme string `ini:"scheme" comment:"Scheme to use in federated IRIs: http or https"`
}

// SignatureSection configures HTTP-signature verification.
type SignatureSection struct {
	TimeWindowSeconds int `ini:"time_window_seconds" comment:"Maximum allowed clock skew, in seconds, between a request's signed Date header and now"`
}

// IdempotencySection configures the inbox replay-detection store.
type IdempotencySection struct {
	KeyPrefix  string `ini:"key_prefix" comment:"Prefix prepended to every idempotency key this server records"`
	TTLSeconds int    `ini:"ttl_seconds" comment:"How long an idempotency record is retained before it may be pruned"`
}

// CollectionSection holds collection paging defaults. The core responders
// do not read these values; page contents come from each collection's
// dispatcher.
type CollectionSection struct {
	DefaultPageSize int `ini:"default_page_size" comment:"Default number of items per collection page (not read by the core responders)"`
	MaxPageSize     int `ini:"max_page_size" comment:"Upper bound on items per collection page (not read by the core responders)"`
}

// Config is the full set of fedicore server configuration, loaded from and
// written to an ini file the same way the teacher's config.go does.
type Config struct {
	ServerSection      `ini:"server"`
	SignatureSection   `ini:"signature"`
	IdempotencySection `ini:"idempotency"`
	CollectionSection  `ini:"collection"`
}

// Default returns the configuration this server ships with before any file
// overrides it.
func Default() *Config {
	return &Config{
		ServerSection: ServerSection{
			Scheme: "https",
		},
		SignatureSection: SignatureSection{
			TimeWindowSeconds: 1800,
		},
		IdempotencySection: IdempotencySection{
			KeyPrefix:  "fedicore",
			TTLSeconds: 86400,
		},
		CollectionSection: CollectionSection{
			DefaultPageSize: 30,
			MaxPageSize:     200,
		},
	}
}

// LoadFile reads and parses the ini file at path into a Config seeded with
// Default's values.
func LoadFile(path string) (*Config, error) {
	c := Default()
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: loading %q: %w", path, err)
	}
	if err := f.MapTo(c); err != nil {
		return nil, fmt.Errorf("config: mapping %q: %w", path, err)
	}
	return c, nil
}

// Save writes c to the ini file at path, creating it if necessary.
func Save(c *Config, path string) error {
	f := ini.Empty()
	if err := ini.ReflectFrom(f, c); err != nil {
		return fmt.Errorf("config: reflecting config: %w", err)
	}
	return f.SaveTo(path)
}

// SignatureWindow is the SignatureSection's window as a time.Duration.
func (c *Config) SignatureWindow() time.Duration {
	return time.Duration(c.SignatureSection.TimeWindowSeconds) * time.Second
}

// IdempotencyTTL is the IdempotencySection's ttl as a time.Duration.
func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencySection.TTLSeconds) * time.Second
}
