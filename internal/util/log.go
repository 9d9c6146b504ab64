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

// Package util holds process-wide logging plumbing shared by the dispatch
// core. It is kept tiny and unexported-facing on purpose: the root fedicore
// package imports it, and it imports nothing from this module.
package util

import (
	"os"

	"github.com/google/logger"
)

var (
	// InfoLogger and ErrorLogger are package-wide loggers, matching the
	// teacher framework's habit of a single pair of globals rather than a
	// logger threaded through every call.
	InfoLogger  *logger.Logger = logger.Init("fedicore", false, false, os.Stdout)
	ErrorLogger *logger.Logger = logger.Init("fedicore", false, false, os.Stderr)
)
