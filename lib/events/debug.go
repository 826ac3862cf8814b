// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package events

import (
	"os"
	"strings"

	"github.com/landrop/landrop/lib/logger"
)

var dl = logger.DefaultLogger.NewFacility("events", "Event generation and logging")

func init() {
	dl.SetDebug("events", strings.Contains(os.Getenv("LDTRACE"), "events") || os.Getenv("LDTRACE") == "all")
}
