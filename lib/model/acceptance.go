// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/landrop/landrop/lib/config"
	"github.com/landrop/landrop/lib/events"
)

const promptText = "Please choose: overwrite(o) | rename(r) | skip (s): "

var errNoFreeName = errors.New("no free rename candidate")

// resolveDest decides where an incoming item lands. It returns the
// destination path, whether the receiver must create it (only meaningful
// for directories), and false when the item is to be skipped.
//
// When the name collides with an existing entry the configured strategy
// applies; Ask consults the user through the prompt channel, once per
// conflict.
func (r *Receiver) resolveDest(name string, isDir bool) (string, bool, error) {
	dir := r.dir()
	candidate := filepath.Join(dir, name)

	if !exists(candidate) {
		return candidate, isDir, nil
	}

	strategy := r.cfg.Overwrite
	for {
		switch strategy {
		case config.Ask:
			r.prompts <- promptText
			answer, ok := <-r.replies
			if !ok {
				return "", false, errors.New("prompt reply channel closed")
			}
			chosen, err := config.ParseStrategy(answer)
			if err != nil || chosen == config.Ask {
				// Not a recognizable choice; ask again.
				continue
			}
			strategy = chosen
			l.Debugln("conflict on", candidate, "resolved as", strategy)

		case config.Overwrite:
			return candidate, false, nil

		case config.Rename:
			renamed, err := freeName(dir, name)
			if err != nil {
				return "", false, err
			}
			kind := "file"
			if isDir {
				kind = "directory"
			}
			r.evLogger.Log(events.Status, fmt.Sprintf("Renamed %s to %s", kind, filepath.Base(renamed)))
			return renamed, true, nil

		case config.Skip:
			return "", false, nil
		}
	}
}

// freeName returns the first unused "<i>_<name>" in dir, with i counting
// up from zero.
func freeName(dir, name string) (string, error) {
	for i := 0; i <= math.MaxUint16; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%d_%s", i, name))
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return "", errNoFreeName
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
