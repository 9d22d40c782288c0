// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"syscall"
)

// Win32 codes for handle exhaustion, a vanished watched directory and a
// failed notification buffer allocation.
var brokenErrnos = []syscall.Errno{4, 6, 8}

// brokenWatcher reports errors after which ReadDirectoryChangesW stops
// delivering events.
func brokenWatcher(err error) bool {
	for _, errno := range brokenErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
