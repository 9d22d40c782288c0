// SPDX-License-Identifier: MPL-2.0

//go:build windows

package toolchain

import "os/exec"

// runPTY falls back to pipes; pseudo-terminals are not supported here.
func runPTY(cmd *exec.Cmd, onLine func(string)) error {
	return runPiped(cmd, onLine)
}
