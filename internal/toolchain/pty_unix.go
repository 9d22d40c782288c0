// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package toolchain

import (
	"os/exec"

	"github.com/creack/pty"
)

// runPTY runs cmd attached to a new pseudo-terminal.
func runPTY(cmd *exec.Cmd, onLine func(string)) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer ptmx.Close()
	scanErr := scanLines(ptmx, onLine)
	if err := cmd.Wait(); err != nil {
		return err
	}
	return scanErr
}
