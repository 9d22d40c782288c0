// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"fmt"

	"mvdan.cc/sh/v3/shell"
)

// SplitCommand splits a configured command line into words using shell
// quoting rules. Variable references are expanded from env.
func SplitCommand(line string, env []string) ([]string, error) {
	words, err := shell.Fields(line, func(name string) string {
		v, _ := Lookup(env, name)
		return v
	})
	if err != nil {
		return nil, fmt.Errorf("parsing command %q: %w", line, err)
	}
	if len(words) == 0 {
		return nil, ErrEmptyCommand
	}
	return words, nil
}
