// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/fnlbuild/fnlbuild/cmd/fnlbuild"

func main() {
	cmd.Execute()
}
