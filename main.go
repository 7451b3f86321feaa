// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/nspatcher/nspatcher/cmd/nspatcher"

func main() {
	cmd.Execute()
}
