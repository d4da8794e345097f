// Command pyenv is a shell-agnostic environment-modules manager: it
// maintains a set of loaded modules inside the calling shell by
// emitting a script of shell commands on stdout for that shell to
// eval. See cmd.Execute for the dispatch logic.
package main

import "pyenv/cmd"

func main() {
	cmd.Execute()
}
