// Command docstore is a thin collaborator CLI over pkg/docstore: the
// "command-line front-end" spec.md §1 names as an external consumer of the
// core's public surface, not part of the core itself.
package main

import (
	"os"

	"github.com/calvinalkan/jsonstore/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args))
}
