package cli

import (
	"errors"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

// Exit codes follow spec.md §6's convention for collaborator CLIs: 0
// success, 1 generic/validation failure, 2 not-found, 3 invalid arguments.
// The core itself only distinguishes error Kinds (spec.md §7); mapping
// those onto a process exit code is this CLI's job, not the store's.
const (
	exitSuccess     = 0
	exitGeneric     = 1
	exitNotFound    = 2
	exitInvalidArgs = 3
)

// exitCodeFor maps a docstore error onto the exit codes above. A plain
// (non-docstore) error, for instance a flag validation failure raised by
// the command itself, is treated as invalid arguments.
func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}

	if errors.Is(err, docstore.ErrNotFound) {
		return exitNotFound
	}

	var dsErr *docstore.Error
	if errors.As(err, &dsErr) {
		return exitGeneric
	}

	return exitInvalidArgs
}
