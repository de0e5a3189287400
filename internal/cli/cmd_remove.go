package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

// RemoveCmd returns the remove command.
func RemoveCmd(cfgPath *string, rootOverride *string) *Command {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "remove <type> <id>",
		Short: "Delete a document (idempotent)",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 2 {
				return errors.New("usage: docstore remove <type> <id>")
			}

			return execRemove(o, *cfgPath, *rootOverride, args[0], args[1])
		},
	}
}

func execRemove(o *IO, cfgPath, rootOverride, typ, id string) error {
	store, err := openStoreForCommand(cfgPath, rootOverride)
	if err != nil {
		return err
	}
	defer store.Close()

	key := docstore.Key{Type: typ, ID: id}
	if err := store.Remove(key); err != nil {
		return err
	}

	o.Println("removed", key.String())

	return nil
}
