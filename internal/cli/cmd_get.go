package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

// GetCmd returns the get command.
func GetCmd(cfgPath *string, rootOverride *string) *Command {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "get <type> <id>",
		Short: "Print a document as JSON",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 2 {
				return errors.New("usage: docstore get <type> <id>")
			}

			return execGet(o, *cfgPath, *rootOverride, args[0], args[1])
		},
	}
}

func execGet(o *IO, cfgPath, rootOverride, typ, id string) error {
	store, err := openStoreForCommand(cfgPath, rootOverride)
	if err != nil {
		return err
	}
	defer store.Close()

	doc, err := store.Get(docstore.Key{Type: typ, ID: id})
	if err != nil {
		return err
	}

	if doc == nil {
		return docstore.ErrNotFound
	}

	return printJSON(o, doc)
}
