package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"
)

// ListCmd returns the list command.
func ListCmd(cfgPath *string, rootOverride *string) *Command {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "list <type>",
		Short: "List a type's document ids, sorted",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("usage: docstore list <type>")
			}

			return execList(o, *cfgPath, *rootOverride, args[0])
		},
	}
}

func execList(o *IO, cfgPath, rootOverride, typ string) error {
	store, err := openStoreForCommand(cfgPath, rootOverride)
	if err != nil {
		return err
	}
	defer store.Close()

	ids, err := store.List(typ)
	if err != nil {
		return err
	}

	for _, id := range ids {
		o.Println(id)
	}

	return nil
}
