package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"
)

// EnsureIndexCmd returns the ensure-index command.
func EnsureIndexCmd(cfgPath *string, rootOverride *string) *Command {
	fs := flag.NewFlagSet("ensure-index", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "ensure-index <type> <field>",
		Short: "Build (or rebuild) an equality index and start maintaining it",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 2 {
				return errors.New("usage: docstore ensure-index <type> <field>")
			}

			store, err := openStoreForCommand(*cfgPath, *rootOverride)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.EnsureIndex(args[0], args[1]); err != nil {
				return err
			}

			o.Println("indexed", args[0]+"."+args[1])

			return nil
		},
	}
}

// RebuildIndexesCmd returns the rebuild-indexes command.
func RebuildIndexesCmd(cfgPath *string, rootOverride *string) *Command {
	fs := flag.NewFlagSet("rebuild-indexes", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "rebuild-indexes <type> [field ...]",
		Short: "Rebuild every tracked index for a type, or only the given fields",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return errors.New("usage: docstore rebuild-indexes <type> [field ...]")
			}

			store, err := openStoreForCommand(*cfgPath, *rootOverride)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.RebuildIndexes(args[0], args[1:]...); err != nil {
				return err
			}

			o.Println("rebuilt indexes for", args[0])

			return nil
		},
	}
}

// ListIndexesCmd returns the list-indexes command.
func ListIndexesCmd(cfgPath *string, rootOverride *string) *Command {
	fs := flag.NewFlagSet("list-indexes", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "list-indexes <type>",
		Short: "List the fields indexed for a type",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("usage: docstore list-indexes <type>")
			}

			store, err := openStoreForCommand(*cfgPath, *rootOverride)
			if err != nil {
				return err
			}
			defer store.Close()

			fields, err := store.ListIndexes(args[0])
			if err != nil {
				return err
			}

			for _, f := range fields {
				o.Println(f)
			}

			return nil
		},
	}
}

// RemoveIndexCmd returns the remove-index command.
func RemoveIndexCmd(cfgPath *string, rootOverride *string) *Command {
	fs := flag.NewFlagSet("remove-index", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "remove-index <type> <field>",
		Short: "Delete an on-disk index and stop maintaining it",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 2 {
				return errors.New("usage: docstore remove-index <type> <field>")
			}

			store, err := openStoreForCommand(*cfgPath, *rootOverride)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.RemoveIndex(args[0], args[1]); err != nil {
				return err
			}

			o.Println("removed index", args[0]+"."+args[1])

			return nil
		},
	}
}
