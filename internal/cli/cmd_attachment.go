package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

// ReadAttachmentCmd returns the read-attachment command.
func ReadAttachmentCmd(cfgPath *string, rootOverride *string) *Command {
	fs := flag.NewFlagSet("read-attachment", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "read-attachment <type> <id> <name>",
		Short: "Print a sidecar markdown attachment",
		Long:  "Requires the store to be opened with sidecar mode enabled.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 3 {
				return errors.New("usage: docstore read-attachment <type> <id> <name>")
			}

			store, err := openStoreForCommand(*cfgPath, *rootOverride)
			if err != nil {
				return err
			}
			defer store.Close()

			content, err := store.ReadAttachment(docstore.Key{Type: args[0], ID: args[1]}, args[2])
			if err != nil {
				return err
			}

			o.Printf("%s", content)

			return nil
		},
	}
}

// WriteAttachmentCmd returns the write-attachment command.
func WriteAttachmentCmd(cfgPath *string, rootOverride *string) *Command {
	fs := flag.NewFlagSet("write-attachment", flag.ContinueOnError)
	file := fs.String("file", "", "Read the attachment body from `file` instead of stdin")

	return &Command{
		Flags: fs,
		Usage: "write-attachment <type> <id> <name> [flags]",
		Short: "Write a sidecar markdown attachment through a directory transaction",
		Long:  "Requires the store to be opened with sidecar mode enabled.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 3 {
				return errors.New("usage: docstore write-attachment <type> <id> <name> [flags]")
			}

			body, err := readBody("", *file)
			if err != nil {
				return err
			}

			store, err := openStoreForCommand(*cfgPath, *rootOverride)
			if err != nil {
				return err
			}
			defer store.Close()

			key := docstore.Key{Type: args[0], ID: args[1]}
			if err := store.WriteAttachment(key, args[2], body); err != nil {
				return err
			}

			o.Println("wrote", key.String()+"/"+args[2])

			return nil
		},
	}
}
