package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

// PutCmd returns the put command.
func PutCmd(cfgPath *string, rootOverride *string) *Command {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	docLiteral := fs.String("doc", "", "Document body as a JWCC object literal (reads stdin if omitted)")
	file := fs.String("file", "", "Read the document body from `file` instead of stdin")

	return &Command{
		Flags: fs,
		Usage: "put <type> <id> [flags]",
		Short: "Create or update a document",
		Long: "Create or update the document at (type, id). The body is read from " +
			"--doc, --file, or stdin (in that order of precedence) and must be a " +
			"JSON or JWCC object; \"type\" and \"id\" fields are filled in from the " +
			"arguments if absent, and must match them if present.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 2 {
				return errors.New("usage: docstore put <type> <id> [flags]")
			}

			return execPut(o, *cfgPath, *rootOverride, args[0], args[1], *docLiteral, *file)
		},
	}
}

func execPut(o *IO, cfgPath, rootOverride, typ, id, docLiteral, file string) error {
	body, err := readBody(docLiteral, file)
	if err != nil {
		return err
	}

	doc, err := parseJSONCObject(body)
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	if existing, ok := doc["type"]; ok && existing != typ {
		return fmt.Errorf("document's \"type\" field (%v) does not match argument %q", existing, typ)
	}

	if existing, ok := doc["id"]; ok && existing != id {
		return fmt.Errorf("document's \"id\" field (%v) does not match argument %q", existing, id)
	}

	doc["type"] = typ
	doc["id"] = id

	store, err := openStoreForCommand(cfgPath, rootOverride)
	if err != nil {
		return err
	}
	defer store.Close()

	key := docstore.Key{Type: typ, ID: id}
	if err := store.Put(key, doc); err != nil {
		return err
	}

	o.Println("put", key.String())

	return nil
}

func readBody(literal, file string) (string, error) {
	if literal != "" {
		return literal, nil
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}

		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	return string(data), nil
}

func printJSON(o *IO, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	o.Println(string(data))

	return nil
}
