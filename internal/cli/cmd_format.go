package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

// FormatCmd returns the format command.
func FormatCmd(cfgPath *string, rootOverride *string) *Command {
	fs := flag.NewFlagSet("format", flag.ContinueOnError)
	typ := fs.String("type", "", "Restrict to one type (default: every type)")
	id := fs.String("id", "", "Restrict to one document; requires --type")
	dryRun := fs.Bool("dry-run", false, "Report files that would change without writing them")
	failFast := fs.Bool("fail-fast", false, "Abort on the first error instead of collecting it")

	return &Command{
		Flags: fs,
		Usage: "format [flags]",
		Short: "Rewrite documents whose on-disk bytes aren't canonical",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return execFormat(o, *cfgPath, *rootOverride, *typ, *id, *dryRun, *failFast)
		},
	}
}

func execFormat(o *IO, cfgPath, rootOverride, typ, id string, dryRun, failFast bool) error {
	store, err := openStoreForCommand(cfgPath, rootOverride)
	if err != nil {
		return err
	}
	defer store.Close()

	target := docstore.FormatTarget{Type: typ}
	if id != "" {
		target.Key = &docstore.Key{Type: typ, ID: id}
	}

	result, err := store.Format(target, docstore.FormatOptions{DryRun: dryRun, FailFast: failFast})

	verb := "reformatted"
	if dryRun {
		verb = "would reformat"
	}

	o.Printf("%s %d file(s)\n", verb, result.Changed)

	for _, fErr := range result.Errors {
		o.Warn("%v", fErr)
	}

	return err
}
