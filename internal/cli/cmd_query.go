package cli

import (
	"context"
	"fmt"
	"sort"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

// QueryCmd returns the query command.
func QueryCmd(cfgPath *string, rootOverride *string) *Command {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	typ := fs.String("type", "", "Restrict the query to one type (required unless --interactive)")
	filter := fs.String("filter", "{}", "Filter, as a JWCC object literal (MongoDB-style operators)")
	sortSpec := fs.String("sort", "", "Comma-separated sort fields; prefix with - for descending")
	selectSpec := fs.String("select", "", "Comma-separated projected fields (dotted paths allowed)")
	exclude := fs.Bool("exclude", false, "--select names fields to drop instead of keep")
	skip := fs.Int("skip", 0, "Number of matches to skip")
	limit := fs.Int("limit", 0, "Maximum matches to return (0 = unbounded)")
	jsonOut := fs.Bool("json", false, "Print full documents as a JSON array instead of a table")
	interactive := fs.Bool("interactive", false, "Start a line-edited REPL for ad hoc queries")

	return &Command{
		Flags: fs,
		Usage: "query [flags]",
		Short: "Filter, sort, paginate and project documents",
		Long: "Evaluate a MongoDB-style filter against a type's documents (or, with " +
			"--interactive, run a REPL against the open store). See the $eq/$ne/$in/" +
			"$nin/$gt/$gte/$lt/$lte/$exists/$type operators and $and/$or/$not combinators.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if *interactive {
				return runQueryREPL(ctx, o, *cfgPath, *rootOverride)
			}

			if *typ == "" {
				return fmt.Errorf("--type is required unless --interactive")
			}

			spec, err := buildQueryOptions(*filter, *sortSpec, *selectSpec, *exclude, *skip, *limit)
			if err != nil {
				return err
			}

			return execQuery(o, *cfgPath, *rootOverride, *typ, spec, *jsonOut)
		},
	}
}

func buildQueryOptions(filter, sortSpec, selectSpec string, exclude bool, skip, limit int) (docstore.QueryOptions, error) {
	f, err := parseJSONCObject(filter)
	if err != nil {
		return docstore.QueryOptions{}, fmt.Errorf("parse --filter: %w", err)
	}

	return docstore.QueryOptions{
		Filter:  f,
		Sort:    parseSort(sortSpec),
		Select:  parseSelect(selectSpec),
		Exclude: exclude,
		Skip:    skip,
		Limit:   limit,
	}, nil
}

func execQuery(o *IO, cfgPath, rootOverride, typ string, spec docstore.QueryOptions, jsonOut bool) error {
	store, err := openStoreForCommand(cfgPath, rootOverride)
	if err != nil {
		return err
	}
	defer store.Close()

	docs, err := store.Query(typ, spec)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(o, docs)
	}

	o.Println(renderDocTable(docs))
	o.Printf("%d result(s)\n", len(docs))

	return nil
}

// renderDocTable renders a result set as a table whose columns are the
// union of every top-level key across the documents, "id" and "type"
// pinned first.
func renderDocTable(docs []docstore.Doc) string {
	cols := docColumns(docs)
	t := newTable(cols...)

	for _, doc := range docs {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = fmt.Sprint(doc[c])
		}

		t.addRow(row...)
	}

	return t.render()
}

func docColumns(docs []docstore.Doc) []string {
	seen := map[string]bool{"type": true, "id": true}
	cols := []string{"type", "id"}

	for _, doc := range docs {
		keys := make([]string, 0, len(doc))
		for k := range doc {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}

	return cols
}
