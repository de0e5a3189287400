package cli

import (
	"context"
	"sort"

	flag "github.com/spf13/pflag"
)

// StatsCmd returns the stats command.
func StatsCmd(cfgPath *string, rootOverride *string) *Command {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	typ := fs.String("type", "", "Restrict to one type (default: the whole store)")
	detailed := fs.Bool("detailed", false, "Include size distribution and a per-type breakdown")

	return &Command{
		Flags: fs,
		Usage: "stats [flags]",
		Short: "Document count and total on-disk size",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return execStats(o, *cfgPath, *rootOverride, *typ, *detailed)
		},
	}
}

func execStats(o *IO, cfgPath, rootOverride, typ string, detailed bool) error {
	store, err := openStoreForCommand(cfgPath, rootOverride)
	if err != nil {
		return err
	}
	defer store.Close()

	if !detailed {
		st, err := store.Stats(typ)
		if err != nil {
			return err
		}

		o.Printf("count: %d\nbytes: %d\n", st.Count, st.TotalBytes)

		return nil
	}

	det, err := store.DetailedStats(typ)
	if err != nil {
		return err
	}

	o.Printf("count:    %d\nbytes:    %d\nmin:      %d\nmax:      %d\navg:      %.1f\n",
		det.Count, det.TotalBytes, det.MinBytes, det.MaxBytes, det.AvgBytes)

	types := make([]string, 0, len(det.PerType))
	for t := range det.PerType {
		types = append(types, t)
	}

	sort.Strings(types)

	if len(types) > 0 {
		o.Println("per-type:")

		for _, t := range types {
			o.Printf("  %s: %d\n", t, det.PerType[t])
		}
	}

	return nil
}
