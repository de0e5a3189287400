package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

// queryREPL is a line-edited read-eval-print loop for ad hoc queries
// against an open store, mirroring the teacher's own terminal front end:
// a [liner.State] for history and line editing, one verb per input line.
type queryREPL struct {
	store *docstore.Store
	io    *IO
	typ   string
	liner *liner.State
}

func runQueryREPL(_ context.Context, o *IO, cfgPath, rootOverride string) error {
	store, err := openStoreForCommand(cfgPath, rootOverride)
	if err != nil {
		return err
	}
	defer store.Close()

	r := &queryREPL{store: store, io: o}

	return r.run()
}

func replHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".docstore_history")
}

func (r *queryREPL) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(replHistoryFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}

	r.io.Println("docstore query REPL. Type 'help' for commands, 'exit' to quit.")

	for {
		prompt := "docstore> "
		if r.typ != "" {
			prompt = r.typ + "> "
		}

		line, err := r.liner.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				r.io.Println()
				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		if r.dispatch(line) {
			break
		}
	}

	r.saveHistory()

	return nil
}

func (r *queryREPL) saveHistory() {
	path := replHistoryFile()
	if path == "" {
		return
	}

	if f, err := os.Create(path); err == nil {
		_, _ = r.liner.WriteHistory(f)
		_ = f.Close()
	}
}

// dispatch runs one REPL line and reports whether the loop should exit.
func (r *queryREPL) dispatch(line string) bool {
	parts := strings.SplitN(line, " ", 2)
	verb := strings.ToLower(parts[0])

	rest := ""
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}

	switch verb {
	case "exit", "quit", "q":
		return true
	case "help", "?":
		r.printHelp()
	case "use":
		r.typ = rest
		r.io.Println("using type:", r.typ)
	case "find", "query":
		r.cmdFind(rest)
	case "get":
		r.cmdGet(rest)
	case "list", "ls":
		r.cmdList()
	case "stats":
		r.cmdStats()
	default:
		r.io.ErrPrintln("unknown command:", verb, "(type 'help' for commands)")
	}

	return false
}

func (r *queryREPL) printHelp() {
	r.io.Println(`Commands:
  use <type>              Set the working type for find/list/stats
  find <jwcc filter>      Query the working type (default {} = all)
  get <id>                Print one document by id
  list                    List ids of the working type
  stats                   Document count and total bytes for the working type
  help                    Show this help
  exit                    Quit`)
}

func (r *queryREPL) cmdFind(filterLiteral string) {
	if r.typ == "" {
		r.io.ErrPrintln("no type selected; run 'use <type>' first")
		return
	}

	if filterLiteral == "" {
		filterLiteral = "{}"
	}

	filter, err := parseJSONCObject(filterLiteral)
	if err != nil {
		r.io.ErrPrintln("error:", err)
		return
	}

	docs, err := r.store.Query(r.typ, docstore.QueryOptions{Filter: filter})
	if err != nil {
		r.io.ErrPrintln("error:", err)
		return
	}

	r.io.Println(renderDocTable(docs))
	r.io.Printf("%d result(s)\n", len(docs))
}

func (r *queryREPL) cmdGet(id string) {
	if r.typ == "" {
		r.io.ErrPrintln("no type selected; run 'use <type>' first")
		return
	}

	if id == "" {
		r.io.ErrPrintln("usage: get <id>")
		return
	}

	doc, err := r.store.Get(docstore.Key{Type: r.typ, ID: id})
	if err != nil {
		r.io.ErrPrintln("error:", err)
		return
	}

	if doc == nil {
		r.io.ErrPrintln("not found:", r.typ+"/"+id)
		return
	}

	_ = printJSON(r.io, doc)
}

func (r *queryREPL) cmdList() {
	if r.typ == "" {
		r.io.ErrPrintln("no type selected; run 'use <type>' first")
		return
	}

	ids, err := r.store.List(r.typ)
	if err != nil {
		r.io.ErrPrintln("error:", err)
		return
	}

	for _, id := range ids {
		r.io.Println(id)
	}
}

func (r *queryREPL) cmdStats() {
	if r.typ == "" {
		r.io.ErrPrintln("no type selected; run 'use <type>' first")
		return
	}

	st, err := r.store.Stats(r.typ)
	if err != nil {
		r.io.ErrPrintln("error:", err)
		return
	}

	r.io.Println("count:", st.Count, "bytes:", st.TotalBytes)
}

// completer provides tab completion over REPL verbs for [liner.State].
func (r *queryREPL) completer(line string) []string {
	verbs := []string{"use", "find", "query", "get", "list", "stats", "help", "exit"}

	var out []string

	for _, v := range verbs {
		if strings.HasPrefix(v, line) {
			out = append(out, v)
		}
	}

	return out
}
