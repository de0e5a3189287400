package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
)

// Run is the main entry point. Returns the process exit code.
func Run(_ io.Reader, out, errOut io.Writer, args []string) int {
	globalFlags := flag.NewFlagSet("docstore", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.Usage = func() {}
	globalFlags.SetOutput(&strings.Builder{})

	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagRoot := globalFlags.StringP("root", "r", "", "Store root directory (overrides config file)")
	flagConfig := globalFlags.StringP("config", "c", "", "Use specified config `file` (JWCC)")

	if err := globalFlags.Parse(args[1:]); err != nil {
		fprintln(errOut, "error:", err)
		printGlobalOptions(errOut)

		return exitInvalidArgs
	}

	commands := allCommands(flagConfig, flagRoot)

	commandMap := make(map[string]*Command, len(commands))
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
	}

	commandAndArgs := globalFlags.Args()

	if *flagHelp || (len(commandAndArgs) == 0 && globalFlags.NFlag() == 0) {
		printUsage(out, commands)
		return exitSuccess
	}

	if len(commandAndArgs) == 0 {
		fprintln(errOut, "error: no command provided")
		printUsage(errOut, commands)

		return exitInvalidArgs
	}

	cmdName := commandAndArgs[0]

	cmd, ok := commandMap[cmdName]
	if !ok {
		fprintln(errOut, "error: unknown command:", cmdName)
		printUsage(errOut, commands)

		return exitInvalidArgs
	}

	cmdIO := NewIO(out, errOut)

	exitCode := cmd.Run(context.Background(), cmdIO, commandAndArgs[1:])
	if exitCode != exitSuccess {
		return exitCode
	}

	return cmdIO.Finish()
}

// allCommands returns every command in display order. cfgPath/rootOverride
// are pointers into the global flag set so each command's closures observe
// whatever value was parsed, regardless of command construction order.
func allCommands(cfgPath, rootOverride *string) []*Command {
	return []*Command{
		PutCmd(cfgPath, rootOverride),
		GetCmd(cfgPath, rootOverride),
		RemoveCmd(cfgPath, rootOverride),
		ListCmd(cfgPath, rootOverride),
		QueryCmd(cfgPath, rootOverride),
		EnsureIndexCmd(cfgPath, rootOverride),
		RebuildIndexesCmd(cfgPath, rootOverride),
		ListIndexesCmd(cfgPath, rootOverride),
		RemoveIndexCmd(cfgPath, rootOverride),
		FormatCmd(cfgPath, rootOverride),
		StatsCmd(cfgPath, rootOverride),
		ReadAttachmentCmd(cfgPath, rootOverride),
		WriteAttachmentCmd(cfgPath, rootOverride),
		ClaimSlugCmd(cfgPath, rootOverride),
		ResolveSlugCmd(cfgPath, rootOverride),
		ClaimAliasCmd(cfgPath, rootOverride),
		ResolveAliasCmd(cfgPath, rootOverride),
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

const globalOptionsHelp = `  -h, --help             Show help
  -r, --root <dir>       Store root directory (overrides config file)
  -c, --config <file>    Use specified config file (JWCC)`

func printGlobalOptions(w io.Writer) {
	fprintln(w, "Usage: docstore [flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Global flags:")
	fprintln(w, globalOptionsHelp)
	fprintln(w)
	fprintln(w, "Run 'docstore --help' for a list of commands.")
}

func printUsage(w io.Writer, commands []*Command) {
	fprintln(w, "docstore - a file-backed, human-readable document store")
	fprintln(w)
	fprintln(w, "Usage: docstore [flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Flags:")
	fprintln(w, globalOptionsHelp)
	fprintln(w)
	fprintln(w, "Commands:")

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}

	fprintln(w)
	fprintln(w, "Config file: ./"+defaultConfigName+" (JWCC; \"root\" is the only required key)")
}
