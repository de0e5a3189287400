package cli

import (
	"fmt"
	"io"
)

// IO handles command output and collects non-fatal warnings (such as a
// corrupt document skipped during a list/scan) so they surface on stderr
// without interrupting the normal stdout stream.
type IO struct {
	out    io.Writer
	errOut io.Writer
	warned bool
}

// NewIO creates a new IO instance.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn records an actionable warning, printed on stderr immediately. Any
// call to Warn during a command's lifetime causes [IO.Finish] to report
// exit code 1 unless the command already failed outright.
func (o *IO) Warn(format string, a ...any) {
	o.warned = true
	_, _ = fmt.Fprintf(o.errOut, "warning: "+format+"\n", a...)
}

// Println writes to stdout.
func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout.
func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish returns the exit code implied by any warnings collected during the
// command (1 if there were any, 0 otherwise). Callers that already have a
// more specific exit code from a returned error should prefer that instead.
func (o *IO) Finish() int {
	if o.warned {
		return exitGeneric
	}

	return exitSuccess
}
