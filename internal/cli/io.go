package cli

import (
	"fmt"
	"io"
)

// warning is a problem the command worked around, with what to do about it.
type warning struct {
	issue  string
	action string
}

func (w warning) String() string {
	return w.issue + ": " + w.action
}

// IO is the output of one command run.
//
// Content problems do not stop queries: the command prints what it has and
// records a warning. Pending warnings go to stderr right before the first
// stdout write and again from Finish, so they survive both head and tail of
// piped output. Any warning makes the exit code 1.
type IO struct {
	out    io.Writer
	errOut io.Writer

	warnings []warning
	shown    int // warnings already printed ahead of stdout
}

// NewIO returns an IO writing to out and errOut.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn records a warning. action tells the user how to follow up.
func (o *IO) Warn(issue, action string) {
	o.warnings = append(o.warnings, warning{issue: issue, action: action})
}

// Out returns stdout for streaming encoders, printing pending warnings first.
func (o *IO) Out() io.Writer {
	o.showPending()

	return o.out
}

// Println writes a line to stdout.
func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.Out(), a...)
}

// Printf writes to stdout.
func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.Out(), format, a...)
}

// ErrPrintln writes a line to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish repeats every warning on stderr and returns the exit code: 1 when
// there were warnings, 0 otherwise.
func (o *IO) Finish() int {
	o.showPending()

	if len(o.warnings) == 0 {
		return 0
	}

	o.printWarnings(o.warnings)

	return 1
}

// drainWarnings prints pending warnings once and forgets all of them. The
// shell calls it after every line so one bad query does not taint the next.
func (o *IO) drainWarnings() {
	o.showPending()
	o.warnings = nil
	o.shown = 0
}

func (o *IO) showPending() {
	if o.shown < len(o.warnings) {
		o.printWarnings(o.warnings[o.shown:])
		o.shown = len(o.warnings)
	}
}

func (o *IO) printWarnings(ws []warning) {
	for _, w := range ws {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}
}
