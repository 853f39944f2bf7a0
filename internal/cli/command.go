package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one sitecontent subcommand.
//
// Run parses Flags, checks the positional argument count against MinArgs and
// MaxArgs and only then calls Exec, so Exec can index args freely. Usage and
// argument errors go to stderr together with the usage line; stdout stays
// empty.
type Command struct {
	// Flags holds the command flags. Its name is unused; the command name is
	// the first word of Usage.
	Flags *flag.FlagSet

	// Usage follows the program name in help output, e.g. "get <kind> <id>".
	Usage string

	// Short is the line shown in the command listing.
	Short string

	// Long is shown by "<cmd> --help". Short is used when empty.
	Long string

	// MinArgs and MaxArgs bound the positional arguments. Both zero means
	// the command takes none.
	MinArgs int
	MaxArgs int

	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// argsUsage is the positional part of Usage, without the name and the
// trailing "[flags]".
func (c *Command) argsUsage() string {
	_, rest, _ := strings.Cut(c.Usage, " ")
	rest = strings.TrimSpace(strings.TrimSuffix(rest, "[flags]"))

	if rest == "" {
		return "no arguments"
	}

	return rest
}

// HelpLine is the command's row in the command listing.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-28s %s", c.Usage, c.Short)
}

// PrintHelp prints the output of "sitecontent <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage:", progName, c.Usage)
	o.Println()

	if c.Long != "" {
		o.Println(c.Long)
	} else {
		o.Println(c.Short)
	}

	if c.Flags == nil || !c.Flags.HasFlags() {
		return
	}

	var buf strings.Builder

	c.Flags.SetOutput(&buf)
	c.Flags.PrintDefaults()

	o.Println()
	o.Println("Flags:")
	o.Printf("%s", buf.String())
}

// Run executes the command with args (everything after the command name)
// and returns the exit code. Errors are printed here.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})

	err := c.Flags.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		c.PrintHelp(o)

		return 0
	}

	if err == nil {
		err = c.checkArgs(c.Flags.Args())
	}

	if err != nil {
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		o.ErrPrintln("Usage:", progName, c.Usage)
		o.ErrPrintln("Run '" + progName + " " + c.Name() + " --help' for details.")

		return 1
	}

	err = c.Exec(ctx, o, c.Flags.Args())
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return 0
}

func (c *Command) checkArgs(args []string) error {
	if len(args) < c.MinArgs || len(args) > max(c.MinArgs, c.MaxArgs) {
		return fmt.Errorf("%w: expected %s", errUsage, c.argsUsage())
	}

	return nil
}
