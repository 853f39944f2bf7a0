// Package cli implements the sitecontent command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/sitecontent/internal/config"
	"github.com/calvinalkan/sitecontent/internal/logging"
)

const progName = "sitecontent"

var (
	errUsage          = errors.New("invalid usage")
	errUnknownCommand = errors.New("unknown command")
)

// globalFlags holds the options accepted before the command name.
type globalFlags struct {
	set        *flag.FlagSet
	workDir    *string
	configPath *string
	contentDir *string
	logLevel   *string
	verbose    *bool
	help       *bool
}

func newGlobalFlags() *globalFlags {
	set := flag.NewFlagSet(progName, flag.ContinueOnError)
	set.SetInterspersed(false)
	set.SetOutput(&strings.Builder{}) // discard pflag output

	return &globalFlags{
		set:        set,
		workDir:    set.StringP("cwd", "C", "", "Run as if started in `dir`"),
		configPath: set.StringP("config", "c", "", "Use specified config `file`"),
		contentDir: set.String("content-dir", "", "Override the content directory"),
		logLevel:   set.String("log-level", "", "Log level: debug, info, warn, error"),
		verbose:    set.BoolP("verbose", "v", false, "Debug logging in human-readable form"),
		help:       set.BoolP("help", "h", false, "Show help"),
	}
}

// Run is the main entry point. Returns exit code.
//
// sigCh, when non-nil, cancels the command context on the first signal;
// long-running commands (watch, shell) use it to shut down cleanly.
func Run(stdin io.Reader, out, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	flags := newGlobalFlags()

	if len(args) > 0 {
		args = args[1:]
	}

	err := flags.set.Parse(args)
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, flags, nil)

		return 1
	}

	rest := flags.set.Args()

	if *flags.help || len(rest) == 0 {
		printUsage(out, flags, newApp(&config.Config{}, nil, stdin, env).commands())

		return 0
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride:    *flags.workDir,
		ConfigPath:         *flags.configPath,
		ContentDirOverride: *flags.contentDir,
		LogLevelOverride:   *flags.logLevel,
		Env:                env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	level := cfg.LogLevel
	if *flags.verbose {
		level = "debug"
	}

	log, err := logging.New(errOut, level, *flags.verbose)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	a := newApp(&cfg, log, stdin, env)
	commands := a.commands()

	cmd, ok := findCommand(commands, rest[0])
	if !ok {
		fprintln(errOut, "error:", fmt.Errorf("%w: %s", errUnknownCommand, rest[0]))
		printUsage(errOut, flags, commands)

		return 1
	}

	o := NewIO(out, errOut)

	code := cmd.Run(ctx, o, rest[1:])
	if code != 0 {
		return code
	}

	return o.Finish()
}

func findCommand(commands []*Command, name string) (*Command, bool) {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd, true
		}
	}

	return nil, false
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, flags *globalFlags, commands []*Command) {
	fprintln(w, progName+" - validate, index and query site content")
	fprintln(w)
	fprintln(w, "Usage: "+progName+" [options] <command> [args]")
	fprintln(w)
	fprintln(w, "Options:")
	fprintln(w, strings.TrimRight(flags.set.FlagUsages(), "\n"))

	if len(commands) == 0 {
		return
	}

	fprintln(w)
	fprintln(w, "Commands:")

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}
}
