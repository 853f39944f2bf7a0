package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Short: "Interactive query shell",
		Long: `Load the content once and read query commands (get, ls, tag, difficulty,
slug, check, export) line by line. All queries in a session see the same
snapshot until "reload" rebuilds it.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return runShell(ctx, o, a)
		},
	}
}

// prompter reads one line per call. Satisfied by *liner.State.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// lineReader is the prompter used when stdin is not an interactive terminal.
type lineReader struct {
	sc *bufio.Scanner
}

func (r *lineReader) Prompt(string) (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}

	if err := r.sc.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

func (*lineReader) AppendHistory(string) {}

func (*lineReader) Close() error { return nil }

// shellBuiltins are handled by the shell itself.
var shellBuiltins = []string{"help", "reload", "kinds", "exit", "quit"}

// shellExcluded are commands that make no sense inside the shell.
var shellExcluded = []string{"shell", "watch", "print-config"}

func runShell(ctx context.Context, o *IO, a *app) error {
	p, saveHistory := a.newPrompter()

	defer func() {
		saveHistory()

		_ = p.Close()
	}()

	_, err := a.query(o)
	if err != nil {
		return err
	}

	o.Println(progName + " shell - type 'help' for commands, 'exit' to quit")
	o.drainWarnings()

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := p.Prompt(progName + "> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p.AppendHistory(line)

		fields := strings.Fields(line)
		name, args := fields[0], fields[1:]

		switch name {
		case "exit", "quit", "q":
			return nil
		case "help", "?":
			printShellHelp(o, a)
		case "reload":
			report, res, rebuildErr := a.rebuild()
			if rebuildErr != nil {
				o.ErrPrintln("error:", rebuildErr)

				break
			}

			o.Println(summary(report, res))
		case "kinds":
			q := a.engine.Query()
			for _, kind := range q.Kinds() {
				o.Printf("%s\t%d\n", kind, q.Count(kind))
			}
		default:
			cmd, ok := findShellCommand(a, name)
			if !ok {
				o.ErrPrintln("unknown command:", name, "(type 'help' for commands)")

				break
			}

			cmd.Run(ctx, o, args)
		}

		o.drainWarnings()
	}
}

func findShellCommand(a *app, name string) (*Command, bool) {
	if slices.Contains(shellExcluded, name) {
		return nil, false
	}

	return findCommand(a.commands(), name)
}

func printShellHelp(o *IO, a *app) {
	o.Println("Commands:")

	for _, cmd := range a.commands() {
		if _, ok := findShellCommand(a, cmd.Name()); ok {
			o.Println(cmd.HelpLine())
		}
	}

	o.Printf("  %-28s %s\n", "reload", "Reload content from disk")
	o.Printf("  %-28s %s\n", "kinds", "Show record counts per kind")
	o.Printf("  %-28s %s\n", "help", "Show this help")
	o.Printf("  %-28s %s\n", "exit", "Leave the shell")
}

// historyFile returns the path of the shell history, or "" when HOME is
// unknown.
func (a *app) historyFile() string {
	home := a.env["HOME"]
	if home == "" {
		return ""
	}

	return filepath.Join(home, ".sitecontent_history")
}

// newPrompter returns a line-editing prompter on an interactive stdin and a
// plain line reader otherwise. The returned func persists history.
func (a *app) newPrompter() (prompter, func()) {
	if a.stdin == nil {
		return &lineReader{sc: bufio.NewScanner(strings.NewReader(""))}, func() {}
	}

	f, ok := a.stdin.(*os.File)
	if !ok || f != os.Stdin || !liner.TerminalSupported() {
		return &lineReader{sc: bufio.NewScanner(a.stdin)}, func() {}
	}

	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(a.complete)

	path := a.historyFile()
	if path != "" {
		if hf, err := os.Open(path); err == nil { //nolint:gosec // history file under HOME
			_, _ = state.ReadHistory(hf)
			_ = hf.Close()
		}
	}

	return state, func() {
		if path == "" {
			return
		}

		if hf, err := os.Create(path); err == nil { //nolint:gosec // history file under HOME
			_, _ = state.WriteHistory(hf)
			_ = hf.Close()
		}
	}
}

// complete provides tab completion for command names and kinds.
func (a *app) complete(line string) []string {
	fields := strings.Fields(line)

	if len(fields) <= 1 && !strings.HasSuffix(line, " ") {
		var out []string

		names := append([]string{}, shellBuiltins...)
		for _, cmd := range a.commands() {
			names = append(names, cmd.Name())
		}

		for _, n := range names {
			if !slices.Contains(shellExcluded, n) && strings.HasPrefix(n, line) {
				out = append(out, n)
			}
		}

		return out
	}

	// Complete the kind argument.
	prefix := ""
	if !strings.HasSuffix(line, " ") {
		prefix = fields[len(fields)-1]
		line = strings.TrimSuffix(line, prefix)
	}

	var out []string

	for _, k := range kindNames() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, line+k)
		}
	}

	return out
}
