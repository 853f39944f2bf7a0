package cli_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/calvinalkan/sitecontent/internal/cli"
)

func Test_IO_Prints_Warnings_Before_And_After_Output_When_Warned(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	o := cli.NewIO(&stdout, &stderr)
	o.Warn("2 content problem(s)", "run check")
	o.Println("ann")
	o.Println("bob")

	if got, want := o.Finish(), 1; got != want {
		t.Errorf("Finish()=%d, want=%d", got, want)
	}

	if got, want := stdout.String(), "ann\nbob\n"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	if got, want := strings.Count(stderr.String(), "warning: 2 content problem(s): run check\n"), 2; got != want {
		t.Errorf("warning printed %d times, want %d\nstderr: %s", got, want, stderr.String())
	}
}

func Test_IO_Prints_Late_Warning_Once_Up_Front_When_Output_Already_Started(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	o := cli.NewIO(&stdout, &stderr)
	o.Println("first")
	o.Warn("late", "look")
	o.Printf("%s\n", "second")
	o.Finish()

	if got, want := stderr.String(), "warning: late: look\nwarning: late: look\n"; got != want {
		t.Errorf("stderr=%q, want=%q", got, want)
	}
}

func Test_IO_Finish_Returns_Zero_When_No_Warnings(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	o := cli.NewIO(&stdout, &stderr)
	o.Println("ok")

	if got, want := o.Finish(), 0; got != want {
		t.Errorf("Finish()=%d, want=%d", got, want)
	}

	if got, want := stderr.String(), ""; got != want {
		t.Errorf("stderr=%q, want=%q", got, want)
	}
}
