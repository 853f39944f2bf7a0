package cli_test

import (
	"bytes"
	"testing"

	"github.com/calvinalkan/sitecontent/internal/cli"
)

// seedSite writes a small, valid site: two team members, two products in one
// array file and two blog posts (one nested).
func seedSite(c *cli.CLI) {
	c.WriteFile("team/ann.json", `{"id": "ann", "name": "Ann Lee", "role": "Engineer", "order": 2}`)
	c.WriteFile("team/bob.json", `{
  // id derives from the name
  "name": "Bob Stone",
  "role": "Designer",
  "order": 1,
}`)
	c.WriteFile("products/all.json", `[
  {"name": "Starter Kit", "description": "Everything to begin.", "url": "https://example.com/starter", "status": "active", "tags": ["go"]},
  {"name": "Pro Kit", "description": "For experts.", "url": "https://example.com/pro", "status": "beta", "tags": ["go", "pro"]}
]`)
	c.WriteFile("blog/hello-world.md", `---
title: Hello World
description: The first post.
date: 2024-05-01
author: Ann Lee
difficulty: beginner
tags: [go, intro]
---
Welcome to the blog.
`)
	c.WriteFile("blog/2024/deep-dive.md", `---
title: Deep Dive
description: Internals.
date: 2024-06-01
author: Bob Stone
difficulty: advanced
tags: [go]
order: 1
---
All the details.
`)
}

func Test_Bare_Command_Prints_Usage_When_Invoked(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	exitCode := cli.Run(nil, &stdout, &stderr, []string{"sitecontent"}, nil, nil)

	if got, want := exitCode, 0; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stderr.String(), ""; got != want {
		t.Errorf("stderr=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stdout.String(), "sitecontent - validate, index and query site content")
	cli.AssertContains(t, stdout.String(), "--cwd")
	cli.AssertContains(t, stdout.String(), "--content-dir")
	cli.AssertContains(t, stdout.String(), "get <kind> <id>")
	cli.AssertContains(t, stdout.String(), "print-config")
}

func Test_Invalid_Global_Flag_Fails_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run("--invalid-flag", "check")

	if got, want := exitCode, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stdout, ""; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "unknown flag")
	cli.AssertContains(t, stderr, "--invalid-flag")
	cli.AssertContains(t, stderr, "--config")
}

func Test_Unknown_Command_Fails_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("publish")

	cli.AssertContains(t, stderr, "unknown command: publish")
	cli.AssertContains(t, stderr, "Commands:")
}

func Test_Command_Help_Prints_Flags_When_Help_Flag_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("ls", "--help")

	cli.AssertContains(t, stdout, "Usage: sitecontent ls <kind> [flags]")
	cli.AssertContains(t, stdout, "--offset")
	cli.AssertContains(t, stdout, "--limit")
}

func Test_Command_Fails_With_Usage_When_Flag_Is_Unknown(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run("ls", "--sort", "team-member")

	if got, want := exitCode, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stdout, ""; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "unknown flag: --sort")
	cli.AssertContains(t, stderr, "Usage: sitecontent ls <kind> [flags]")
}

func Test_Check_Fails_When_Configured_Content_Dir_Is_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteConfig(`{"content_dir": "site"}`)

	stderr := c.MustFail("check")
	cli.AssertContains(t, stderr, "load content")
	cli.AssertContains(t, stderr, "site")
}

func Test_Config_Error_Fails_When_Content_Dir_Is_Explicitly_Empty(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteConfig(`{"content_dir": ""}`)

	stderr := c.MustFail("check")
	cli.AssertContains(t, stderr, "content-dir cannot be empty")
}

func Test_Print_Config_Shows_Defaults_When_No_Config_Exists(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, `"content_dir": "content"`)
	cli.AssertContains(t, stdout, "content_dir="+c.ContentDir())
	cli.AssertContains(t, stdout, "schema_file=(built-in)")
	cli.AssertContains(t, stdout, "(defaults only)")
}

func Test_Print_Config_Shows_Project_File_When_Present(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteConfig(`{"export_dir": "dist"}`)

	stdout := c.MustRun("--content-dir", "pages", "print-config")

	cli.AssertContains(t, stdout, `"content_dir": "pages"`)
	cli.AssertContains(t, stdout, `"export_dir": "dist"`)
	cli.AssertContains(t, stdout, "project_config=")
}

func Test_Command_Fails_With_Usage_When_Argument_Count_Is_Wrong(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"tag", "product", "go", "extra"}, want: "expected <kind> [tag]"},
		{args: []string{"ls"}, want: "expected <kind>"},
		{args: []string{"check", "now"}, want: "expected no arguments"},
		{args: []string{"print-config", "x"}, want: "expected no arguments"},
	}

	for _, tt := range tests {
		stdout, stderr, exitCode := c.Run(tt.args...)

		if got, want := exitCode, 1; got != want {
			t.Errorf("%v: exitCode=%d, want=%d", tt.args, got, want)
		}

		if got, want := stdout, ""; got != want {
			t.Errorf("%v: stdout=%q, want=%q", tt.args, got, want)
		}

		cli.AssertContains(t, stderr, tt.want)
		cli.AssertContains(t, stderr, "Usage: sitecontent "+tt.args[0])
	}
}
