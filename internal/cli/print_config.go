package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/sitecontent/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execPrintConfig(io, cfg)
		},
	}
}

func execPrintConfig(io *IO, cfg *config.Config) error {
	formatted, err := config.Format(*cfg)
	if err != nil {
		return err
	}

	io.Println(formatted)
	io.Println("")
	io.Println("# resolved")
	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println("content_dir=" + cfg.ContentDirAbs)
	io.Println("export_dir=" + cfg.ExportDirAbs)

	if cfg.SchemaFileAbs != "" {
		io.Println("schema_file=" + cfg.SchemaFileAbs)
	} else {
		io.Println("schema_file=(built-in)")
	}

	io.Println("")
	io.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		io.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			io.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			io.Println("project_config=" + cfg.Sources.Project)
		}
	}

	return nil
}
