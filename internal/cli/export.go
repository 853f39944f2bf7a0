package cli

import (
	"context"
	"fmt"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/sitecontent/internal/export"
	"github.com/calvinalkan/sitecontent/pkg/content"
)

// Export formats.
const (
	formatJSON   = "json"
	formatSQLite = "sqlite"
	formatAll    = "all"
)

// ExportCmd returns the export command.
func ExportCmd(a *app) *Command {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	dir := fs.String("dir", "", "Export directory (default: export_dir from config)")
	format := fs.String("format", formatAll, "What to write: json, sqlite or all")

	return &Command{
		Flags: fs,
		Usage: "export [flags]",
		Short: "Write the content snapshot for the renderer",
		Long: `Build the content and write the published snapshot as ` + export.JSONFile + ` and/or
` + export.SQLiteFile + ` into the export directory. Prints the written paths.

Excluded records are reported as warnings; the export still contains every
valid record.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			target := *dir
			if target == "" {
				target = a.cfg.ExportDirAbs
			} else if !filepath.IsAbs(target) {
				target = filepath.Join(a.cfg.EffectiveCwd, target)
			}

			q, err := a.query(o)
			if err != nil {
				return err
			}

			paths, err := writeExports(ctx, q, target, *format)
			if err != nil {
				return err
			}

			for _, p := range paths {
				o.Println(p)
			}

			return nil
		},
	}
}

// writeExports writes the requested formats into dir and returns the paths.
func writeExports(ctx context.Context, q *content.Query, dir, format string) ([]string, error) {
	if format != formatJSON && format != formatSQLite && format != formatAll {
		return nil, fmt.Errorf("%w: --format must be json, sqlite or all, got %q", errUsage, format)
	}

	// Both files describe the same snapshot.
	q = q.Pin()

	var paths []string

	if format == formatJSON || format == formatAll {
		path, err := export.WriteJSON(dir, q)
		if err != nil {
			return paths, err
		}

		paths = append(paths, path)
	}

	if format == formatSQLite || format == formatAll {
		path := filepath.Join(dir, export.SQLiteFile)

		err := export.WriteSQLite(ctx, path, q)
		if err != nil {
			return paths, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}
