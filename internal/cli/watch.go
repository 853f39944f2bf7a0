package cli

import (
	"context"
	"slices"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/calvinalkan/sitecontent/internal/watch"
)

// WatchCmd returns the watch command.
func WatchCmd(a *app) *Command {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	doExport := fs.Bool("export", false, "Write all exports after every published rebuild")

	return &Command{
		Flags: fs,
		Usage: "watch [flags]",
		Short: "Rebuild whenever content changes",
		Long: `Build the content, then watch the content directories and rebuild after
every burst of changes. Prints one summary line per rebuild. Runs until
interrupted.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return execWatch(ctx, o, a, *doExport)
		},
	}
}

func execWatch(ctx context.Context, o *IO, a *app, doExport bool) error {
	rebuild := func() {
		report, res, err := a.rebuild()
		if err != nil {
			o.ErrPrintln("error:", err)

			return
		}

		for _, p := range res.Problems {
			o.ErrPrintln("problem:", p)
		}

		for _, e := range report.RecordErrors {
			o.ErrPrintln("problem:", e)
		}

		o.Println(summary(report, res))

		if !doExport || !report.Published {
			return
		}

		paths, err := writeExports(ctx, a.engine.Query(), a.cfg.ExportDirAbs, formatAll)
		if err != nil {
			o.ErrPrintln("error:", err)

			return
		}

		for _, p := range paths {
			o.Println("wrote", p)
		}
	}

	// The registry is fixed for the session; fail before watching.
	_, err := a.open()
	if err != nil {
		return err
	}

	rebuild()

	w := watch.New(
		a.cfg.Layout.Dirs(a.cfg.ContentDirAbs),
		layoutExtensions(a),
		func(paths []string) {
			a.log.Debug("content changed", zap.Strings("paths", paths))
			rebuild()
		},
		watch.WithLogger(a.log),
		watch.WithDebounce(a.cfg.WatchDebounce()),
	)

	err = w.Start(ctx)
	if err != nil {
		return err
	}

	o.Println("watching", a.cfg.ContentDirAbs)

	<-w.Done()

	return nil
}

func layoutExtensions(a *app) []string {
	exts := make([]string, 0, len(a.cfg.Layout))
	for _, loc := range a.cfg.Layout {
		exts = append(exts, loc.Ext)
	}

	slices.Sort(exts)

	return slices.Compact(exts)
}
