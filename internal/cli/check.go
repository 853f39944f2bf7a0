package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"
)

var errContentInvalid = errors.New("content has problems")

// CheckCmd returns the check command.
func CheckCmd(a *app) *Command {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	metrics := fs.Bool("metrics", false, "Also print build metrics in Prometheus text format")

	return &Command{
		Flags: fs,
		Usage: "check [flags]",
		Short: "Validate all content and report problems",
		Long: `Load every content file, validate it against the schemas and build the
indices. Prints every problem (one per line) and a per-kind summary.

Exits 1 when any record was excluded or the snapshot could not be published.`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return execCheck(o, a, *metrics)
		},
	}
}

func execCheck(o *IO, a *app, withMetrics bool) error {
	report, res, err := a.rebuild()
	if err != nil {
		return err
	}

	printReport(o, a.engine.Registry().Kinds(), report, res)

	if withMetrics {
		o.Println()

		err = writeMetrics(o, a.metricsReg)
		if err != nil {
			return err
		}
	}

	if report.Err != nil {
		return report.Err
	}

	if n := len(report.RecordErrors) + len(res.Problems); n > 0 {
		return fmt.Errorf("%w: %d problem(s)", errContentInvalid, n)
	}

	return nil
}
