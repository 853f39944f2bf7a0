package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/calvinalkan/sitecontent/internal/source"
	"github.com/calvinalkan/sitecontent/pkg/content"
)

func printJSON(o *IO, v any) error {
	enc := json.NewEncoder(o.Out())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(v)
}

// printRecords prints one "id<TAB>label" line per record, or a JSON array.
func printRecords(o *IO, records []content.Record, asJSON bool) error {
	if asJSON {
		return printJSON(o, records)
	}

	for _, r := range records {
		o.Printf("%s\t%s\n", r.ID, label(r))
	}

	return nil
}

// label is the human name of a record: its title, or its name.
func label(r content.Record) string {
	if title := r.StringField("title"); title != "" {
		return title
	}

	return r.StringField("name")
}

func parseKind(s string) (content.Kind, error) {
	kind, err := content.ParseKind(s)
	if err != nil {
		return "", fmt.Errorf("%w (want one of %s)", err, strings.Join(kindNames(), ", "))
	}

	return kind, nil
}

func kindNames() []string {
	return []string{string(content.KindTeamMember), string(content.KindProduct), string(content.KindDocument)}
}

// reportKinds returns the kinds of report in registry order, followed by
// undeclared kinds.
func reportKinds(declared []content.Kind, report content.BuildReport) []content.Kind {
	kinds := slices.Clone(declared)

	var extra []content.Kind

	for kind := range report.Kinds {
		if !slices.Contains(declared, kind) {
			extra = append(extra, kind)
		}
	}

	slices.Sort(extra)

	return append(kinds, extra...)
}

// printReport prints one line per problem followed by a per-kind summary.
func printReport(o *IO, declared []content.Kind, report content.BuildReport, res source.Result) {
	for _, p := range res.Problems {
		o.Println("problem:", p)
	}

	for _, e := range report.RecordErrors {
		o.Println("problem:", e)
	}

	if len(res.Problems)+len(report.RecordErrors) > 0 {
		o.Println()
	}

	for _, kind := range reportKinds(declared, report) {
		kr := report.Kinds[kind]
		o.Printf("%-12s submitted=%d accepted=%d rejected=%d dropped=%d\n",
			kind, kr.Submitted, kr.Accepted, kr.Rejected, kr.Dropped)
	}

	o.Println(summary(report, res))
}

// summary is the one-line outcome of a rebuild.
func summary(report content.BuildReport, res source.Result) string {
	problems := len(report.RecordErrors) + len(res.Problems)

	if !report.Published {
		return fmt.Sprintf("not published: %v", report.Err)
	}

	accepted := 0
	for _, kr := range report.Kinds {
		accepted += kr.Accepted
	}

	return fmt.Sprintf("published snapshot %s: %d records from %d files, %d problem(s) in %s",
		report.SnapshotID, accepted, res.Files, problems, report.Duration.Round(time.Microsecond))
}

// writeMetrics prints the gathered metrics in the Prometheus text format.
func writeMetrics(o *IO, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, mf := range families {
		_, err = expfmt.MetricFamilyToText(o.Out(), mf)
		if err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	return nil
}
