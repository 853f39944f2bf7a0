package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/calvinalkan/sitecontent/internal/config"
	"github.com/calvinalkan/sitecontent/internal/source"
	"github.com/calvinalkan/sitecontent/pkg/content"
)

// app holds the state shared by the commands of one invocation (or one shell
// session): the engine is created on first use and content is loaded into it
// at most once unless a rebuild is requested.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	stdin io.Reader
	env   map[string]string

	metricsReg *prometheus.Registry
	metrics    *content.Metrics

	engine *content.Engine
	loaded bool
}

func newApp(cfg *config.Config, log *zap.Logger, stdin io.Reader, env map[string]string) *app {
	if log == nil {
		log = zap.NewNop()
	}

	reg := prometheus.NewRegistry()

	return &app{
		cfg:        cfg,
		log:        log,
		stdin:      stdin,
		env:        env,
		metricsReg: reg,
		metrics:    content.NewMetrics(reg),
	}
}

// commands returns fresh command values. Flag sets keep parsed values, so the
// shell asks for a new set per line.
func (a *app) commands() []*Command {
	return []*Command{
		CheckCmd(a),
		GetCmd(a),
		LsCmd(a),
		TagCmd(a),
		DifficultyCmd(a),
		SlugCmd(a),
		ExportCmd(a),
		WatchCmd(a),
		ShellCmd(a),
		PrintConfigCmd(a.cfg),
	}
}

func (a *app) registry() (*content.Registry, error) {
	if a.cfg.SchemaFileAbs == "" {
		return content.DefaultRegistry(), nil
	}

	return content.LoadRegistry(a.cfg.SchemaFileAbs)
}

func (a *app) open() (*content.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}

	reg, err := a.registry()
	if err != nil {
		return nil, err
	}

	a.engine = content.New(reg,
		content.WithLogger(a.log),
		content.WithMetrics(a.metrics),
	)

	return a.engine, nil
}

// rebuild reads the content tree and rebuilds the engine from it.
func (a *app) rebuild() (content.BuildReport, source.Result, error) {
	engine, err := a.open()
	if err != nil {
		return content.BuildReport{}, source.Result{}, err
	}

	res, err := source.Load(a.cfg.ContentDirAbs, a.cfg.Layout)
	if err != nil {
		return content.BuildReport{}, source.Result{}, err
	}

	// A layout may name kinds a custom schema file leaves out. Only content
	// that actually exists for such a kind is an error.
	declared := engine.Registry().Kinds()
	for kind, records := range res.Records {
		if len(records) == 0 && !slices.Contains(declared, kind) {
			delete(res.Records, kind)
		}
	}

	for _, p := range res.Problems {
		a.log.Warn("content file skipped", zap.Error(p))
	}

	report := engine.Rebuild(res.Records)
	a.loaded = report.Published || a.loaded

	return report, res, nil
}

// query returns the query API, loading content on first use. Excluded
// records become warnings; a build that could not publish is an error.
func (a *app) query(o *IO) (*content.Query, error) {
	if a.loaded {
		return a.engine.Query(), nil
	}

	report, res, err := a.rebuild()
	if err != nil {
		return nil, err
	}

	if report.Err != nil {
		return nil, report.Err
	}

	n := len(report.RecordErrors) + len(res.Problems)
	if n > 0 {
		o.Warn(fmt.Sprintf("%d content problem(s), affected records are excluded", n),
			"run '"+progName+" check' for details")
	}

	return a.engine.Query(), nil
}
