// Package pipeline assembles one full report run: discover the newest
// channel files, parse and reconcile them, validate the result against the
// output schema, persist every configured format, and deliver the payload to
// the webhook. Outputs are persisted before delivery, so a failed delivery
// never loses a run.
package pipeline

import (
	"context"
	"io"
	"os"

	"github.com/agentstation/skusync/internal/discovery"
	"github.com/agentstation/skusync/pkg/delivery"
	"github.com/agentstation/skusync/pkg/errors"
	"github.com/agentstation/skusync/pkg/logging"
	"github.com/agentstation/skusync/pkg/parsers"
	"github.com/agentstation/skusync/pkg/reconciler"
	"github.com/agentstation/skusync/pkg/registry"
	"github.com/agentstation/skusync/pkg/reports"
	"github.com/agentstation/skusync/pkg/save"
	"github.com/agentstation/skusync/pkg/schema"
)

// Config holds one pipeline's settings.
type Config struct {
	// InputDir is scanned for channel report files.
	InputDir string

	// OutputDir receives the generated report files.
	OutputDir string

	// Formats are the output formats to persist. Empty means CSV only.
	Formats []save.Format

	// WebhookURL is the delivery target. Empty disables delivery.
	WebhookURL string

	// DryRun persists outputs but skips webhook delivery.
	DryRun bool

	// Bundles appends the bundle pseudo-row to sales reports.
	Bundles bool

	// Unmapped is the unmapped identifier policy. Empty means skip.
	Unmapped reconciler.UnmappedPolicy
}

// Outcome is the result of one pipeline run.
type Outcome struct {
	Report    *reports.Report
	Paths     []string
	Skipped   []string
	Delivered bool
}

// Pipeline runs report assemblies over one registry.
type Pipeline struct {
	registry  *registry.Registry
	validator *schema.Validator
	config    Config
	webhook   *delivery.Client
}

// New creates a pipeline. The webhook client is built eagerly so a bad URL
// fails at startup, not after a run's worth of work.
func New(reg *registry.Registry, cfg Config) (*Pipeline, error) {
	if cfg.InputDir == "" {
		return nil, errors.NewConfigError("pipeline", "input directory must not be empty", nil)
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = []save.Format{save.FormatCSV}
	}
	for _, f := range cfg.Formats {
		if !f.IsValid() {
			return nil, errors.NewConfigError("pipeline", "unknown output format", nil)
		}
	}

	p := &Pipeline{
		registry:  reg,
		validator: schema.New(reg),
		config:    cfg,
	}
	if cfg.WebhookURL != "" {
		webhook, err := delivery.New(cfg.WebhookURL)
		if err != nil {
			return nil, err
		}
		p.webhook = webhook
	}
	return p, nil
}

// Run assembles one report type end to end.
func (p *Pipeline) Run(ctx context.Context, t reports.Type) (*Outcome, error) {
	log := logging.FromContext(ctx)

	files, err := discovery.Scan(p.config.InputDir, t, log)
	if err != nil {
		return nil, err
	}
	srcs, err := sources(files)
	if err != nil {
		return nil, err
	}

	opts := []reconciler.Option{reconciler.WithBundles(p.config.Bundles && t == reports.Sales)}
	if p.config.Unmapped != "" {
		opts = append(opts, reconciler.WithUnmappedPolicy(p.config.Unmapped))
	}
	rec, err := reconciler.New(p.registry, opts...)
	if err != nil {
		return nil, err
	}

	result, err := rec.Reconcile(ctx, t, srcs)
	if err != nil {
		return nil, err
	}
	report := result.Report()

	// Validation failures abort before anything is written or delivered.
	if err := p.validator.Validate(report, p.config.Bundles && t == reports.Sales); err != nil {
		return nil, err
	}

	outcome := &Outcome{Report: report, Skipped: result.SkippedSources}
	for _, format := range p.config.Formats {
		path, err := save.Save(report, save.WithDir(p.config.OutputDir), save.WithFormat(format))
		if err != nil {
			return nil, err
		}
		outcome.Paths = append(outcome.Paths, path)
	}

	if !result.Diagnostics.Empty() {
		log.Warn().
			Str("report", string(t)).
			Str("diagnostics", result.Diagnostics.String()).
			Msg("Run completed with skipped records")
	}

	switch {
	case p.webhook == nil:
		log.Debug().Msg("No webhook configured, skipping delivery")
	case p.config.DryRun:
		log.Info().Str("report", string(t)).Msg("Dry run, skipping webhook delivery")
	default:
		if err := p.webhook.Deliver(ctx, report); err != nil {
			return outcome, err
		}
		outcome.Delivered = true
	}

	return outcome, nil
}

// sources binds discovered files to their parsers.
func sources(files []discovery.SourceFile) ([]reconciler.Source, error) {
	srcs := make([]reconciler.Source, 0, len(files))
	for _, sf := range files {
		parser, err := parsers.For(sf.Channel, sf.Type)
		if err != nil {
			return nil, errors.NewConfigError("pipeline", err.Error(), err)
		}
		path := sf.Path
		srcs = append(srcs, reconciler.Source{
			Name:   sf.Name,
			Parser: parser,
			Open: func() (io.ReadCloser, error) {
				f, err := os.Open(path)
				if err != nil {
					return nil, errors.WrapIO("open", path, err)
				}
				return f, nil
			},
			FileDate: sf.Date,
		})
	}
	return srcs, nil
}
