package reconciler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/skusync/pkg/logging"
	"github.com/agentstation/skusync/pkg/reports"
)

// sourceOutput is the parse result of one source file.
type sourceOutput struct {
	name        string
	channel     reports.ChannelID
	fileDate    time.Time
	records     []reports.QuantityRecord
	diagnostics *reports.Diagnostics
}

// collect parses all sources, at most limit at a time. Parsers share no
// mutable state, so parsing is embarrassingly parallel; outputs are returned
// in source order so the serial fold stays deterministic. A source whose
// file is unusable (unopenable, wrong layout) is logged and skipped rather
// than failing the run; partial data is expected.
func collect(ctx context.Context, srcs []Source, limit int) ([]sourceOutput, []string, error) {
	log := logging.FromContext(ctx)

	outputs := make([]*sourceOutput, len(srcs))

	var mu sync.Mutex
	var skipped []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, src := range srcs {
		g.Go(func() error {
			out, err := parseSource(gctx, src)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Error().
					Err(err).
					Str("source", src.Name).
					Str("channel", string(src.Parser.Channel())).
					Msg("Source file unusable, continuing without it")
				mu.Lock()
				skipped = append(skipped, src.Name)
				mu.Unlock()
				return nil
			}
			outputs[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	ordered := make([]sourceOutput, 0, len(srcs))
	for _, out := range outputs {
		if out != nil {
			ordered = append(ordered, *out)
		}
	}
	return ordered, skipped, nil
}

// parseSource opens and parses one source file.
func parseSource(ctx context.Context, src Source) (*sourceOutput, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	records, diags, err := src.Parser.Parse(ctx, rc)
	if err != nil {
		return nil, err
	}

	return &sourceOutput{
		name:        src.Name,
		channel:     src.Parser.Channel(),
		fileDate:    src.FileDate,
		records:     records,
		diagnostics: diags,
	}, nil
}
