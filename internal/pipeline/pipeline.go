// Package pipeline runs one analysis end to end: load, evaluate, aggregate,
// render and write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/thinkwright/agent-trajectory/internal/analysis"
	"github.com/thinkwright/agent-trajectory/internal/loader"
	"github.com/thinkwright/agent-trajectory/internal/oracle"
	"github.com/thinkwright/agent-trajectory/internal/report"
)

// Options configures a run.
type Options struct {
	InputPath   string
	OutDir      string
	Mode        analysis.Mode
	Oracle      oracle.Oracle
	Concurrency int           // single-shot fan-out; <= 1 is sequential
	Timeout     time.Duration // bounds the oracle phase; 0 means none
	Logger      *zap.Logger
	Progress    oracle.ProgressCallback
}

// Run executes one analysis and writes report.json and report.md to
// opts.OutDir. Nothing is written when any step fails.
func Run(ctx context.Context, opts Options) (*analysis.Report, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Oracle == nil {
		return nil, fmt.Errorf("no oracle configured")
	}
	if opts.Mode == "" {
		opts.Mode = analysis.ModeProgression
	}

	conversations, err := loader.LoadConversations(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	log.Info("loaded conversations",
		zap.String("input", opts.InputPath),
		zap.Int("count", len(conversations)))

	rep, err := evaluate(ctx, opts, conversations, log)
	if err != nil {
		return nil, err
	}

	structured, narrative, err := report.Render(rep)
	if err != nil {
		return nil, err
	}
	if err := report.WriteArtifacts(opts.OutDir, structured, narrative); err != nil {
		return nil, err
	}
	log.Info("wrote report",
		zap.String("out", opts.OutDir),
		zap.String("label", string(rep.Trajectory.Label)),
		zap.Float64("delta", rep.TrendDelta),
		zap.Float64("average", rep.AverageScore))
	return rep, nil
}

func evaluate(ctx context.Context, opts Options, conversations []loader.Conversation, log *zap.Logger) (*analysis.Report, error) {
	if len(conversations) == 0 {
		log.Warn("no conversations in input, skipping oracle")
		return analysis.EmptyReport(opts.Mode), nil
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	switch opts.Mode {
	case analysis.ModeSingleShot:
		log.Info("evaluating conversations individually",
			zap.Int("count", len(conversations)),
			zap.Int("concurrency", opts.Concurrency))
		evals, err := oracle.EvaluateEach(ctx, opts.Oracle, conversations, opts.Concurrency, opts.Progress)
		if err != nil {
			return nil, err
		}
		return analysis.AggregateSingle(conversations, evals)

	case analysis.ModeProgression:
		log.Info("evaluating progression", zap.Int("count", len(conversations)))
		prog, err := opts.Oracle.EvaluateProgression(ctx, conversations)
		if err != nil {
			var fe *oracle.FailureError
			if !errors.As(err, &fe) {
				err = &oracle.FailureError{Op: oracle.OpEvaluateProgression, Err: err}
			}
			return nil, err
		}
		if missing := len(conversations) - matched(conversations, prog); missing > 0 {
			log.Warn("oracle omitted conversations from the breakdown", zap.Int("missing", missing))
		}
		return analysis.AggregateProgression(conversations, prog)
	}
	return nil, fmt.Errorf("unknown mode %q", opts.Mode)
}

func matched(conversations []loader.Conversation, prog oracle.ProgressionEvaluation) int {
	ids := make(map[string]struct{}, len(prog.PerConversation))
	for _, cp := range prog.PerConversation {
		ids[cp.ConversationID] = struct{}{}
	}
	n := 0
	for _, c := range conversations {
		if _, ok := ids[c.ConversationID]; ok {
			n++
		}
	}
	return n
}
