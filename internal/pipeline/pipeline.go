// Package pipeline runs input records through a mapping expression and a
// target schema validator, and classifies the run.
//
// Records are evaluated and validated independently, optionally by several
// workers, then classified in input order. Output order, error log order and
// the strict-mode abort point never depend on the worker count.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"als-transform/internal/diagnostic"
	"als-transform/internal/expr"
	"als-transform/internal/metrics"
	"als-transform/internal/record"
	"als-transform/internal/schema"
)

// Options configure a run.
type Options struct {
	// Strict aborts on the first transform error and withholds records that
	// fail validation.
	Strict bool
	// ErrorLogPath, when set, receives the error log as a JSON array.
	ErrorLogPath string
	// Workers bounds concurrent evaluation; values below 2 run sequentially.
	Workers int
	// IDFields name the input fields used as record ids in the error log.
	IDFields []string

	Logger  *zap.Logger
	Metrics tally.Scope
}

// RecordResult is the classification of one input record.
type RecordResult struct {
	Index     int
	ID        string
	Candidate any
	Result    diagnostic.Result
	// TransformErr is the evaluation failure, if any.
	TransformErr error
	Emitted      bool
}

// Summary counts what happened during a run.
type Summary struct {
	Processed       int                     `json:"processed"`
	Passed          int                     `json:"passed"`
	Failed          int                     `json:"failed"`
	TransformErrors int                     `json:"transformErrors"`
	Emitted         int                     `json:"emitted"`
	Aborted         bool                    `json:"aborted"`
	Violations      map[diagnostic.Rule]int `json:"violations"`
}

// Outcome is the result of a run.
type Outcome struct {
	RunID  string
	Status Status
	// Records holds emitted candidates in input order.
	Records  []any
	Results  []RecordResult
	Summary  Summary
	ErrorLog *ErrorLog
	Duration time.Duration
}

// Pipeline binds one mapping expression to one target schema.
type Pipeline struct {
	eval      expr.Evaluator
	keys      func(record.Input) []string
	validator *schema.Validator
	opts      Options
	logger    *zap.Logger
	scope     tally.Scope
}

// New returns a pipeline. A nil evaluator passes input records through
// unchanged, which validates already-mapped records.
func New(eval expr.Evaluator, validator *schema.Validator, opts Options) *Pipeline {
	keys := func(record.Input) []string { return nil }

	switch ev := eval.(type) {
	case nil:
		eval = expr.EvaluatorFunc(func(input any) (any, error) {
			return input, nil
		})
		keys = func(in record.Input) []string { return in.Keys }
	case expr.KeyOrderer:
		order := ev.KeyOrder()
		keys = func(record.Input) []string { return order }
	}

	if opts.IDFields == nil {
		opts.IDFields = record.DefaultIDFields
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	scope := opts.Metrics
	if scope == nil {
		scope = tally.NoopScope
	}

	return &Pipeline{
		eval:      eval,
		keys:      keys,
		validator: validator,
		opts:      opts,
		logger:    logger.Named("pipeline"),
		scope:     scope,
	}
}

type slot struct {
	candidate any
	result    diagnostic.Result
	err       error
}

var dumper = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Run processes inputs and classifies the run. The returned error is set
// only for cancellation or a failure to write the error log; record-level
// failures are reported through the Outcome.
func (p *Pipeline) Run(ctx context.Context, inputs []record.Input) (*Outcome, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))

	logger.Info("run started",
		zap.Int("records", len(inputs)),
		zap.Bool("strict", p.opts.Strict),
		zap.Int("workers", p.opts.Workers))

	slots, err := p.evaluate(ctx, logger, inputs)
	if err != nil {
		return nil, err
	}

	out := p.classify(logger, inputs, slots)
	out.RunID = runID
	out.Duration = time.Since(start)

	p.report(out)

	if p.opts.ErrorLogPath != "" {
		if err := out.ErrorLog.WriteFile(p.opts.ErrorLogPath); err != nil {
			return out, err
		}

		logger.Info("error log written",
			zap.String("path", p.opts.ErrorLogPath),
			zap.Int("entries", out.ErrorLog.Len()))
	}

	logger.Info("run finished",
		zap.Stringer("status", out.Status),
		zap.Int("processed", out.Summary.Processed),
		zap.Int("passed", out.Summary.Passed),
		zap.Int("failed", out.Summary.Failed),
		zap.Int("transform_errors", out.Summary.TransformErrors),
		zap.Int("emitted", out.Summary.Emitted),
		zap.Duration("duration", out.Duration))

	return out, nil
}

// evaluate fills one slot per input. Slots are index-addressed, so workers
// never share state.
func (p *Pipeline) evaluate(ctx context.Context, logger *zap.Logger, inputs []record.Input) ([]slot, error) {
	slots := make([]slot, len(inputs))

	if p.opts.Workers < 2 {
		for i := range inputs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			slots[i] = p.process(logger, inputs[i])

			if p.opts.Strict && slots[i].err != nil {
				break
			}
		}

		return slots, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i := range inputs {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			slots[i] = p.process(logger, inputs[i])

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return slots, nil
}

func (p *Pipeline) process(logger *zap.Logger, in record.Input) slot {
	debug := logger.Core().Enabled(zap.DebugLevel)
	if debug {
		logger.Debug("input record", zap.Int("index", in.Index), zap.String("value", dumper.Sdump(in.Value)))
	}

	candidate, err := p.eval.Evaluate(in.Value)
	if err != nil {
		var te *expr.TransformError
		if !errors.As(err, &te) {
			err = &expr.TransformError{Op: "evaluate", Err: err}
		}

		return slot{err: err}
	}

	if debug {
		logger.Debug("candidate record", zap.Int("index", in.Index), zap.String("value", dumper.Sdump(candidate)))
	}

	return slot{candidate: candidate, result: p.validator.ValidateOrdered(candidate, p.keys(in))}
}

func (p *Pipeline) classify(logger *zap.Logger, inputs []record.Input, slots []slot) *Outcome {
	out := &Outcome{
		Records:  []any{},
		Results:  make([]RecordResult, 0, len(inputs)),
		ErrorLog: &ErrorLog{},
		Summary:  Summary{Violations: make(map[diagnostic.Rule]int)},
	}

	sum := &out.Summary

	for i, in := range inputs {
		s := slots[i]
		rr := RecordResult{
			Index:        in.Index,
			ID:           record.ID(in, p.opts.IDFields),
			Candidate:    s.candidate,
			Result:       s.result,
			TransformErr: s.err,
		}

		sum.Processed++

		if s.err != nil {
			sum.TransformErrors++
			sum.Violations[diagnostic.RuleTransform]++
			out.ErrorLog.Append(rr.ID, []diagnostic.Violation{diagnostic.Transform(s.err)})
			out.Results = append(out.Results, rr)

			logger.Warn("transform failed", zap.String("record_id", rr.ID), zap.Error(s.err))

			if p.opts.Strict {
				sum.Aborted = true

				logger.Error("strict mode: aborting run", zap.String("record_id", rr.ID))

				break
			}

			continue
		}

		if s.result.Pass() {
			sum.Passed++
			rr.Emitted = true
		} else {
			sum.Failed++
			rr.Emitted = !p.opts.Strict

			for rule, n := range s.result.CountByRule() {
				sum.Violations[rule] += n
			}

			out.ErrorLog.Append(rr.ID, s.result.Violations)

			logger.Debug("record failed validation",
				zap.String("record_id", rr.ID),
				zap.Int("violations", len(s.result.Violations)))
		}

		if rr.Emitted {
			sum.Emitted++
			out.Records = append(out.Records, s.candidate)
		}

		out.Results = append(out.Results, rr)
	}

	out.Status = classifyStatus(*sum, p.opts.Strict)

	return out
}

func classifyStatus(sum Summary, strict bool) Status {
	switch {
	case sum.TransformErrors > 0:
		return StatusFailure
	case sum.Failed > 0 && strict:
		return StatusFailure
	case sum.Failed > 0:
		return StatusPartial
	default:
		return StatusSuccess
	}
}

func (p *Pipeline) report(out *Outcome) {
	sum := out.Summary

	p.scope.Counter(metrics.RecordsProcessed).Inc(int64(sum.Processed))
	p.scope.Counter(metrics.RecordsPassed).Inc(int64(sum.Passed))
	p.scope.Counter(metrics.RecordsFailed).Inc(int64(sum.Failed))
	p.scope.Counter(metrics.RecordsEmitted).Inc(int64(sum.Emitted))
	p.scope.Counter(metrics.TransformErrors).Inc(int64(sum.TransformErrors))

	for _, rule := range diagnostic.Rules {
		if n := sum.Violations[rule]; n > 0 {
			p.scope.Tagged(map[string]string{metrics.TagRule: string(rule)}).Counter(metrics.Violations).Inc(int64(n))
		}
	}

	if sum.Aborted {
		p.scope.Counter(metrics.RunAborted).Inc(1)
	}

	p.scope.Timer(metrics.RunLatency).Record(out.Duration)
}

// String summarizes the outcome on one line.
func (o *Outcome) String() string {
	s := o.Summary

	return fmt.Sprintf("%s: %d processed, %d passed, %d failed, %d transform errors, %d emitted",
		o.Status, s.Processed, s.Passed, s.Failed, s.TransformErrors, s.Emitted)
}
