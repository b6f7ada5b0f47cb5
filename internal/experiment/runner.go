// Package experiment drives a run: each frame it feeds render completions to
// the capture machine, logs finished samples and applies the next trial.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/rendercal/internal/capture"
	"github.com/coreman2200/rendercal/internal/diagnostics"
	"github.com/coreman2200/rendercal/internal/lut"
	"github.com/coreman2200/rendercal/internal/scene"
	"github.com/coreman2200/rendercal/internal/trials"
)

// ProgressEvery is how often, in trials, progress is logged.
const ProgressEvery = 100

type Runner struct {
	State RunState

	planner Planner
	hooks   scene.Hooks
	machine *capture.Machine
	log     *trials.Logger

	current   scene.Trial
	observers []Observer

	// Pace, when positive, is the minimum time between frames in Run.
	Pace time.Duration
}

func NewRunner(p Planner, h scene.Hooks, m *capture.Machine, l *trials.Logger) *Runner {
	return &Runner{State: Idle, planner: p, hooks: h, machine: m, log: l}
}

func (r *Runner) Observe(o Observer) { r.observers = append(r.observers, o) }

// Logged is the number of trials written so far.
func (r *Runner) Logged() int { return r.log.Count() }

// Step runs one driving-loop tick. It returns true when the run is over,
// either because the planner is exhausted or because of err.
func (r *Runner) Step() (bool, error) {
	if r.State == Done || r.State == Aborted || r.State == Failed {
		return true, nil
	}
	r.State = Running
	act, err := r.machine.Step()
	if err != nil {
		return r.fail(err)
	}
	switch act {
	case capture.BurnIn, capture.Wait:
		return false, nil
	case capture.Consume:
		if err := r.record(r.machine.Consume()); err != nil {
			return r.fail(err)
		}
	}
	return r.next()
}

func (r *Runner) record(sample scene.RGB) error {
	rec := trials.Record{Ordinal: r.current.Ordinal(), Fields: r.current.Fields(), Output: sample}
	if err := r.log.Append(rec); err != nil {
		r.diagnose(diagnostics.Diagnostic{
			Severity: diagnostics.Err, Code: diagnostics.CodeSinkFailure,
			Summary: "Trial log write failed", Detail: err.Error(),
			Evidence: map[string]any{"trial": rec.Ordinal},
		})
		return err
	}
	r.current = nil
	for _, o := range r.observers {
		o.OnTrial(rec)
	}
	if n := r.log.Count(); n%ProgressEvery == 0 {
		log.Info().Int("trials", n).Msg("progress")
	}
	return nil
}

func (r *Runner) next() (bool, error) {
	t, ok, err := r.planner.Next()
	if err != nil {
		return r.fail(fmt.Errorf("plan trial: %w", err))
	}
	if !ok {
		r.State = Done
		r.diagnose(diagnostics.Diagnostic{
			Severity: diagnostics.Info, Code: diagnostics.CodeRunDone, Summary: "Run complete",
			Evidence: map[string]any{"trials": r.log.Count()},
		})
		return true, nil
	}
	if err := t.Apply(r.hooks); err != nil {
		if errors.Is(err, lut.ErrMissingAsset) {
			r.diagnose(diagnostics.Diagnostic{
				Severity: diagnostics.Err, Code: diagnostics.CodeMissingLUT,
				Summary: "No lookup asset for sweep delta", Detail: err.Error(),
			})
		}
		return r.fail(fmt.Errorf("apply trial %d: %w", t.Ordinal(), err))
	}
	r.current = t
	r.machine.Arm()
	return false, nil
}

func (r *Runner) fail(err error) (bool, error) {
	r.State = Failed
	return true, err
}

func (r *Runner) diagnose(d diagnostics.Diagnostic) {
	for _, o := range r.observers {
		o.OnDiagnostic(d)
	}
}

// Run alternates Step and host.RenderOnce until the run ends or ctx is
// cancelled. A cancelled run discards any capture in flight and returns
// ctx.Err(). The log is not closed here.
func (r *Runner) Run(ctx context.Context, host Host) error {
	remove := host.OnFrameRendered(r.machine.OnFrameRendered)
	defer remove()

	var tick <-chan time.Time
	if r.Pace > 0 {
		ticker := time.NewTicker(r.Pace)
		defer ticker.Stop()
		tick = ticker.C
	}
	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			r.abort()
			return err
		}
		done, err := r.Step()
		if err != nil {
			log.Error().Err(err).Int("trials", r.log.Count()).Msg("run failed")
			return err
		}
		if done {
			log.Info().Int("trials", r.log.Count()).Dur("elapsed", time.Since(start)).Msg("run complete")
			return nil
		}
		if err := host.RenderOnce(); err != nil {
			r.State = Failed
			return fmt.Errorf("render: %w", err)
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				r.abort()
				return ctx.Err()
			case <-tick:
			}
		}
	}
}

func (r *Runner) abort() {
	r.machine.Reset()
	r.current = nil
	r.State = Aborted
	log.Warn().Int("trials", r.log.Count()).Msg("run aborted")
	r.diagnose(diagnostics.Diagnostic{
		Severity: diagnostics.Warn, Code: diagnostics.CodeRunAborted, Summary: "Run aborted",
		Evidence: map[string]any{"trials": r.log.Count()},
	})
}
