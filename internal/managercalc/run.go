// Package managercalc runs the electrical-group classification of a device
// table end to end: fetch, validate, plan and write back.
package managercalc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veb86/GristWidgets-sub001/internal/classify"
	"github.com/veb86/GristWidgets-sub001/internal/config"
	"github.com/veb86/GristWidgets-sub001/internal/dispatch"
	"github.com/veb86/GristWidgets-sub001/internal/host"
)

// State of a classification run
type State string

const (
	StateIdle        State = "idle"
	StatePlanning    State = "planning"
	StateDispatching State = "dispatching"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Busy reports whether a run in this state must not be started again
func (s State) Busy() bool {
	return s == StatePlanning || s == StateDispatching
}

var (
	// ErrRunInProgress is returned by Execute while the run is planning or dispatching
	ErrRunInProgress = errors.New("classification run already in progress")

	// ErrValidation is returned in strict mode when the table has warnings
	ErrValidation = errors.New("device table has validation warnings")
)

// Options control one execution
type Options struct {
	// DryRun plans without writing
	DryRun bool
	// Strict fails the run when validation reports warnings
	Strict bool
}

// Run owns all state of a classification: the fetched devices, the index,
// the plan and the sinks it reports to. Runs share nothing.
type Run struct {
	Host     host.API
	Config   *config.Config
	Progress classify.ProgressFunc
	Status   dispatch.StatusSink
	Logger   zerolog.Logger

	// OnStateChange is called on every transition, e.g. to disable a trigger
	OnStateChange func(from, to State)

	// Sleep overrides the dispatcher's inter-batch wait
	Sleep func(ctx context.Context, d time.Duration)

	mu    sync.Mutex
	state State
}

// NewRun creates an idle run against api
func NewRun(api host.API, cfg *config.Config, log zerolog.Logger) *Run {
	return &Run{
		Host:   api,
		Config: cfg,
		Logger: log,
		state:  StateIdle,
	}
}

// State returns the current state
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == "" {
		return StateIdle
	}
	return r.state
}

func (r *Run) transition(to State) {
	r.mu.Lock()
	from := r.state
	r.state = to
	r.mu.Unlock()
	r.notify(from, to)
}

func (r *Run) notify(from, to State) {
	if from == "" {
		from = StateIdle
	}
	r.Logger.Debug().Str("from", string(from)).Str("to", string(to)).Msg("Run state changed")
	if r.OnStateChange != nil {
		r.OnStateChange(from, to)
	}
}

// begin moves an idle or finished run to planning
func (r *Run) begin() error {
	r.mu.Lock()
	if r.state.Busy() {
		r.mu.Unlock()
		return ErrRunInProgress
	}
	from := r.state
	r.state = StatePlanning
	r.mu.Unlock()

	r.notify(from, StatePlanning)
	return nil
}

func (r *Run) status(kind dispatch.StatusKind, msg string) {
	if r.Status != nil {
		r.Status.Status(kind, msg)
	}
}

// Execute performs one classification pass. The returned report is non-nil
// whenever the run started, including on failure.
func (r *Run) Execute(ctx context.Context, opts Options) (*Report, error) {
	if err := r.begin(); err != nil {
		return nil, err
	}

	cfg := r.Config
	started := time.Now()
	report := &Report{
		RunID:  uuid.NewString(),
		Table:  cfg.Table,
		DryRun: opts.DryRun,
	}
	log := r.Logger.With().Str("run_id", report.RunID).Str("table", cfg.Table).Logger()

	fail := func(err error) (*Report, error) {
		report.State = StateFailed
		report.Error = err.Error()
		report.Duration = time.Since(started)
		r.status(dispatch.StatusError, err.Error())
		log.Error().Err(err).Msg("Classification failed")
		r.transition(StateFailed)
		return report, err
	}

	log.Info().Bool("dry_run", opts.DryRun).Msg("Classification started")

	snap, err := r.Host.FetchTable(ctx, cfg.Table)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch devices: %w", err))
	}

	devices, err := classify.Decode(snap, cfg.Columns)
	if err != nil {
		return fail(err)
	}
	report.Devices = len(devices)

	idx := classify.NewIndex(devices)
	report.Indexed = idx.Len()

	report.Warnings = classify.Validate(devices, idx, cfg.PathSeparator)
	for _, w := range report.Warnings {
		log.Warn().Str("kind", string(w.Kind)).Int64("row_id", int64(w.RowID)).Msg(w.Message)
	}
	if opts.Strict && len(report.Warnings) > 0 {
		return fail(fmt.Errorf("%w: %d found", ErrValidation, len(report.Warnings)))
	}

	var updates []classify.Update
	if len(devices) > 0 {
		updates = classify.Plan(devices, idx, cfg.PathSeparator, r.Progress)
	}
	report.Planned = len(updates)
	report.Updates = updates
	log.Info().Int("devices", report.Devices).Int("updates", report.Planned).Msg("Plan computed")

	if opts.DryRun {
		report.State = StateDone
		report.Duration = time.Since(started)
		r.status(dispatch.StatusInfo, fmt.Sprintf("dry run: %d of %d devices would change", report.Planned, report.Devices))
		r.transition(StateDone)
		return report, nil
	}

	r.transition(StateDispatching)

	d := dispatch.New(r.Host, cfg, log)
	d.Sleep = r.Sleep
	res := d.Dispatch(ctx, updates, r.Status)
	report.Applied = res.Applied
	report.Batches = res.Batches
	report.Duration = time.Since(started)

	if res.Err != nil {
		report.State = StateFailed
		report.Error = res.Err.Error()
		log.Error().Err(res.Err).Int("applied", res.Applied).Msg("Classification failed")
		r.transition(StateFailed)
		return report, res.Err
	}

	report.State = StateDone
	log.Info().Int("applied", res.Applied).Int("batches", res.Batches).
		Dur("duration", report.Duration).Msg("Classification finished")
	r.transition(StateDone)
	return report, nil
}
