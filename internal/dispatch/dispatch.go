// Package dispatch writes planned level updates back to the host in
// throttled batches.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/veb86/GristWidgets-sub001/internal/classify"
	"github.com/veb86/GristWidgets-sub001/internal/config"
	"github.com/veb86/GristWidgets-sub001/internal/host"
)

const (
	DefaultBatchSize = 50
	DefaultDelay     = 10 * time.Millisecond
)

// StatusKind is the severity of a status message
type StatusKind string

const (
	StatusInfo    StatusKind = "info"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// StatusSink receives terminal and informational status messages
type StatusSink interface {
	Status(kind StatusKind, message string)
}

// StatusFunc adapts a function to StatusSink
type StatusFunc func(kind StatusKind, message string)

func (f StatusFunc) Status(kind StatusKind, message string) { f(kind, message) }

// BatchError reports a rejected batch. Batches before Index were applied.
type BatchError struct {
	Index int // 0-based
	Size  int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (%d updates) failed: %v", e.Index+1, e.Size, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Result summarizes a dispatch
type Result struct {
	Applied int   `json:"applied"`
	Batches int   `json:"batches"`
	Err     error `json:"-"`
}

// Dispatcher sends updates to Host in batches of BatchSize, waiting Delay
// between consecutive batches.
type Dispatcher struct {
	Host      host.API
	Table     string
	Columns   config.Columns
	BatchSize int
	Delay     time.Duration
	Logger    zerolog.Logger

	// Sleep waits between batches; tests replace it
	Sleep func(ctx context.Context, d time.Duration)
}

// New creates a dispatcher configured from cfg
func New(api host.API, cfg *config.Config, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		Host:      api,
		Table:     cfg.Table,
		Columns:   cfg.Columns,
		BatchSize: cfg.BatchSize,
		Delay:     cfg.UpdateDelay,
		Logger:    log,
	}
}

// Dispatch applies updates batch by batch, stopping at the first rejected
// batch. The outcome is also reported to sink, which may be nil.
func (d *Dispatcher) Dispatch(ctx context.Context, updates []classify.Update, sink StatusSink) Result {
	report := func(kind StatusKind, msg string) {
		if sink != nil {
			sink.Status(kind, msg)
		}
	}

	if len(updates) == 0 {
		report(StatusSuccess, "nothing to update")
		return Result{}
	}

	size := d.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	sleep := d.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	batches := Chunk(updates, size)
	var res Result

	for i, batch := range batches {
		if i > 0 && d.Delay > 0 {
			sleep(ctx, d.Delay)
		}

		if err := d.Host.ApplyUserActions(ctx, d.actions(batch)); err != nil {
			res.Err = &BatchError{Index: i, Size: len(batch), Err: err}
			d.Logger.Error().Err(err).
				Int("batch", i+1).
				Int("batches", len(batches)).
				Int("applied", res.Applied).
				Msg("Batch rejected, stopping")
			report(StatusError, fmt.Sprintf("update failed at batch %d of %d after %d rows: %v",
				i+1, len(batches), res.Applied, err))
			return res
		}

		res.Applied += len(batch)
		res.Batches++
		d.Logger.Debug().
			Int("batch", i+1).
			Int("batches", len(batches)).
			Int("size", len(batch)).
			Msg("Batch applied")
	}

	report(StatusSuccess, fmt.Sprintf("updated %d rows", res.Applied))
	return res
}

func (d *Dispatcher) actions(batch []classify.Update) []host.Action {
	actions := make([]host.Action, len(batch))
	for i, u := range batch {
		actions[i] = host.UpdateRecord(d.Table, int64(u.RowID), map[string]any{
			d.Columns.Level1: u.Level1,
			d.Columns.Level2: u.Level2,
			d.Columns.Level3: u.Level3,
		})
	}
	return actions
}

// Chunk splits updates into consecutive slices of at most size elements
func Chunk(updates []classify.Update, size int) [][]classify.Update {
	if size <= 0 {
		size = DefaultBatchSize
	}
	chunks := make([][]classify.Update, 0, (len(updates)+size-1)/size)
	for start := 0; start < len(updates); start += size {
		end := min(start+size, len(updates))
		chunks = append(chunks, updates[start:end])
	}
	return chunks
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
