package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veb86/GristWidgets-sub001/internal/classify"
	"github.com/veb86/GristWidgets-sub001/internal/config"
	"github.com/veb86/GristWidgets-sub001/internal/host"
	"github.com/veb86/GristWidgets-sub001/internal/logger"
)

// event is a host call or a sleep, in the order they happened
type event struct {
	kind  string
	size  int
	delay time.Duration
}

type fakeHost struct {
	events  *[]event
	calls   [][]host.Action
	failOn  int // 1-based call number that fails, 0 for never
	failErr error
}

func (f *fakeHost) FetchTable(ctx context.Context, table string) (host.Snapshot, error) {
	return nil, errors.New("not used")
}

func (f *fakeHost) ApplyUserActions(ctx context.Context, actions []host.Action) error {
	f.calls = append(f.calls, actions)
	*f.events = append(*f.events, event{kind: "apply", size: len(actions)})
	if len(f.calls) == f.failOn {
		return f.failErr
	}
	return nil
}

type recordedStatus struct {
	kind StatusKind
	msg  string
}

func newTestDispatcher(h *fakeHost, events *[]event) *Dispatcher {
	cfg := config.Default()
	d := New(h, cfg, logger.NewTestLogger())
	d.Sleep = func(_ context.Context, delay time.Duration) {
		*events = append(*events, event{kind: "sleep", delay: delay})
	}
	return d
}

func makeUpdates(n int) []classify.Update {
	out := make([]classify.Update, n)
	for i := range out {
		out[i] = classify.Update{RowID: classify.RowID(i + 1), Levels: classify.Levels{Level3: "G"}}
	}
	return out
}

func TestDispatch_BatchesInOrderWithDelay(t *testing.T) {
	var events []event
	h := &fakeHost{events: &events}
	d := newTestDispatcher(h, &events)

	var statuses []recordedStatus
	res := d.Dispatch(context.Background(), makeUpdates(120), StatusFunc(func(k StatusKind, m string) {
		statuses = append(statuses, recordedStatus{k, m})
	}))

	require.NoError(t, res.Err)
	assert.Equal(t, 120, res.Applied)
	assert.Equal(t, 3, res.Batches)

	assert.Equal(t, []event{
		{kind: "apply", size: 50},
		{kind: "sleep", delay: 10 * time.Millisecond},
		{kind: "apply", size: 50},
		{kind: "sleep", delay: 10 * time.Millisecond},
		{kind: "apply", size: 20},
	}, events)

	// Rows arrive in plan order across batches
	var rows []int64
	for _, call := range h.calls {
		for _, a := range call {
			rows = append(rows, *a.RowID)
		}
	}
	require.Len(t, rows, 120)
	for i, r := range rows {
		assert.Equal(t, int64(i+1), r)
	}

	assert.Equal(t, []recordedStatus{{StatusSuccess, "updated 120 rows"}}, statuses)
}

func TestDispatch_UpdateRecordFields(t *testing.T) {
	var events []event
	h := &fakeHost{events: &events}
	d := newTestDispatcher(h, &events)

	res := d.Dispatch(context.Background(), []classify.Update{
		{RowID: 9, Levels: classify.Levels{Level1: "GA", Level3: "GB"}},
	}, nil)
	require.NoError(t, res.Err)

	require.Len(t, h.calls, 1)
	require.Len(t, h.calls[0], 1)
	a := h.calls[0][0]
	assert.Equal(t, host.ActionUpdateRecord, a.Type)
	assert.Equal(t, "AllDevice", a.Table)
	assert.Equal(t, int64(9), *a.RowID)
	assert.Equal(t, map[string]any{"level1": "GA", "level2": "", "level3": "GB"}, a.Fields)
}

func TestDispatch_CallCountIsCeil(t *testing.T) {
	for _, tt := range []struct{ n, size, calls int }{
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{100, 50, 2},
		{7, 3, 3},
	} {
		var events []event
		h := &fakeHost{events: &events}
		d := newTestDispatcher(h, &events)
		d.BatchSize = tt.size

		res := d.Dispatch(context.Background(), makeUpdates(tt.n), nil)

		require.NoError(t, res.Err)
		assert.Len(t, h.calls, tt.calls, "n=%d size=%d", tt.n, tt.size)
		assert.Equal(t, tt.n, res.Applied)
	}
}

func TestDispatch_StopsAtFailedBatch(t *testing.T) {
	hostErr := errors.New("host rejected")
	var events []event
	h := &fakeHost{events: &events, failOn: 2, failErr: hostErr}
	d := newTestDispatcher(h, &events)

	var statuses []recordedStatus
	res := d.Dispatch(context.Background(), makeUpdates(120), StatusFunc(func(k StatusKind, m string) {
		statuses = append(statuses, recordedStatus{k, m})
	}))

	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, hostErr))

	var batchErr *BatchError
	require.ErrorAs(t, res.Err, &batchErr)
	assert.Equal(t, 1, batchErr.Index)
	assert.Equal(t, 50, batchErr.Size)

	assert.Equal(t, 50, res.Applied)
	assert.Len(t, h.calls, 2, "no batch after the failure")

	require.Len(t, statuses, 1)
	assert.Equal(t, StatusError, statuses[0].kind)
	assert.Contains(t, statuses[0].msg, "batch 2 of 3")
	assert.Contains(t, statuses[0].msg, "host rejected")
}

func TestDispatch_NothingToUpdate(t *testing.T) {
	var events []event
	h := &fakeHost{events: &events}
	d := newTestDispatcher(h, &events)

	var statuses []recordedStatus
	res := d.Dispatch(context.Background(), nil, StatusFunc(func(k StatusKind, m string) {
		statuses = append(statuses, recordedStatus{k, m})
	}))

	require.NoError(t, res.Err)
	assert.Zero(t, res.Applied)
	assert.Empty(t, events)
	assert.Equal(t, []recordedStatus{{StatusSuccess, "nothing to update"}}, statuses)
}

func TestChunk(t *testing.T) {
	chunks := Chunk(makeUpdates(5), 2)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[2], 1)
	assert.Equal(t, classify.RowID(5), chunks[2][0].RowID)

	assert.Empty(t, Chunk(nil, 2))
}

func TestSleepContext_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sleepContext(ctx, time.Hour)
	assert.Less(t, time.Since(start), time.Second)
}
