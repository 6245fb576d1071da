package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planFixture() []Device {
	return []Device{
		{RowID: 1, BaseName: "A", HeadGroup: "GA"},
		{RowID: 2, BaseName: "B", HeadDevice: "A", HeadGroup: "GB"},
		{RowID: 3, BaseName: "X", HeadDevice: "B", GUPath: "A"},
		{RowID: 4, BaseName: "Y", HeadDevice: "A", HeadGroup: "GY", Stored: Levels{Level3: "GA"}},
	}
}

func TestPlan_EmitsOnlyChangedRows(t *testing.T) {
	devices := planFixture()
	idx := NewIndex(devices)

	updates := Plan(devices, idx, DefaultSeparator, nil)

	// A has no head device and nothing stored; Y already holds its levels
	assert.Equal(t, []Update{
		{RowID: 2, Levels: Levels{Level3: "GA"}},
		{RowID: 3, Levels: Levels{Level1: "GA", Level3: "GB"}},
	}, updates)
}

func TestPlan_ClearsStaleLevels(t *testing.T) {
	devices := []Device{
		{RowID: 7, BaseName: "A", Stored: Levels{Level1: "old"}},
	}

	updates := Plan(devices, NewIndex(devices), DefaultSeparator, nil)

	require.Len(t, updates, 1)
	assert.Equal(t, RowID(7), updates[0].RowID)
	assert.True(t, updates[0].IsEmpty())
}

func TestPlan_Idempotent(t *testing.T) {
	devices := planFixture()

	first := Plan(devices, NewIndex(devices), DefaultSeparator, nil)
	require.NotEmpty(t, first)

	// Simulate the host applying the updates
	byRow := map[RowID]Levels{}
	for _, u := range first {
		byRow[u.RowID] = u.Levels
	}
	for i := range devices {
		if l, ok := byRow[devices[i].RowID]; ok {
			devices[i].Stored = l
		}
	}

	second := Plan(devices, NewIndex(devices), DefaultSeparator, nil)
	assert.Empty(t, second)
	assert.NotNil(t, second)
}

func TestPlan_ReportsProgress(t *testing.T) {
	devices := []Device{
		{RowID: 1, BaseName: "A"},
		{RowID: 2, BaseName: "B"},
		{RowID: 3, BaseName: "C"},
	}

	type call struct{ percent, current, total int }
	var calls []call
	Plan(devices, NewIndex(devices), DefaultSeparator, func(p, c, n int) {
		calls = append(calls, call{p, c, n})
	})

	assert.Equal(t, []call{{33, 1, 3}, {67, 2, 3}, {100, 3, 3}}, calls)
}

func TestPlan_ProgressIsMonotonic(t *testing.T) {
	devices := make([]Device, 137)
	for i := range devices {
		devices[i] = Device{RowID: RowID(i + 1), BaseName: string(rune('a' + i%26))}
	}

	last := -1
	count := 0
	Plan(devices, NewIndex(devices), DefaultSeparator, func(p, c, n int) {
		assert.GreaterOrEqual(t, p, last)
		last = p
		count++
	})

	assert.Equal(t, 100, last)
	assert.Equal(t, len(devices), count)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		current, total, want int
	}{
		{0, 0, 0},
		{1, 2, 50},
		{1, 8, 13},
		{1, 3, 33},
		{2, 3, 67},
		{5, 5, 100},
		{1, 200, 1},
		{1, 201, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.current, tt.total), "%d/%d", tt.current, tt.total)
	}
}
