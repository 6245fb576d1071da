package classify

import (
	"fmt"

	"github.com/veb86/GristWidgets-sub001/internal/config"
	"github.com/veb86/GristWidgets-sub001/internal/host"
)

// ShapeError reports a snapshot that cannot be decoded into devices
type ShapeError struct {
	Column string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s: %s", ErrInputShape, e.Reason)
	}
	return fmt.Sprintf("%s: column %q: %s", ErrInputShape, e.Column, e.Reason)
}

func (e *ShapeError) Unwrap() error {
	return ErrInputShape
}

// Decode turns a columnar snapshot into devices in row order. Row i takes
// snap[id][i] as its id and snap[col][i] for every other column.
func Decode(snap host.Snapshot, cols config.Columns) ([]Device, error) {
	if snap == nil {
		return nil, &ShapeError{Reason: "snapshot is missing"}
	}

	ids, ok := snap[cols.ID]
	if !ok {
		return nil, &ShapeError{Column: cols.ID, Reason: "row id column is missing"}
	}
	n := len(ids)

	for name, values := range snap {
		if len(values) != n {
			return nil, &ShapeError{
				Column: name,
				Reason: fmt.Sprintf("has %d values, expected %d", len(values), n),
			}
		}
	}

	for _, required := range []string{cols.BaseName, cols.HeadDevice, cols.HeadGroup, cols.GUPath} {
		if _, ok := snap[required]; !ok {
			return nil, &ShapeError{Column: required, Reason: "required column is missing"}
		}
	}

	str := func(col string, i int) string {
		values, ok := snap[col]
		if !ok {
			return ""
		}
		return host.CellString(values[i])
	}

	devices := make([]Device, n)
	for i := 0; i < n; i++ {
		id, err := host.CellInt(ids[i])
		if err != nil {
			return nil, &ShapeError{Column: cols.ID, Reason: fmt.Sprintf("row %d: %v", i, err)}
		}

		d := Device{
			RowID:      RowID(id),
			BaseName:   str(cols.BaseName, i),
			HeadDevice: str(cols.HeadDevice, i),
			HeadGroup:  str(cols.HeadGroup, i),
			GUPath:     str(cols.GUPath, i),
			Stored: Levels{
				Level1: str(cols.Level1, i),
				Level2: str(cols.Level2, i),
				Level3: str(cols.Level3, i),
			},
			DeviceName: str(cols.DeviceName, i),
			FullPath:   str(cols.FullPath, i),
		}

		if values, ok := snap[cols.ParentID]; ok {
			// A broken reference is not fatal; the resolver goes by name
			if pid, err := host.CellInt(values[i]); err == nil {
				d.ParentID = RowID(pid)
			}
		}
		if values, ok := snap[cols.HeadUnit]; ok {
			flag := host.CellBool(values[i])
			d.HeadUnit = &flag
		}

		devices[i] = d
	}

	return devices, nil
}
