package classify

import "errors"

// DefaultSeparator delimits names in onlyGUpath.
const DefaultSeparator = `\`

// MaxHops is the number of ancestor hops the resolver may take per device.
const MaxHops = 3

// ErrInputShape is matched by every ShapeError
var ErrInputShape = errors.New("unexpected table shape")

// RowID identifies a row in the host table. Grist row ids are integers.
type RowID int64

// Device is one row of the device table
type Device struct {
	RowID      RowID  `json:"row_id"`
	BaseName   string `json:"nmo_base_name"`
	HeadDevice string `json:"head_device_name,omitempty"`
	HeadGroup  string `json:"ng_head_device,omitempty"`
	GUPath     string `json:"only_gu_path,omitempty"`
	Stored     Levels `json:"stored"`

	// Optional tree attributes, decoded when the table carries them
	DeviceName string `json:"device_name,omitempty"`
	ParentID   RowID  `json:"parent_id,omitempty"`
	HeadUnit   *bool  `json:"head_unit,omitempty"`
	FullPath   string `json:"full_path,omitempty"`
}

// Levels holds the three group labels of a device, top (1) to bottom (3)
type Levels struct {
	Level1 string `json:"level1"`
	Level2 string `json:"level2"`
	Level3 string `json:"level3"`
}

// set writes label into slot 1, 2 or 3. Other slots are ignored.
func (l *Levels) set(slot int, label string) {
	switch slot {
	case 1:
		l.Level1 = label
	case 2:
		l.Level2 = label
	case 3:
		l.Level3 = label
	}
}

// IsEmpty reports whether no level is set
func (l Levels) IsEmpty() bool {
	return l.Level1 == "" && l.Level2 == "" && l.Level3 == ""
}

// Update is a pending write of new levels to one row
type Update struct {
	RowID RowID `json:"row_id"`
	Levels
}

// ProgressFunc receives progress after each planned device.
// current is 1-based.
type ProgressFunc func(percent, current, total int)
