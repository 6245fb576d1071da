package classify

import "fmt"

// WarningKind categorizes a validation finding
type WarningKind string

const (
	WarnMissingBaseName   WarningKind = "missing_base_name"
	WarnDuplicateBaseName WarningKind = "duplicate_base_name"
	WarnSelfParent        WarningKind = "self_parent"
	WarnCycle             WarningKind = "cycle"
	WarnPathNotHeadUnit   WarningKind = "path_not_head_unit"
)

// Warning is a non-fatal finding about the device table
type Warning struct {
	Kind     WarningKind `json:"kind"`
	RowID    RowID       `json:"row_id"`
	BaseName string      `json:"nmo_base_name,omitempty"`
	Message  string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("row %d: %s", w.RowID, w.Message)
}

// Validate inspects devices and the index built from them. A parent that is
// not indexed is not reported: it is how the resolver detects the top of the
// tree.
func Validate(devices []Device, idx *DeviceIndex, sep string) []Warning {
	var warnings []Warning

	for _, d := range devices {
		if d.BaseName == "" {
			warnings = append(warnings, Warning{
				Kind:    WarnMissingBaseName,
				RowID:   d.RowID,
				Message: "device has no nmoBaseName and is left out of the index",
			})
		}
	}

	for _, d := range idx.Shadowed {
		winner := idx.Entities[d.BaseName]
		warnings = append(warnings, Warning{
			Kind:     WarnDuplicateBaseName,
			RowID:    d.RowID,
			BaseName: d.BaseName,
			Message:  fmt.Sprintf("nmoBaseName %q is also used by row %d, which wins", d.BaseName, winner.RowID),
		})
	}

	for _, d := range devices {
		if d.BaseName == "" {
			continue
		}
		if d.HeadDevice == d.BaseName {
			warnings = append(warnings, Warning{
				Kind:     WarnSelfParent,
				RowID:    d.RowID,
				BaseName: d.BaseName,
				Message:  fmt.Sprintf("%q names itself as head device", d.BaseName),
			})
			continue
		}
		if loop := findCycle(d, idx); loop != "" {
			warnings = append(warnings, Warning{
				Kind:     WarnCycle,
				RowID:    d.RowID,
				BaseName: d.BaseName,
				Message:  fmt.Sprintf("head device chain of %q loops back to %q", d.BaseName, loop),
			})
		}
	}

	for _, d := range devices {
		for _, name := range ParsePath(d.GUPath, sep) {
			anc, ok := idx.Get(name)
			if !ok || anc.HeadUnit == nil || *anc.HeadUnit {
				continue
			}
			warnings = append(warnings, Warning{
				Kind:     WarnPathNotHeadUnit,
				RowID:    d.RowID,
				BaseName: d.BaseName,
				Message:  fmt.Sprintf("onlyGUpath names %q, which is not flagged as a head unit", name),
			})
		}
	}

	return warnings
}

// findCycle follows head device names from d and returns the first name
// visited twice, or "" when the chain leaves the index.
func findCycle(d Device, idx *DeviceIndex) string {
	seen := map[string]bool{d.BaseName: true}
	cur := d.HeadDevice
	for cur != "" {
		if seen[cur] {
			return cur
		}
		seen[cur] = true
		anc, ok := idx.Get(cur)
		if !ok {
			return ""
		}
		cur = anc.HeadDevice
	}
	return ""
}
