package classify

// Plan resolves every device and returns one update per device whose
// resolved levels differ from the stored ones, in input order.
// progress may be nil.
func Plan(devices []Device, idx Lookup, sep string, progress ProgressFunc) []Update {
	updates := make([]Update, 0)
	total := len(devices)

	for i, d := range devices {
		levels := Resolve(d, idx, sep)
		if levels != d.Stored {
			updates = append(updates, Update{RowID: d.RowID, Levels: levels})
		}

		if progress != nil {
			current := i + 1
			progress(Percent(current, total), current, total)
		}
	}

	return updates
}

// Percent returns current/total as a whole percentage, rounding halves up.
func Percent(current, total int) int {
	if total <= 0 {
		return 0
	}
	return (current*200 + total) / (total * 2)
}
