package classify

// Rule names the branch the resolver took on one hop
type Rule string

const (
	RulePathTop Rule = "path_top" // cursor reached the last onlyGUpath entry
	RuleOrphan  Rule = "orphan"   // cursor is not indexed
	RuleHop     Rule = "hop"      // ancestor contributed its group (possibly empty)
	RuleNoHead  Rule = "no_head"  // cursor is empty, nothing left to climb
)

// Step records one iteration of the climb
type Step struct {
	Hop    int    `json:"hop"`
	Cursor string `json:"cursor"`
	Rule   Rule   `json:"rule"`
	Label  string `json:"label,omitempty"`
	// Slot the label went to; 0 when nothing was written
	Slot int `json:"slot,omitempty"`
}

// Trace is the result of Explain
type Trace struct {
	Device string   `json:"device"`
	Path   []string `json:"path"`
	Steps  []Step   `json:"steps"`
	Levels Levels   `json:"levels"`
}

// Resolve computes the levels of d by climbing at most MaxHops ancestors
// through idx. It never mutates idx and consults it at most once per hop.
func Resolve(d Device, idx Lookup, sep string) Levels {
	return climb(d, idx, sep, nil)
}

// Explain is Resolve with a record of every hop taken
func Explain(d Device, idx Lookup, sep string) Trace {
	t := Trace{
		Device: d.BaseName,
		Path:   ParsePath(d.GUPath, sep),
	}
	t.Levels = climb(d, idx, sep, &t)
	return t
}

func climb(d Device, idx Lookup, sep string, trace *Trace) Levels {
	var levels Levels

	path := ParsePath(d.GUPath, sep)
	top, hasTop := "", len(path) > 0
	if hasTop {
		top = path[len(path)-1]
	}

	record := func(s Step) {
		if trace != nil {
			trace.Steps = append(trace.Steps, s)
		}
	}

	cur := d.HeadDevice
	slot := 3

	for hop := 1; hop <= MaxHops; hop++ {
		if cur == "" {
			record(Step{Hop: hop, Rule: RuleNoHead})
			break
		}

		anc, indexed := idx.Get(cur)

		// The last head unit on the path is the highest permitted group
		if hasTop && cur == top {
			if indexed {
				levels.Level1 = anc.HeadGroup
			}
			record(Step{Hop: hop, Cursor: cur, Rule: RulePathTop, Label: levels.Level1, Slot: 1})
			break
		}

		// Climbed out of the indexed tree: fall back to the device's own group
		if !indexed {
			levels.Level1 = d.HeadGroup
			record(Step{Hop: hop, Cursor: cur, Rule: RuleOrphan, Label: d.HeadGroup, Slot: 1})
			break
		}

		step := Step{Hop: hop, Cursor: cur, Rule: RuleHop, Label: anc.HeadGroup}
		if anc.HeadGroup != "" && slot >= 1 {
			levels.set(slot, anc.HeadGroup)
			step.Slot = slot
			slot--
		}
		record(step)

		cur = anc.HeadDevice
	}

	return levels
}
