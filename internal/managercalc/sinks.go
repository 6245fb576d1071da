package managercalc

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/veb86/GristWidgets-sub001/internal/dispatch"
)

// ProgressLine redraws a single progress line in place. It only writes when
// the percentage changes, and always for the final item.
type ProgressLine struct {
	w    io.Writer
	last int
}

func NewProgressLine(w io.Writer) *ProgressLine {
	return &ProgressLine{w: w, last: -1}
}

// Update matches classify.ProgressFunc
func (p *ProgressLine) Update(percent, current, total int) {
	if percent == p.last && current != total {
		return
	}
	p.last = percent
	// \r returns to column 0, \033[K clears the rest of the line
	fmt.Fprintf(p.w, "\r\033[KPlanning %3d%% (%s/%s)", percent,
		humanize.Comma(int64(current)), humanize.Comma(int64(total)))
	if current == total {
		fmt.Fprintln(p.w)
	}
}

// LogStatus forwards status messages to a logger
type LogStatus struct {
	Logger zerolog.Logger
}

func (s LogStatus) Status(kind dispatch.StatusKind, message string) {
	switch kind {
	case dispatch.StatusError:
		s.Logger.Error().Str("status", string(kind)).Msg(message)
	default:
		s.Logger.Info().Str("status", string(kind)).Msg(message)
	}
}
