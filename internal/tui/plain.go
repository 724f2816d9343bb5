package tui

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/mmcdole/switchtube/internal/domain"
	"github.com/mmcdole/switchtube/internal/transfer"
)

// PlainObserver writes progress as carriage-return updated lines, one line
// per transfer. It is used when stdout is not a terminal or the interactive
// view is disabled.
type PlainObserver struct {
	mu      sync.Mutex
	w       io.Writer
	name    string
	open    bool
	lastPct int
}

// NewPlainObserver creates an observer writing to w.
func NewPlainObserver(w io.Writer) *PlainObserver {
	return &PlainObserver{w: w, lastPct: -1}
}

func (o *PlainObserver) OnProgress(p domain.TransferProgress) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.open && p.Name != o.name {
		fmt.Fprintln(o.w)
		o.open = false
	}
	if !o.open {
		o.name = p.Name
		o.lastPct = -1
	}

	name := transfer.Truncate(p.Name, nameWidth)
	if frac, ok := p.Fraction(); ok {
		pct := int(math.Round(frac * 100))
		if pct == o.lastPct && !p.Done() {
			return
		}
		o.lastPct = pct
		fmt.Fprintf(o.w, "\r%s %d%%", name, pct)
	} else {
		fmt.Fprintf(o.w, "\r%s %s", name, humanize.Bytes(uint64(p.Transferred)))
	}
	o.open = true

	if p.Done() {
		fmt.Fprintln(o.w)
		o.open = false
	}
}

// Finish terminates a line left open by a transfer of unknown size.
func (o *PlainObserver) Finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.open {
		fmt.Fprintln(o.w)
		o.open = false
	}
}
