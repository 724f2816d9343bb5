package domain

// TransferProgress is a snapshot of one transfer.
// Total is -1 when the server did not announce a size.
type TransferProgress struct {
	Name        string
	Transferred int64
	Total       int64
}

// Determinate reports whether a fraction can be derived.
func (p TransferProgress) Determinate() bool {
	return p.Total > 0
}

// Fraction returns Transferred/Total in [0, 1], or false when the total is unknown.
func (p TransferProgress) Fraction() (float64, bool) {
	if !p.Determinate() {
		return 0, false
	}
	f := float64(p.Transferred) / float64(p.Total)
	if f > 1 {
		f = 1
	}
	return f, true
}

// Done reports whether a determinate transfer has moved every byte.
func (p TransferProgress) Done() bool {
	return p.Determinate() && p.Transferred >= p.Total
}

// ProgressObserver receives progress updates during a transfer.
type ProgressObserver interface {
	OnProgress(progress TransferProgress)
}

// ProgressFunc adapts a function to ProgressObserver.
type ProgressFunc func(TransferProgress)

func (f ProgressFunc) OnProgress(p TransferProgress) { f(p) }

// NoOpObserver discards progress updates (for testing/batch operations).
type NoOpObserver struct{}

func (NoOpObserver) OnProgress(TransferProgress) {}
