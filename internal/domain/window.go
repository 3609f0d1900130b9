package domain

// Window sizes for the incremental "load more" listing.
const (
	WindowInitial   = 20
	WindowIncrement = 20
)

// Window is a growable prefix over a filtered sequence. The zero value is not
// ready for use; call NewWindow.
type Window struct {
	count int
}

// NewWindow returns a window at the initial size.
func NewWindow() *Window {
	return &Window{count: WindowInitial}
}

// Reset shrinks the window back to its initial size.
func (w *Window) Reset() {
	w.count = WindowInitial
}

// Grow extends the window by one increment.
func (w *Window) Grow() {
	w.count += WindowIncrement
}

// Count is the number of records the window admits.
func (w *Window) Count() int {
	return w.count
}

// Visible returns the first min(Count, len(records)) records.
func (w *Window) Visible(records []MergedRecord) []MergedRecord {
	n := min(w.count, len(records))
	return records[:n:n]
}

// HasMore reports whether records extend past the window.
func (w *Window) HasMore(records []MergedRecord) bool {
	return len(records) > w.count
}
