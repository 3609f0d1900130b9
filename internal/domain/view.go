package domain

// View recomputes the filtered and windowed listing over one snapshot's records.
// It owns only its inputs (records, criteria, window size); every derived set is
// recomputed by Result.
//
// The window is reset whenever the records or the criteria change, so a narrowed
// result is never shown through a window grown against an earlier one.
type View struct {
	records  []MergedRecord
	criteria FilterCriteria
	window   *Window
	macros   MacroRegionTable
}

// ViewResult is the derived state of a View.
type ViewResult struct {
	Criteria FilterCriteria `json:"criteria"`
	Matching []MergedRecord `json:"-"`
	Visible  []MergedRecord `json:"records"`
	HasMore  bool           `json:"has_more"`
	Window   int            `json:"window"`
	Summary  Summary        `json:"summary"`
}

// NewView returns a view over records with empty criteria.
func NewView(records []MergedRecord) *View {
	return &View{records: records, window: NewWindow(), macros: MacroRegions}
}

// WithMacroRegions sets the macro-region table used for filtering.
func (v *View) WithMacroRegions(t MacroRegionTable) *View {
	v.macros = t
	return v
}

// SetRecords replaces the underlying records and resets the window.
func (v *View) SetRecords(records []MergedRecord) {
	v.records = records
	v.window.Reset()
}

// SetCriteria applies new criteria. The window is reset unless the criteria are
// equivalent to the current ones. It reports whether the criteria changed.
func (v *View) SetCriteria(c FilterCriteria) bool {
	if v.criteria.Equal(c) {
		return false
	}
	v.criteria = c.Normalize()
	v.window.Reset()
	return true
}

// Criteria returns the current (normalized) criteria.
func (v *View) Criteria() FilterCriteria {
	return v.criteria
}

// Grow extends the visible window by one increment.
func (v *View) Grow() {
	v.window.Grow()
}

// Result filters, windows and summarizes the current records.
func (v *View) Result() ViewResult {
	matching := FilterWith(v.records, v.criteria, v.macros)
	return ViewResult{
		Criteria: v.criteria,
		Matching: matching,
		Visible:  v.window.Visible(matching),
		HasMore:  v.window.HasMore(matching),
		Window:   v.window.Count(),
		Summary:  Summarize(v.records, matching),
	}
}
