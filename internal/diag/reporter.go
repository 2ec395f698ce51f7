package diag

import "plasma/internal/source"

// Reporter is the minimal contract passes use to emit diagnostics.
// Implementations: BagReporter (accumulates into a Bag), NopReporter.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter writes into a *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// NopReporter drops every diagnostic.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}

// Errorf is a convenience wrapper for the common report-an-error case.
func Errorf(r Reporter, code Code, primary source.Span, msg string) {
	r.Report(NewError(code, primary, msg))
}
