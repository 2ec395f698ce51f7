package diag

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	// SevError is for compile errors reported to the user.
	SevError
	// SevInternal is for compiler bugs. A diagnostic with this severity
	// aborts compilation with exit code 2.
	SevInternal
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	case SevInternal:
		return "INTERNAL"
	}
	return "UNKNOWN"
}
