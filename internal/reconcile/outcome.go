package reconcile

// Status is the closed set of reconciliation results.
type Status string

const (
	StatusOK           Status = "OK"
	StatusAppOff       Status = "APP_OFF"
	StatusNoPM         Status = "NO_PM"
	StatusUnresponsive Status = "UNRESPONSIVE"
	StatusCloseFailed  Status = "CLOSE_FAILED"
	StatusCreateFailed Status = "CREATE_FAILED"
	StatusLoadFailed   Status = "LOAD_FAILED"
	StatusError        Status = "ERROR"
)

// ExitCode maps a status to the process exit code used by the CLI.
func (s Status) ExitCode() int {
	switch s {
	case StatusOK:
		return 0
	case StatusAppOff, StatusNoPM:
		return 3
	case StatusUnresponsive:
		return 4
	case StatusCloseFailed:
		return 5
	case StatusCreateFailed:
		return 6
	case StatusLoadFailed:
		return 7
	default:
		return 8
	}
}

// Retryable reports whether another attempt could change the result.
// A host that is not running or has no project manager will not recover
// within the retry window.
func (s Status) Retryable() bool {
	return s != StatusOK && s != StatusAppOff && s != StatusNoPM
}

// Kind describes which recovery path produced a successful outcome.
type Kind string

const (
	KindAlreadyActive    Kind = "already-active"
	KindReplacedUnnamed  Kind = "replaced-unnamed"
	KindCreatedAndLoaded Kind = "created-and-loaded"
	KindLoadedExisting   Kind = "loaded-existing"
	KindFailed           Kind = "failed"
)

// Outcome is the structured result of one reconciliation.
type Outcome struct {
	OK       bool   `json:"ok"`
	Status   Status `json:"status"`
	Kind     Kind   `json:"kind"`
	Details  string `json:"details"`
	Target   string `json:"project"`
	Attempts int    `json:"attempts"`
}

func succeeded(kind Kind, details string) Outcome {
	return Outcome{OK: true, Status: StatusOK, Kind: kind, Details: details}
}

func failed(status Status, details string) Outcome {
	return Outcome{Status: status, Kind: KindFailed, Details: details}
}
