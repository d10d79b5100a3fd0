package pipeline

//go:generate go tool stringer -type=Status -linecomment -output=status_string.go

// Status classifies a finished run.
type Status int

const (
	_ Status = iota // zero value is not a valid status

	StatusSuccess // success
	StatusPartial // partial
	StatusFailure // failure
)

// OK reports whether the run counts as successful.
func (s Status) OK() bool {
	return s == StatusSuccess || s == StatusPartial
}

// ExitCode maps the status to a process exit code.
func (s Status) ExitCode() int {
	if s.OK() {
		return 0
	}

	return 1
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
