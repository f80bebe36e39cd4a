package cli

var _ error = (*Error)(nil)

// Error is a cli error.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

const (
	// ErrOutput indicates that the output file could not be written.
	ErrOutput = Error("could not write output")
)
