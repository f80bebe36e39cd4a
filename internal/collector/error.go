package collector

var _ error = (*Error)(nil)

// Error is a collector error.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
