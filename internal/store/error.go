package store

var _ error = (*Error)(nil)

// Error is a store error.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
