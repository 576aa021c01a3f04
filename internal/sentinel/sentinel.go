package sentinel

var _ error = Error("")

// Error is an error whose identity is its message. Because it is a comparable
// value type, errors.Is matches it with plain equality.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
