// Package sentinel defines a string-backed error type for package-level
// sentinel errors.
//
// Values of Error can be declared with const, so no caller can reassign a
// sentinel such as ErrInvalidPort. They compare with errors.Is through any
// number of %w wrappers.
package sentinel
