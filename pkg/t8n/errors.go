package t8n

import "errors"

// Sentinel errors for session entity and fixture operations.
var (
	// ErrFixtureNotFound indicates the fixture file could not be opened.
	ErrFixtureNotFound = errors.New("fixture not found")

	// ErrFixtureMalformed indicates the fixture could not be parsed or does not
	// describe exactly one test.
	ErrFixtureMalformed = errors.New("fixture malformed")

	// ErrAddressNotFound indicates no allocation exists for an address.
	ErrAddressNotFound = errors.New("address not found")

	// ErrDuplicateAddress indicates two allocation keys naming the same
	// address in different letter case.
	ErrDuplicateAddress = errors.New("duplicate address")

	// ErrTransactionIndexOutOfRange indicates a transaction index outside the
	// current transaction list.
	ErrTransactionIndexOutOfRange = errors.New("transaction index out of range")
)
