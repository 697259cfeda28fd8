package model

import "github.com/pkg/errors"

// Error kinds surfaced by the wallet state core. Callers match them with
// errors.Is after arbitrary wrapping.
var (
	// ErrInsufficientFunds is returned when UTXO selection cannot cover the
	// requested amount plus the estimated fee.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnresolvableOwner is returned when a consensus UTXO's address has no
	// owner record in the address directory. It aborts the sync cycle that
	// encountered it, since it signals a directory/consensus desync.
	ErrUnresolvableOwner = errors.New("UTXO address has no owner in the address directory")

	// ErrTransientFetch wraps network and node errors during a sync cycle.
	// The previously published snapshot stays authoritative and the cycle is
	// retried on the next trigger.
	ErrTransientFetch = errors.New("transient fetch failure")

	// ErrRestrictionUnsatisfiable is returned when a non-empty address
	// restriction matches no spendable UTXO at all.
	ErrRestrictionUnsatisfiable = errors.New("address restriction excludes all spendable funds")

	// ErrUserInput is returned for malformed caller input (unknown addresses,
	// conflicting options, out-of-range values).
	ErrUserInput = errors.New("invalid user input")
)
