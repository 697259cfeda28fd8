package model

import (
	"bytes"
	"fmt"
)

// Outpoint identifies a spendable transaction output by the ID of the
// transaction that produced it and the output's index within it.
type Outpoint struct {
	TransactionID TransactionID
	Index         uint32
}

// NewOutpoint creates a new Outpoint.
func NewOutpoint(transactionID TransactionID, index uint32) Outpoint {
	return Outpoint{TransactionID: transactionID, Index: index}
}

// Less reports whether o precedes other in the canonical outpoint ordering:
// byte order of the transaction ID with the index as tie-break. This ordering
// is what makes the sorted UTXO sequence deterministic.
func (o Outpoint) Less(other Outpoint) bool {
	switch bytes.Compare(o.TransactionID[:], other.TransactionID[:]) {
	case -1:
		return true
	case 1:
		return false
	default:
		return o.Index < other.Index
	}
}

func (o Outpoint) String() string {
	return fmt.Sprintf("(%s: %d)", o.TransactionID, o.Index)
}
