package model

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// TransactionIDSize is the size, in bytes, of a TransactionID.
const TransactionIDSize = 32

// TransactionID is the hash that uniquely identifies a transaction.
type TransactionID [TransactionIDSize]byte

// String returns the hex encoding of the TransactionID.
func (id TransactionID) String() string {
	return hex.EncodeToString(id[:])
}

// NewTransactionIDFromBytes creates a TransactionID from the given byte slice.
func NewTransactionIDFromBytes(transactionIDBytes []byte) (*TransactionID, error) {
	if len(transactionIDBytes) != TransactionIDSize {
		return nil, errors.Errorf("invalid transaction ID length: got %d, expected %d",
			len(transactionIDBytes), TransactionIDSize)
	}
	var id TransactionID
	copy(id[:], transactionIDBytes)
	return &id, nil
}

// NewTransactionIDFromString creates a TransactionID from the given hex string.
func NewTransactionIDFromString(transactionIDString string) (*TransactionID, error) {
	transactionIDBytes, err := hex.DecodeString(transactionIDString)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid transaction ID %s", transactionIDString)
	}
	return NewTransactionIDFromBytes(transactionIDBytes)
}
