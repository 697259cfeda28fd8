// Package consensushashing computes the consensus IDs of wallet-built
// transactions. The encoding must match byte-for-byte across runs: the
// transaction builder links split transactions by the IDs it computes here
// before anything is broadcast.
package consensushashing

import (
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/blake2b"

	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

// transactionIDKey is the domain-separation key for transaction ID hashing.
var transactionIDKey = []byte("TransactionID")

// subnetworkIDSize is the encoded size of a subnetwork ID. The wallet only
// builds native transactions, whose subnetwork ID is all zeros and whose gas
// is zero, but both still participate in the encoding.
const subnetworkIDSize = 20

var subnetworkIDNative [subnetworkIDSize]byte

// TransactionID returns the ID of the given transaction: a keyed
// blake2b-256 hash over its serialized structure, excluding signature
// scripts so the ID is stable across signing.
func TransactionID(tx *model.Transaction) model.TransactionID {
	writer, err := blake2b.New256(transactionIDKey)
	if err != nil {
		panic(err)
	}
	serializeTransaction(writer, tx)

	var transactionID model.TransactionID
	copy(transactionID[:], writer.Sum(nil))
	return transactionID
}

func serializeTransaction(w hash.Hash, tx *model.Transaction) {
	writeUint16(w, tx.Version)

	writeUint64(w, uint64(len(tx.Inputs)))
	for _, input := range tx.Inputs {
		_, _ = w.Write(input.PreviousOutpoint.TransactionID[:])
		writeUint32(w, input.PreviousOutpoint.Index)
		// The signature script is encoded as empty var-bytes, never
		// its actual content, so the ID is stable across signing.
		writeUint64(w, 0)
		writeUint64(w, input.Sequence)
	}

	writeUint64(w, uint64(len(tx.Outputs)))
	for _, output := range tx.Outputs {
		writeUint64(w, output.Value)
		writeUint16(w, output.ScriptPublicKey.Version)
		writeUint64(w, uint64(len(output.ScriptPublicKey.Script)))
		_, _ = w.Write(output.ScriptPublicKey.Script)
	}

	writeUint64(w, tx.LockTime)
	_, _ = w.Write(subnetworkIDNative[:])
	writeUint64(w, 0) // gas
	writeUint64(w, uint64(len(tx.Payload)))
	_, _ = w.Write(tx.Payload)
}

func writeUint16(w hash.Hash, value uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	_, _ = w.Write(buf[:])
}

func writeUint32(w hash.Hash, value uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	_, _ = w.Write(buf[:])
}

func writeUint64(w hash.Hash, value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	_, _ = w.Write(buf[:])
}
