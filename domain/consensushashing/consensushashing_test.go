package consensushashing

import (
	"bytes"
	"encoding/binary"
	"testing"

	"golang.org/x/crypto/blake2b"

	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

func testTransaction() *model.Transaction {
	var previousID model.TransactionID
	previousID[0] = 0x42
	return &model.Transaction{
		Version: 0,
		Inputs: []*model.TransactionInput{{
			PreviousOutpoint: model.NewOutpoint(previousID, 1),
			Sequence:         0,
			SigOpCount:       1,
		}},
		Outputs: []*model.TransactionOutput{{
			Value:           100_000_000,
			ScriptPublicKey: &model.ScriptPublicKey{Script: []byte{0x20, 0x01, 0xac}, Version: 0},
		}},
		LockTime: 0,
	}
}

func TestTransactionIDIsDeterministic(t *testing.T) {
	first := TransactionID(testTransaction())
	second := TransactionID(testTransaction())
	if first != second {
		t.Fatalf("the same transaction hashed to %s and %s", first, second)
	}
	var zero model.TransactionID
	if first == zero {
		t.Fatal("transaction hashed to the zero ID")
	}
}

// TestTransactionIDEncoding pins the exact preimage layout: every field the
// node hashes must be hashed here too, in the same order and width, or
// locally computed IDs will not match the node's and chained outpoints will
// reference transactions the node never saw.
func TestTransactionIDEncoding(t *testing.T) {
	tx := testTransaction()

	var preimage bytes.Buffer
	putUint16 := func(value uint16) {
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], value)
		preimage.Write(buf[:])
	}
	putUint32 := func(value uint32) {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], value)
		preimage.Write(buf[:])
	}
	putUint64 := func(value uint64) {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], value)
		preimage.Write(buf[:])
	}

	putUint16(tx.Version)
	putUint64(uint64(len(tx.Inputs)))
	for _, input := range tx.Inputs {
		preimage.Write(input.PreviousOutpoint.TransactionID[:])
		putUint32(input.PreviousOutpoint.Index)
		putUint64(0) // empty signature script var-bytes
		putUint64(input.Sequence)
	}
	putUint64(uint64(len(tx.Outputs)))
	for _, output := range tx.Outputs {
		putUint64(output.Value)
		putUint16(output.ScriptPublicKey.Version)
		putUint64(uint64(len(output.ScriptPublicKey.Script)))
		preimage.Write(output.ScriptPublicKey.Script)
	}
	putUint64(tx.LockTime)
	preimage.Write(make([]byte, 20)) // native subnetwork ID
	putUint64(0)                     // gas
	putUint64(uint64(len(tx.Payload)))
	preimage.Write(tx.Payload)

	hasher, err := blake2b.New256([]byte("TransactionID"))
	if err != nil {
		t.Fatalf("creating hasher: %+v", err)
	}
	hasher.Write(preimage.Bytes())
	var want model.TransactionID
	copy(want[:], hasher.Sum(nil))

	if got := TransactionID(tx); got != want {
		t.Fatalf("TransactionID = %s, want %s over the consensus preimage", got, want)
	}
}

func TestTransactionIDIgnoresSignatureScripts(t *testing.T) {
	unsigned := testTransaction()
	signed := testTransaction()
	signed.Inputs[0].SignatureScript = make([]byte, 66)

	if TransactionID(unsigned) != TransactionID(signed) {
		t.Fatal("signing changed the transaction ID")
	}
}

func TestTransactionIDCoversStructure(t *testing.T) {
	base := TransactionID(testTransaction())

	mutations := []struct {
		name   string
		mutate func(tx *model.Transaction)
	}{
		{"outputValue", func(tx *model.Transaction) { tx.Outputs[0].Value++ }},
		{"outputScript", func(tx *model.Transaction) { tx.Outputs[0].ScriptPublicKey.Script[1] ^= 1 }},
		{"previousIndex", func(tx *model.Transaction) { tx.Inputs[0].PreviousOutpoint.Index++ }},
		{"sequence", func(tx *model.Transaction) { tx.Inputs[0].Sequence = 5 }},
		{"lockTime", func(tx *model.Transaction) { tx.LockTime = 1 }},
		{"payload", func(tx *model.Transaction) { tx.Payload = []byte{0x01} }},
	}
	for _, mutation := range mutations {
		tx := testTransaction()
		mutation.mutate(tx)
		if TransactionID(tx) == base {
			t.Fatalf("mutating %s did not change the transaction ID", mutation.name)
		}
	}
}
