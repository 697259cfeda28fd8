package utxostore

import (
	"fmt"
	"sort"

	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

// amountKey is one element of a snapshot's sorted sequence. Sorting by
// (amount, outpoint) makes the outpoint a deterministic tiebreaker.
type amountKey struct {
	amount   uint64
	outpoint model.Outpoint
}

func (k amountKey) less(other amountKey) bool {
	if k.amount != other.amount {
		return k.amount < other.amount
	}
	return k.outpoint.Less(other.outpoint)
}

// Snapshot is an immutable point-in-time view of the wallet's consensus UTXO
// set: a lookup map plus an ascending (amount, outpoint) index over the same
// entries. Once constructed it is never mutated; a fresh snapshot always
// replaces it wholesale.
type Snapshot struct {
	utxosByOutpoint    map[model.Outpoint]*model.WalletUTXO
	keysSortedByAmount []amountKey
}

// NewSnapshot builds a Snapshot from the given UTXOs. A duplicate outpoint in
// the input is a programming error and panics: consensus guarantees outpoint
// uniqueness, so valid input can never reach it.
func NewSnapshot(utxos []*model.WalletUTXO) *Snapshot {
	utxosByOutpoint := make(map[model.Outpoint]*model.WalletUTXO, len(utxos))
	keysSortedByAmount := make([]amountKey, 0, len(utxos))
	for _, utxo := range utxos {
		if _, ok := utxosByOutpoint[utxo.Outpoint]; ok {
			panic(fmt.Sprintf("duplicate outpoint %s in snapshot input", utxo.Outpoint))
		}
		utxosByOutpoint[utxo.Outpoint] = utxo
		keysSortedByAmount = append(keysSortedByAmount, amountKey{
			amount:   utxo.UTXOEntry.Amount,
			outpoint: utxo.Outpoint,
		})
	}
	sort.Slice(keysSortedByAmount, func(i, j int) bool {
		return keysSortedByAmount[i].less(keysSortedByAmount[j])
	})

	snapshot := &Snapshot{
		utxosByOutpoint:    utxosByOutpoint,
		keysSortedByAmount: keysSortedByAmount,
	}
	snapshot.assertConsistency()
	return snapshot
}

// assertConsistency verifies the structural invariant of the snapshot. A
// violation indicates a logic defect, never an environmental condition, so it
// fails loudly.
func (s *Snapshot) assertConsistency() {
	if len(s.utxosByOutpoint) != len(s.keysSortedByAmount) {
		panic(fmt.Sprintf("snapshot map size %d does not match sorted sequence length %d",
			len(s.utxosByOutpoint), len(s.keysSortedByAmount)))
	}
	for i := 1; i < len(s.keysSortedByAmount); i++ {
		if s.keysSortedByAmount[i].less(s.keysSortedByAmount[i-1]) {
			panic(fmt.Sprintf("snapshot sorted sequence out of order at index %d", i))
		}
	}
}

// Get returns the UTXO locked under the given outpoint, if any.
func (s *Snapshot) Get(outpoint model.Outpoint) (*model.WalletUTXO, bool) {
	utxo, ok := s.utxosByOutpoint[outpoint]
	return utxo, ok
}

// Contains reports whether the given outpoint is in the snapshot.
func (s *Snapshot) Contains(outpoint model.Outpoint) bool {
	_, ok := s.utxosByOutpoint[outpoint]
	return ok
}

// Len returns the number of UTXOs in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.utxosByOutpoint)
}

// SortedIterator returns an iterator over the snapshot's UTXOs in ascending
// (amount, outpoint) order.
func (s *Snapshot) SortedIterator() Iterator {
	return &snapshotIterator{snapshot: s, nextIndex: 0}
}

type snapshotIterator struct {
	snapshot  *Snapshot
	nextIndex int
	current   *model.WalletUTXO
}

func (si *snapshotIterator) Next() bool {
	if si.nextIndex >= len(si.snapshot.keysSortedByAmount) {
		si.current = nil
		return false
	}
	key := si.snapshot.keysSortedByAmount[si.nextIndex]
	utxo, ok := si.snapshot.utxosByOutpoint[key.outpoint]
	if !ok {
		panic(fmt.Sprintf("snapshot sorted sequence contains unknown outpoint %s", key.outpoint))
	}
	si.current = utxo
	si.nextIndex++
	return true
}

func (si *snapshotIterator) Get() *model.WalletUTXO {
	return si.current
}
