// Package pendingledger tracks transactions the wallet has handed off for
// broadcast until a consensus snapshot reflects them. The sync engine prunes
// the ledger on every publish; the overlay view and the transaction builder
// consult it in between.
package pendingledger

import (
	"sync"

	"github.com/IgraLabs/kaswallet/domain/consensushashing"
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
	"github.com/IgraLabs/kaswallet/domain/wallet/utxostore"
)

// Ledger is a concurrency-safe registry of pending transactions, keyed by
// transaction ID.
type Ledger struct {
	mutex   sync.Mutex
	pending map[model.TransactionID]*model.PendingTransaction
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{pending: make(map[model.TransactionID]*model.PendingTransaction)}
}

// Add registers a broadcast transaction. Re-adding the same transaction
// overwrites the previous record, which is harmless since both carry the same
// content.
func (l *Ledger) Add(pendingTransaction *model.PendingTransaction) {
	transactionID := consensushashing.TransactionID(pendingTransaction.Tx)

	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.pending[transactionID] = pendingTransaction
	log.Debugf("Tracking pending transaction %s (%d inputs, %d outputs)",
		transactionID, len(pendingTransaction.Tx.Inputs), len(pendingTransaction.Tx.Outputs))
}

// Transactions returns the currently pending transactions. The returned slice
// is a copy owned by the caller.
func (l *Ledger) Transactions() []*model.PendingTransaction {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	transactions := make([]*model.PendingTransaction, 0, len(l.pending))
	for _, pendingTransaction := range l.pending {
		transactions = append(transactions, pendingTransaction)
	}
	return transactions
}

// Len returns the number of pending transactions.
func (l *Ledger) Len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.pending)
}

// Prune drops every pending transaction the given snapshot no longer fully
// backs. A transaction stays tracked only while every outpoint it consumes
// still exists in the snapshot: once any of them is gone, the transaction was
// either accepted or double-spent, and in both cases the snapshot already
// reflects the outcome. Keeping a conflicted transaction around would exclude
// its surviving inputs from every overlay forever.
func (l *Ledger) Prune(snapshot *utxostore.Snapshot) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for transactionID, pendingTransaction := range l.pending {
		for _, outpoint := range pendingTransaction.ConsumedOutpoints() {
			if !snapshot.Contains(outpoint) {
				delete(l.pending, transactionID)
				log.Debugf("Pending transaction %s settled or conflicted, dropping it", transactionID)
				break
			}
		}
	}
}
