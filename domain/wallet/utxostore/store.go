package utxostore

import (
	"sync/atomic"

	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

// Store holds the wallet's current UTXO snapshot. Publish replaces it with a
// single atomic pointer swap, so readers always observe a complete snapshot
// and never block a concurrent publish. Snapshots handed out by Current stay
// valid for as long as the caller holds them.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a Store holding an empty snapshot.
func NewStore() *Store {
	store := &Store{}
	store.current.Store(NewSnapshot(nil))
	return store
}

// Current returns the currently published snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Publish atomically replaces the current snapshot.
func (s *Store) Publish(snapshot *Snapshot) {
	s.current.Store(snapshot)
}

// OverlayCurrent returns a view of the current snapshot adjusted for the
// given pending transactions. With no pending transactions the snapshot
// itself is returned, avoiding the overlay allocation on the common path.
func (s *Store) OverlayCurrent(pending []*model.PendingTransaction) View {
	current := s.Current()
	if len(pending) == 0 {
		return current
	}
	return NewOverlayView(current, pending)
}
