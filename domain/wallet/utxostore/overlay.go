package utxostore

import (
	"sort"

	"github.com/IgraLabs/kaswallet/domain/consensushashing"
	"github.com/IgraLabs/kaswallet/domain/dagconfig"
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

// OverlayView adjusts a base snapshot for in-flight transactions: outpoints
// their inputs consume are hidden, and their wallet-owned outputs appear as
// spendable UTXOs. The base snapshot is not touched; the overlay only layers
// deltas on top of it.
type OverlayView struct {
	base     *Snapshot
	excluded map[model.Outpoint]struct{}
	added    map[model.Outpoint]*model.WalletUTXO

	addedKeysSortedByAmount []amountKey
	length                  int
}

// NewOverlayView builds an overlay of base adjusted for the given pending
// transactions. Outputs of one pending transaction consumed by another are
// dropped from the overlay entirely.
func NewOverlayView(base *Snapshot, pending []*model.PendingTransaction) *OverlayView {
	excluded := make(map[model.Outpoint]struct{})
	for _, pendingTransaction := range pending {
		for _, outpoint := range pendingTransaction.ConsumedOutpoints() {
			excluded[outpoint] = struct{}{}
		}
	}

	added := make(map[model.Outpoint]*model.WalletUTXO)
	for _, pendingTransaction := range pending {
		transactionID := consensushashing.TransactionID(pendingTransaction.Tx)
		for i, output := range pendingTransaction.Tx.Outputs {
			owner := pendingTransaction.OwnerByOutputIndex[i]
			if owner == nil {
				continue
			}
			outpoint := model.NewOutpoint(transactionID, uint32(i))
			if _, isExcluded := excluded[outpoint]; isExcluded {
				continue
			}
			if base.Contains(outpoint) {
				// Already confirmed; the base entry wins.
				continue
			}
			// Pending outputs carry the unaccepted DAA score, which
			// marks them pending for balance purposes. They are never
			// coinbase outputs, so no maturity wait applies.
			entry := model.NewUTXOEntry(
				output.Value, output.ScriptPublicKey.Clone(), dagconfig.UnacceptedDAAScore, false)
			added[outpoint] = model.NewWalletUTXO(outpoint, entry, owner)
		}
	}

	addedKeysSortedByAmount := make([]amountKey, 0, len(added))
	for outpoint, utxo := range added {
		addedKeysSortedByAmount = append(addedKeysSortedByAmount, amountKey{
			amount:   utxo.UTXOEntry.Amount,
			outpoint: outpoint,
		})
	}
	sort.Slice(addedKeysSortedByAmount, func(i, j int) bool {
		return addedKeysSortedByAmount[i].less(addedKeysSortedByAmount[j])
	})

	excludedInBase := 0
	for outpoint := range excluded {
		if base.Contains(outpoint) {
			excludedInBase++
		}
	}

	return &OverlayView{
		base:                    base,
		excluded:                excluded,
		added:                   added,
		addedKeysSortedByAmount: addedKeysSortedByAmount,
		length:                  base.Len() - excludedInBase + len(added),
	}
}

// Get returns the UTXO locked under the given outpoint, if the overlay
// considers it spendable.
func (ov *OverlayView) Get(outpoint model.Outpoint) (*model.WalletUTXO, bool) {
	if _, isExcluded := ov.excluded[outpoint]; isExcluded {
		return nil, false
	}
	if utxo, ok := ov.added[outpoint]; ok {
		return utxo, true
	}
	return ov.base.Get(outpoint)
}

// Contains reports whether the given outpoint is spendable under the overlay.
func (ov *OverlayView) Contains(outpoint model.Outpoint) bool {
	_, ok := ov.Get(outpoint)
	return ok
}

// Len returns the number of UTXOs visible through the overlay.
func (ov *OverlayView) Len() int {
	return ov.length
}

// SortedIterator returns an iterator over the overlay's UTXOs in ascending
// (amount, outpoint) order, merging the base sequence with the pending
// additions on the fly.
func (ov *OverlayView) SortedIterator() Iterator {
	return &overlayIterator{overlay: ov}
}

type overlayIterator struct {
	overlay    *OverlayView
	baseIndex  int
	addedIndex int
	current    *model.WalletUTXO
}

func (oi *overlayIterator) Next() bool {
	ov := oi.overlay

	// Advance past base keys the overlay hides.
	for oi.baseIndex < len(ov.base.keysSortedByAmount) {
		if _, isExcluded := ov.excluded[ov.base.keysSortedByAmount[oi.baseIndex].outpoint]; !isExcluded {
			break
		}
		oi.baseIndex++
	}

	baseHasNext := oi.baseIndex < len(ov.base.keysSortedByAmount)
	addedHasNext := oi.addedIndex < len(ov.addedKeysSortedByAmount)

	switch {
	case !baseHasNext && !addedHasNext:
		oi.current = nil
		return false
	case baseHasNext && (!addedHasNext ||
		ov.base.keysSortedByAmount[oi.baseIndex].less(ov.addedKeysSortedByAmount[oi.addedIndex])):
		utxo, _ := ov.base.Get(ov.base.keysSortedByAmount[oi.baseIndex].outpoint)
		oi.current = utxo
		oi.baseIndex++
	default:
		oi.current = ov.added[ov.addedKeysSortedByAmount[oi.addedIndex].outpoint]
		oi.addedIndex++
	}
	return true
}

func (oi *overlayIterator) Get() *model.WalletUTXO {
	return oi.current
}
