// Package utxostore maintains the wallet's view of its UTXO set: immutable
// snapshots of the confirmed set, an atomically published current snapshot,
// and overlay views that account for transactions the wallet has broadcast
// but the network has not yet confirmed.
package utxostore

import (
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

// Iterator walks a view's UTXOs in ascending (amount, outpoint) order.
// Call Next before the first Get.
type Iterator interface {
	Next() bool
	Get() *model.WalletUTXO
}

// View is a read-only UTXO set. Both bare snapshots and pending-aware
// overlays satisfy it, so consumers such as the transaction builder take a
// View and stay unaware of which one they were handed.
type View interface {
	Get(outpoint model.Outpoint) (*model.WalletUTXO, bool)
	Contains(outpoint model.Outpoint) bool
	Len() int
	SortedIterator() Iterator
}
