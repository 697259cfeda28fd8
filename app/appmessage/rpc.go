// Package appmessage holds the wire shapes of the node RPC calls the wallet
// consumes, plus converters between them and the wallet's domain model.
package appmessage

// RPCError represents a rejection returned by the node RPC.
type RPCError struct {
	Message string
}

func (err *RPCError) Error() string { return err.Message }

// RPCErrorf formats according to a format specifier and returns the string as
// an RPCError.
func RPCErrorf(format string, args ...interface{}) *RPCError {
	return &RPCError{Message: formatMessage(format, args...)}
}

// RPCOutpoint is a transaction outpoint as it appears on the wire.
type RPCOutpoint struct {
	TransactionID string
	Index         uint32
}

// RPCScriptPublicKey is a script public key as it appears on the wire.
type RPCScriptPublicKey struct {
	Version uint16
	Script  string
}

// RPCUTXOEntry is a UTXO entry as it appears on the wire.
type RPCUTXOEntry struct {
	Amount          uint64
	ScriptPublicKey *RPCScriptPublicKey
	BlockDAAScore   uint64
	IsCoinbase      bool
}

// UTXOsByAddressesEntry is one result entry of the getUtxosByAddresses call.
type UTXOsByAddressesEntry struct {
	Address   string
	Outpoint  *RPCOutpoint
	UTXOEntry *RPCUTXOEntry
}

// RPCTransactionInput is a transaction input as it appears on the wire.
type RPCTransactionInput struct {
	PreviousOutpoint *RPCOutpoint
	SignatureScript  string
	Sequence         uint64
	SigOpCount       byte
}

// RPCTransactionOutputVerboseData holds the node-resolved metadata of an
// output, most importantly the address its script pays to.
type RPCTransactionOutputVerboseData struct {
	ScriptPublicKeyAddress string
}

// RPCTransactionOutput is a transaction output as it appears on the wire.
type RPCTransactionOutput struct {
	Amount          uint64
	ScriptPublicKey *RPCScriptPublicKey
	VerboseData     *RPCTransactionOutputVerboseData
}

// RPCTransactionVerboseData holds the node-resolved metadata of a
// transaction.
type RPCTransactionVerboseData struct {
	TransactionID string
}

// SubnetworkIDNative is the hex form of the all-zero native subnetwork ID.
// Wallet-built transactions always live on the native subnetwork.
const SubnetworkIDNative = "0000000000000000000000000000000000000000"

// RPCTransaction is a transaction as it appears on the wire.
type RPCTransaction struct {
	Version      uint16
	Inputs       []*RPCTransactionInput
	Outputs      []*RPCTransactionOutput
	LockTime     uint64
	SubnetworkID string
	Gas          uint64
	Payload      string
	VerboseData  *RPCTransactionVerboseData
}

// MempoolEntry is a mempool transaction as it appears on the wire.
type MempoolEntry struct {
	Fee         uint64
	Transaction *RPCTransaction
	IsOrphan    bool
}

// MempoolEntryByAddress groups the mempool entries relevant to one address
// into the entries spending from it and the entries paying to it.
type MempoolEntryByAddress struct {
	Address   string
	Sending   []*MempoolEntry
	Receiving []*MempoolEntry
}

// BlockDAGInfo is the subset of the getBlockDagInfo response the wallet
// consumes.
type BlockDAGInfo struct {
	NetworkName     string
	VirtualDAAScore uint64
}

// RPCFeerateBucket is a fee-rate estimation bucket.
type RPCFeerateBucket struct {
	Feerate          float64
	EstimatedSeconds float64
}

// RPCFeeEstimate is the node's current fee-rate estimation.
type RPCFeeEstimate struct {
	PriorityBucket *RPCFeerateBucket
	NormalBuckets  []*RPCFeerateBucket
	LowBuckets     []*RPCFeerateBucket
}

// UTXOsChangedNotification is a single notification of the utxosChanged
// stream: the entries added to and removed from the monitored addresses'
// UTXO set since the previous notification.
type UTXOsChangedNotification struct {
	Added   []*UTXOsByAddressesEntry
	Removed []*UTXOsByAddressesEntry
}
