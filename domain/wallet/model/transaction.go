package model

// Transaction is an unsigned (or partially built) kaspa transaction as the
// wallet sees it. Signing happens outside this repository; the wallet only
// reserves room for the signature scripts.
type Transaction struct {
	Version  uint16
	Inputs   []*TransactionInput
	Outputs  []*TransactionOutput
	LockTime uint64
	Payload  []byte
}

// TransactionInput represents a transaction input.
type TransactionInput struct {
	PreviousOutpoint Outpoint
	SignatureScript  []byte
	Sequence         uint64
	SigOpCount       byte
}

// TransactionOutput represents a transaction output.
type TransactionOutput struct {
	Value           uint64
	ScriptPublicKey *ScriptPublicKey
}

// Payment is a requested payment: an address string and an amount in sompi.
type Payment struct {
	Address string
	Amount  uint64
}

// PendingTransaction is a wallet-issued transaction that was handed off for
// broadcast but is not yet reflected by a consensus snapshot. It carries
// enough ownership bookkeeping for the pending overlay: which outpoints it
// consumes and which of its outputs pay back to the wallet.
type PendingTransaction struct {
	Tx *Transaction

	// Entries holds the UTXO entry spent by each input, index-aligned with
	// Tx.Inputs.
	Entries []*UTXOEntry

	// OwnerByInputIndex holds the owner record of each spent UTXO,
	// index-aligned with Tx.Inputs.
	OwnerByInputIndex []*WalletAddress

	// OwnerByOutputIndex is index-aligned with Tx.Outputs. A nil element
	// means the output does not pay to a monitored address.
	OwnerByOutputIndex []*WalletAddress
}

// ConsumedOutpoints returns the outpoints this transaction spends.
func (pt *PendingTransaction) ConsumedOutpoints() []Outpoint {
	outpoints := make([]Outpoint, len(pt.Tx.Inputs))
	for i, input := range pt.Tx.Inputs {
		outpoints[i] = input.PreviousOutpoint
	}
	return outpoints
}
