package model

// ScriptPublicKey represents a transaction output's locking script.
type ScriptPublicKey struct {
	Script  []byte
	Version uint16
}

// Clone returns a deep copy of the ScriptPublicKey.
func (spk *ScriptPublicKey) Clone() *ScriptPublicKey {
	scriptClone := make([]byte, len(spk.Script))
	copy(scriptClone, spk.Script)
	return &ScriptPublicKey{Script: scriptClone, Version: spk.Version}
}

// UTXOEntry houses the consensus details of a single unspent transaction
// output.
type UTXOEntry struct {
	Amount          uint64
	ScriptPublicKey *ScriptPublicKey
	BlockDAAScore   uint64
	IsCoinbase      bool
}

// NewUTXOEntry creates a new UTXOEntry.
func NewUTXOEntry(amount uint64, scriptPublicKey *ScriptPublicKey, blockDAAScore uint64, isCoinbase bool) *UTXOEntry {
	return &UTXOEntry{
		Amount:          amount,
		ScriptPublicKey: scriptPublicKey,
		BlockDAAScore:   blockDAAScore,
		IsCoinbase:      isCoinbase,
	}
}

// WalletUTXO is a UTXO paying to one of the wallet's monitored addresses,
// together with its owner record. Immutable once constructed.
type WalletUTXO struct {
	Outpoint  Outpoint
	UTXOEntry *UTXOEntry
	Address   *WalletAddress
}

// NewWalletUTXO creates a new WalletUTXO.
func NewWalletUTXO(outpoint Outpoint, utxoEntry *UTXOEntry, address *WalletAddress) *WalletUTXO {
	return &WalletUTXO{Outpoint: outpoint, UTXOEntry: utxoEntry, Address: address}
}
