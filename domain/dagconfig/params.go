package dagconfig

// Constants for amounts denominated in sompi, the smallest unit of kaspa.
const (
	// SompiPerKaspa is the number of sompi in one kaspa.
	SompiPerKaspa = 100_000_000

	// UnacceptedDAAScore marks a UTXO entry that was not accepted to
	// consensus yet (e.g. an output of a not-yet-broadcast transaction).
	UnacceptedDAAScore = ^uint64(0)

	// MaximumStandardTransactionMass is the maximum mass (in grams) allowed
	// for transactions that are considered standard and will therefore be
	// relayed and considered for mining.
	MaximumStandardTransactionMass = 100_000
)

// Params defines the wallet-relevant parameters of a kaspa network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Prefix is the address prefix of the network.
	Prefix string

	// DefaultRPCPort is the default port of the node RPC server.
	DefaultRPCPort string

	// BlockCoinbaseMaturity is the number of DAA-score units required before
	// a coinbase output may be spent.
	BlockCoinbaseMaturity uint64

	// MassPerTxByte is the number of grams that any byte adds to a
	// transaction.
	MassPerTxByte uint64

	// MassPerScriptPubKeyByte is the number of grams that any
	// scriptPubKey byte adds to a transaction.
	MassPerScriptPubKeyByte uint64

	// MassPerSigOp is the number of grams that any signature operation adds
	// to a transaction.
	MassPerSigOp uint64
}

// MainnetParams defines the network parameters for the main kaspa network.
var MainnetParams = Params{
	Name:                    "kaspa-mainnet",
	Prefix:                  "kaspa",
	DefaultRPCPort:          "16110",
	BlockCoinbaseMaturity:   100,
	MassPerTxByte:           1,
	MassPerScriptPubKeyByte: 10,
	MassPerSigOp:            1000,
}

// TestnetParams defines the network parameters for the test kaspa network.
var TestnetParams = Params{
	Name:                    "kaspa-testnet",
	Prefix:                  "kaspatest",
	DefaultRPCPort:          "16210",
	BlockCoinbaseMaturity:   100,
	MassPerTxByte:           1,
	MassPerScriptPubKeyByte: 10,
	MassPerSigOp:            1000,
}

// SimnetParams defines the network parameters for the simulation test network.
var SimnetParams = Params{
	Name:                    "kaspa-simnet",
	Prefix:                  "kaspasim",
	DefaultRPCPort:          "16510",
	BlockCoinbaseMaturity:   100,
	MassPerTxByte:           1,
	MassPerScriptPubKeyByte: 10,
	MassPerSigOp:            1000,
}

// DevnetParams defines the network parameters for the development network.
var DevnetParams = Params{
	Name:                    "kaspa-devnet",
	Prefix:                  "kaspadev",
	DefaultRPCPort:          "16610",
	BlockCoinbaseMaturity:   100,
	MassPerTxByte:           1,
	MassPerScriptPubKeyByte: 10,
	MassPerSigOp:            1000,
}
