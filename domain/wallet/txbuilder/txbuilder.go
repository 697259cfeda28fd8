// Package txbuilder assembles unsigned transactions out of a UTXO view:
// coin selection, fee and mass estimation, change handling and, when a
// transaction grows past the standard mass limit, split/merge chains.
package txbuilder

import (
	"context"

	"github.com/IgraLabs/kaswallet/app/appmessage"
	"github.com/IgraLabs/kaswallet/domain/dagconfig"
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
	"github.com/IgraLabs/kaswallet/util/txmass"
)

const (
	// minChangeTarget is the change amount selection aims for when it
	// overshoots the target. Stopping below it tends to accumulate dust
	// in the wallet.
	minChangeTarget = 10 * dagconfig.SompiPerKaspa

	// minimumChangeSompi is the smallest change output worth creating.
	// Anything below it is folded into the fee.
	minimumChangeSompi = 10_000
)

// NodeInfo is the node capability the builder consumes: the DAA score for
// maturity checks and the current fee estimate.
type NodeInfo interface {
	GetVirtualDAAScore(ctx context.Context) (uint64, error)
	GetFeeEstimate(ctx context.Context) (*appmessage.RPCFeeEstimate, error)
}

// AddressScripter renders the locking script an address string stands for.
// Script construction stays outside this repository with the rest of the
// consensus code.
type AddressScripter interface {
	PayToAddressScript(address string) (*model.ScriptPublicKey, error)
}

// Builder creates unsigned transactions. Safe for concurrent use; all state
// is read-only after construction.
type Builder struct {
	params            *dagconfig.Params
	massCalculator    *txmass.Calculator
	signatureMass     SignatureMassEstimator
	minimumSignatures uint32
	node              NodeInfo
	scripter          AddressScripter
}

// New creates a Builder for the given network.
func New(params *dagconfig.Params, massCalculator *txmass.Calculator, signatureMass SignatureMassEstimator,
	minimumSignatures uint32, node NodeInfo, scripter AddressScripter) *Builder {

	return &Builder{
		params:            params,
		massCalculator:    massCalculator,
		signatureMass:     signatureMass,
		minimumSignatures: minimumSignatures,
		node:              node,
		scripter:          scripter,
	}
}

// estimateMassAfterSignatures returns the mass the given unsigned transaction
// will have once every input carries its signature script. The transaction
// itself is not modified.
func (b *Builder) estimateMassAfterSignatures(transaction *model.Transaction) uint64 {
	signatureScriptSize := b.signatureMass.SignatureScriptSize(b.minimumSignatures)
	signedInputs := make([]*model.TransactionInput, len(transaction.Inputs))
	for i, input := range transaction.Inputs {
		signedInputs[i] = &model.TransactionInput{
			PreviousOutpoint: input.PreviousOutpoint,
			SignatureScript:  make([]byte, signatureScriptSize),
			Sequence:         input.Sequence,
			SigOpCount:       byte(b.minimumSignatures),
		}
	}
	signed := &model.Transaction{
		Version:  transaction.Version,
		Inputs:   signedInputs,
		Outputs:  transaction.Outputs,
		LockTime: transaction.LockTime,
		Payload:  transaction.Payload,
	}
	return b.massCalculator.CalculateTransactionMass(signed)
}
