package txbuilder

import (
	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/domain/consensushashing"
	"github.com/IgraLabs/kaswallet/domain/dagconfig"
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

// maybeSplitTransaction returns the transaction unchanged while it fits the
// standard mass limit. Past the limit it consolidates the inputs through
// split transactions paying to splitAddress, then a merge transaction
// spending the consolidated outputs to the original payments. The merge
// transaction is last in the returned slice and is itself re-split if still
// too heavy.
func (b *Builder) maybeSplitTransaction(pendingTransaction *model.PendingTransaction,
	feeRate float64, maxFee uint64, splitAddress string, splitOwner *model.WalletAddress) (
	[]*model.PendingTransaction, error) {

	mass := b.estimateMassAfterSignatures(pendingTransaction.Tx)
	if mass <= dagconfig.MaximumStandardTransactionMass {
		return []*model.PendingTransaction{pendingTransaction}, nil
	}

	capacity, err := b.inputsPerSplit(splitAddress)
	if err != nil {
		return nil, err
	}
	inputCount := len(pendingTransaction.Tx.Inputs)
	if inputCount <= capacity {
		// The transaction is over the limit for a reason splitting
		// cannot fix, e.g. a huge payload or output count.
		return nil, errors.Errorf("transaction mass %d exceeds the standard limit %d "+
			"and cannot be reduced by splitting", mass, dagconfig.MaximumStandardTransactionMass)
	}

	splitCount := (inputCount + capacity - 1) / capacity
	consumed := walletUTXOsOf(pendingTransaction)

	splitTransactions := make([]*model.PendingTransaction, 0, splitCount+1)
	baseSize := inputCount / splitCount
	remainder := inputCount % splitCount
	startIndex := 0
	for i := 0; i < splitCount; i++ {
		chunkSize := baseSize
		if i < remainder {
			chunkSize++
		}
		splitTransaction, err := b.createSplitTransaction(consumed[startIndex:startIndex+chunkSize],
			feeRate, maxFee, splitAddress, splitOwner)
		if err != nil {
			return nil, err
		}
		splitTransactions = append(splitTransactions, splitTransaction)
		startIndex += chunkSize
	}

	mergeTransaction, err := b.createMergeTransaction(splitTransactions, pendingTransaction,
		feeRate, maxFee, splitOwner)
	if err != nil {
		return nil, err
	}

	// The merge transaction spends far fewer inputs than the original, so
	// this recursion bottoms out quickly.
	mergeChain, err := b.maybeSplitTransaction(mergeTransaction, feeRate, maxFee, splitAddress, splitOwner)
	if err != nil {
		return nil, err
	}
	return append(splitTransactions, mergeChain...), nil
}

// inputsPerSplit derives how many inputs fit in one split transaction: the
// mass budget left beside a single split output, divided by the mass of one
// signed input.
func (b *Builder) inputsPerSplit(splitAddress string) (int, error) {
	splitScript, err := b.scripter.PayToAddressScript(splitAddress)
	if err != nil {
		return 0, errors.Wrapf(err, "bad split address %s", splitAddress)
	}
	splitOutput := &model.TransactionOutput{ScriptPublicKey: splitScript}

	baseMass := b.estimateMassAfterSignatures(&model.Transaction{
		Outputs: []*model.TransactionOutput{splitOutput},
	})
	oneInputMass := b.estimateMassAfterSignatures(&model.Transaction{
		Inputs:  []*model.TransactionInput{{}},
		Outputs: []*model.TransactionOutput{splitOutput},
	})
	perInputMass := oneInputMass - baseMass

	capacity := (dagconfig.MaximumStandardTransactionMass - baseMass) / perInputMass
	if capacity == 0 {
		return 0, errors.Errorf("a single signed input's mass %d exceeds the standard limit", perInputMass)
	}
	return int(capacity), nil
}

func (b *Builder) createSplitTransaction(chunk []*model.WalletUTXO, feeRate float64, maxFee uint64,
	splitAddress string, splitOwner *model.WalletAddress) (*model.PendingTransaction, error) {

	totalSompi := uint64(0)
	for _, utxo := range chunk {
		totalSompi += utxo.UTXOEntry.Amount
	}

	mass := b.selectionMass(chunk, 1)
	fee := feeForMass(mass, feeRate, maxFee)
	if totalSompi <= fee {
		return nil, errors.Wrapf(model.ErrInsufficientFunds,
			"split chunk value %d does not cover its fee %d", totalSompi, fee)
	}

	return b.BuildTransaction(chunk,
		[]*model.Payment{{Address: splitAddress, Amount: totalSompi - fee}},
		[]*model.WalletAddress{splitOwner})
}

// createMergeTransaction spends the split outputs back into the original
// payments. Split and merge fees come out of the original change; when the
// change cannot absorb them the build fails rather than short-pay a
// recipient.
func (b *Builder) createMergeTransaction(splitTransactions []*model.PendingTransaction,
	original *model.PendingTransaction, feeRate float64, maxFee uint64,
	splitOwner *model.WalletAddress) (*model.PendingTransaction, error) {

	consolidated := make([]*model.WalletUTXO, len(splitTransactions))
	availableSompi := uint64(0)
	for i, splitTransaction := range splitTransactions {
		output := splitTransaction.Tx.Outputs[0]
		outpoint := model.NewOutpoint(consensushashing.TransactionID(splitTransaction.Tx), 0)
		entry := model.NewUTXOEntry(output.Value, output.ScriptPublicKey.Clone(),
			dagconfig.UnacceptedDAAScore, false)
		consolidated[i] = model.NewWalletUTXO(outpoint, entry, splitOwner)
		availableSompi += output.Value
	}

	mergeMass := b.selectionMass(consolidated, len(original.Tx.Outputs))
	mergeFee := feeForMass(mergeMass, feeRate, maxFee)

	neededSompi := uint64(0)
	for _, output := range original.Tx.Outputs {
		neededSompi += output.Value
	}

	outputs := make([]*model.TransactionOutput, len(original.Tx.Outputs))
	outputOwners := make([]*model.WalletAddress, len(original.Tx.Outputs))
	for i, output := range original.Tx.Outputs {
		outputs[i] = &model.TransactionOutput{
			Value:           output.Value,
			ScriptPublicKey: output.ScriptPublicKey.Clone(),
		}
		outputOwners[i] = original.OwnerByOutputIndex[i]
	}

	if availableSompi < neededSompi+mergeFee {
		deficit := neededSompi + mergeFee - availableSompi
		outputs, outputOwners, err := absorbDeficit(outputs, outputOwners, deficit)
		if err != nil {
			return nil, err
		}
		return b.assembleMerge(consolidated, outputs, outputOwners, splitOwner)
	}

	// The rounding surplus, if any, lands on the last wallet-owned output.
	surplus := availableSompi - neededSompi - mergeFee
	if surplus > 0 {
		absorbed := false
		for i := len(outputs) - 1; i >= 0; i-- {
			if outputOwners[i] != nil {
				outputs[i].Value += surplus
				absorbed = true
				break
			}
		}
		if !absorbed {
			// No change output to grow; the surplus stays with the miners.
			log.Debugf("Folding %d sompi of split surplus into the merge fee", surplus)
		}
	}
	return b.assembleMerge(consolidated, outputs, outputOwners, splitOwner)
}

// absorbDeficit shrinks outputs, last first, until the deficit is covered.
// Wallet-owned change goes first; only when no change remains are the fees
// from the compound transactions deduced from the resulting amount, the way
// a send-all naturally absorbs them.
func absorbDeficit(outputs []*model.TransactionOutput, outputOwners []*model.WalletAddress,
	deficit uint64) ([]*model.TransactionOutput, []*model.WalletAddress, error) {

	for _, walletOwnedPass := range []bool{true, false} {
		for i := len(outputs) - 1; i >= 0 && deficit > 0; i-- {
			if (outputOwners[i] != nil) != walletOwnedPass {
				continue
			}
			if outputs[i].Value > deficit+minimumChangeSompi {
				outputs[i].Value -= deficit
				deficit = 0
				break
			}
			if !walletOwnedPass {
				// A recipient output may shrink but never vanish.
				return nil, nil, errors.Wrapf(model.ErrInsufficientFunds,
					"split and merge fees exceed the payment by %d sompi", deficit)
			}
			// The whole change output goes: anything left of it would
			// be dust.
			if outputs[i].Value > deficit {
				deficit = 0
			} else {
				deficit -= outputs[i].Value
			}
			outputs = append(outputs[:i], outputs[i+1:]...)
			outputOwners = append(outputOwners[:i], outputOwners[i+1:]...)
		}
		if deficit > 0 && !walletOwnedPass {
			return nil, nil, errors.Wrapf(model.ErrInsufficientFunds,
				"split and merge fees exceed the available outputs by %d sompi", deficit)
		}
	}
	return outputs, outputOwners, nil
}

func (b *Builder) assembleMerge(consolidated []*model.WalletUTXO, outputs []*model.TransactionOutput,
	outputOwners []*model.WalletAddress, splitOwner *model.WalletAddress) (*model.PendingTransaction, error) {

	inputs := make([]*model.TransactionInput, len(consolidated))
	entries := make([]*model.UTXOEntry, len(consolidated))
	inputOwners := make([]*model.WalletAddress, len(consolidated))
	for i, utxo := range consolidated {
		inputs[i] = &model.TransactionInput{
			PreviousOutpoint: utxo.Outpoint,
			SigOpCount:       byte(b.minimumSignatures),
		}
		entries[i] = utxo.UTXOEntry
		inputOwners[i] = splitOwner
	}
	return &model.PendingTransaction{
		Tx: &model.Transaction{
			Version: 0,
			Inputs:  inputs,
			Outputs: outputs,
		},
		Entries:            entries,
		OwnerByInputIndex:  inputOwners,
		OwnerByOutputIndex: outputOwners,
	}, nil
}

// walletUTXOsOf reconstructs the WalletUTXO records a pending transaction
// spends, in input order.
func walletUTXOsOf(pendingTransaction *model.PendingTransaction) []*model.WalletUTXO {
	utxos := make([]*model.WalletUTXO, len(pendingTransaction.Tx.Inputs))
	for i, input := range pendingTransaction.Tx.Inputs {
		utxos[i] = model.NewWalletUTXO(input.PreviousOutpoint,
			pendingTransaction.Entries[i], pendingTransaction.OwnerByInputIndex[i])
	}
	return utxos
}
