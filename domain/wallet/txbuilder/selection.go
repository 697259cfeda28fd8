package txbuilder

import (
	"context"

	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/domain/wallet/model"
	"github.com/IgraLabs/kaswallet/domain/wallet/utxostore"
)

// mockScriptPublicKeySize is the size of the longest standard locking script
// (ECDSA pay-to-pubkey). Fee estimation sizes unknown outputs with it so the
// estimate never undershoots.
const mockScriptPublicKeySize = 35

// SelectionRequest describes what a selection run must fund.
type SelectionRequest struct {
	// TargetAmount is the total payment amount in sompi. Ignored when
	// SendAll is set.
	TargetAmount uint64

	// SendAll drains every eligible UTXO; the spendable amount is
	// whatever remains after the fee.
	SendAll bool

	// FeePolicy bounds the fee. nil means the default policy.
	FeePolicy FeePolicy

	// FromAddresses restricts candidates to UTXOs owned by these
	// addresses. Empty means no restriction.
	FromAddresses []*model.WalletAddress

	// Preselected outpoints are always included, ahead of the ascending
	// walk. They must exist in the view.
	Preselected []model.Outpoint

	// PaymentCount is the number of recipient outputs the transaction
	// will carry. Zero means one.
	PaymentCount int
}

// Selection is a successful selection run.
type Selection struct {
	UTXOs      []*model.WalletUTXO
	TotalValue uint64

	// Fee is the estimated fee the selection funds.
	Fee uint64

	// ChangeSompi is the leftover returning to the wallet. Zero either
	// when the selection landed exactly or when the leftover was too
	// small to be worth an output and was folded into Fee.
	ChangeSompi uint64

	// SpendableAmount is the recipient amount. For fixed targets it
	// equals the request's TargetAmount; for SendAll it is what remained
	// after the fee.
	SpendableAmount uint64

	feeRate float64
	maxFee  uint64
}

// Select picks UTXOs out of the view to fund the request. It walks the
// view's ascending (amount, outpoint) order, so small UTXOs are consolidated
// first. On any shortfall no partial result is returned.
func (b *Builder) Select(ctx context.Context, view utxostore.View, request *SelectionRequest) (*Selection, error) {
	estimate, err := b.node.GetFeeEstimate(ctx)
	if err != nil {
		return nil, errors.Wrapf(model.ErrTransientFetch, "fetching fee estimate: %s", err)
	}
	feeRate, maxFee, err := b.resolveFeeLimits(estimate, request.FeePolicy)
	if err != nil {
		return nil, err
	}
	virtualDAAScore, err := b.node.GetVirtualDAAScore(ctx)
	if err != nil {
		return nil, errors.Wrapf(model.ErrTransientFetch, "fetching virtual DAA score: %s", err)
	}

	paymentCount := request.PaymentCount
	if paymentCount == 0 {
		paymentCount = 1
	}
	// The restriction is checked once per candidate, so it is converted
	// to a set up front.
	var restriction map[model.WalletAddress]struct{}
	if len(request.FromAddresses) > 0 {
		restriction = make(map[model.WalletAddress]struct{}, len(request.FromAddresses))
		for _, walletAddress := range request.FromAddresses {
			restriction[*walletAddress] = struct{}{}
		}
	}

	selected := make([]*model.WalletUTXO, 0, len(request.Preselected))
	selectedOutpoints := make(map[model.Outpoint]struct{}, len(request.Preselected))
	totalValue := uint64(0)
	for _, outpoint := range request.Preselected {
		utxo, ok := view.Get(outpoint)
		if !ok {
			return nil, errors.Wrapf(model.ErrUserInput, "preselected outpoint %s is not spendable", outpoint)
		}
		selected = append(selected, utxo)
		selectedOutpoints[outpoint] = struct{}{}
		totalValue += utxo.UTXOEntry.Amount
	}

	estimateFee := func(changeOutput bool) uint64 {
		outputCount := paymentCount
		if changeOutput {
			outputCount++
		}
		mass := b.selectionMass(selected, outputCount)
		return feeForMass(mass, feeRate, maxFee)
	}

	fee := estimateFee(!request.SendAll)
	restrictionMatched := false
	done := func() bool {
		if request.SendAll {
			return false
		}
		if totalValue == request.TargetAmount+fee {
			return true
		}
		return totalValue >= request.TargetAmount+fee+minChangeTarget && len(selected) >= 2
	}

	iterator := view.SortedIterator()
	for !done() && iterator.Next() {
		utxo := iterator.Get()
		if _, alreadySelected := selectedOutpoints[utxo.Outpoint]; alreadySelected {
			continue
		}
		if restriction != nil {
			if _, ok := restriction[*utxo.Address]; !ok {
				continue
			}
			restrictionMatched = true
		}
		if !isUTXOSpendable(utxo.UTXOEntry, virtualDAAScore, b.params.BlockCoinbaseMaturity) {
			continue
		}

		selected = append(selected, utxo)
		selectedOutpoints[utxo.Outpoint] = struct{}{}
		totalValue += utxo.UTXOEntry.Amount
		// The fee moves with every accepted input, so it is re-estimated
		// before the stop conditions are re-checked.
		fee = estimateFee(!request.SendAll)
	}

	if request.SendAll {
		if restriction != nil && !restrictionMatched {
			return nil, errors.Wrapf(model.ErrRestrictionUnsatisfiable,
				"no spendable UTXO belongs to any of the %d requested addresses", len(request.FromAddresses))
		}
		if totalValue <= fee {
			return nil, errors.Wrapf(model.ErrInsufficientFunds,
				"total funds %d do not cover the fee %d", totalValue, fee)
		}
		return &Selection{
			UTXOs:           selected,
			TotalValue:      totalValue,
			Fee:             fee,
			SpendableAmount: totalValue - fee,
			feeRate:         feeRate,
			maxFee:          maxFee,
		}, nil
	}

	if totalValue < request.TargetAmount+fee {
		if restriction != nil && !restrictionMatched {
			return nil, errors.Wrapf(model.ErrRestrictionUnsatisfiable,
				"no spendable UTXO belongs to any of the %d requested addresses", len(request.FromAddresses))
		}
		return nil, errors.Wrapf(model.ErrInsufficientFunds,
			"have %d sompi, need %d (amount %d + fee %d)",
			totalValue, request.TargetAmount+fee, request.TargetAmount, fee)
	}

	changeSompi := totalValue - request.TargetAmount - fee
	if changeSompi > 0 && changeSompi < minimumChangeSompi {
		fee += changeSompi
		changeSompi = 0
	}
	return &Selection{
		UTXOs:           selected,
		TotalValue:      totalValue,
		Fee:             fee,
		ChangeSompi:     changeSompi,
		SpendableAmount: request.TargetAmount,
		feeRate:         feeRate,
		maxFee:          maxFee,
	}, nil
}

// selectionMass estimates the post-signature mass of a transaction spending
// the given UTXOs into outputCount worst-case outputs.
func (b *Builder) selectionMass(selected []*model.WalletUTXO, outputCount int) uint64 {
	inputs := make([]*model.TransactionInput, len(selected))
	for i, utxo := range selected {
		inputs[i] = &model.TransactionInput{PreviousOutpoint: utxo.Outpoint}
	}
	outputs := make([]*model.TransactionOutput, outputCount)
	for i := range outputs {
		outputs[i] = &model.TransactionOutput{
			ScriptPublicKey: &model.ScriptPublicKey{Script: make([]byte, mockScriptPublicKeySize)},
		}
	}
	return b.estimateMassAfterSignatures(&model.Transaction{Inputs: inputs, Outputs: outputs})
}

// isUTXOSpendable reports whether the entry may be spent at the given DAA
// score. Coinbase outputs wait out the maturity window; everything else,
// mempool outputs included, is immediately spendable.
func isUTXOSpendable(entry *model.UTXOEntry, virtualDAAScore, maturity uint64) bool {
	if !entry.IsCoinbase {
		return true
	}
	return entry.BlockDAAScore+maturity <= virtualDAAScore
}
