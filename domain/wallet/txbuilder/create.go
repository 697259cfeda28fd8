package txbuilder

import (
	"context"

	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/domain/wallet/model"
	"github.com/IgraLabs/kaswallet/domain/wallet/utxostore"
)

// BuildRequest describes one unsigned-transaction build end to end.
type BuildRequest struct {
	// Payments are the recipient payments. With SendAll exactly one
	// payment is expected and its Amount is ignored.
	Payments []*model.Payment

	SendAll       bool
	FeePolicy     FeePolicy
	FromAddresses []*model.WalletAddress
	Preselected   []model.Outpoint

	// ChangeAddress receives leftover funds and anchors split chains.
	ChangeAddress string

	// ChangeOwner is the derivation record behind ChangeAddress, used
	// for the overlay's ownership bookkeeping.
	ChangeOwner *model.WalletAddress
}

// CreateUnsignedTransactions selects, assembles and, when necessary, splits.
// The result is one transaction, or a chain of split transactions whose last
// element merges them and carries the requested payments.
func (b *Builder) CreateUnsignedTransactions(ctx context.Context, view utxostore.View,
	request *BuildRequest) ([]*model.PendingTransaction, error) {

	if len(request.Payments) == 0 {
		return nil, errors.Wrap(model.ErrUserInput, "no payments requested")
	}
	if request.SendAll && len(request.Payments) != 1 {
		return nil, errors.Wrap(model.ErrUserInput, "send-all supports exactly one recipient")
	}
	if len(request.FromAddresses) > 0 && len(request.Preselected) > 0 {
		return nil, errors.Wrap(model.ErrUserInput, "from-addresses and preselected UTXOs are mutually exclusive")
	}
	if request.ChangeAddress == "" {
		return nil, errors.Wrap(model.ErrUserInput, "missing change address")
	}

	targetAmount := uint64(0)
	for _, payment := range request.Payments {
		if !request.SendAll && payment.Amount == 0 {
			return nil, errors.Wrapf(model.ErrUserInput, "zero-amount payment to %s", payment.Address)
		}
		targetAmount += payment.Amount
	}

	selection, err := b.Select(ctx, view, &SelectionRequest{
		TargetAmount:  targetAmount,
		SendAll:       request.SendAll,
		FeePolicy:     request.FeePolicy,
		FromAddresses: request.FromAddresses,
		Preselected:   request.Preselected,
		PaymentCount:  len(request.Payments),
	})
	if err != nil {
		return nil, err
	}

	payments := request.Payments
	paymentOwners := make([]*model.WalletAddress, len(payments))
	if request.SendAll {
		payments = []*model.Payment{{Address: payments[0].Address, Amount: selection.SpendableAmount}}
	} else if selection.ChangeSompi > 0 {
		payments = append(append([]*model.Payment{}, payments...),
			&model.Payment{Address: request.ChangeAddress, Amount: selection.ChangeSompi})
		paymentOwners = append(paymentOwners, request.ChangeOwner)
	}

	pendingTransaction, err := b.BuildTransaction(selection.UTXOs, payments, paymentOwners)
	if err != nil {
		return nil, err
	}

	transactions, err := b.maybeSplitTransaction(pendingTransaction, selection.feeRate, selection.maxFee,
		request.ChangeAddress, request.ChangeOwner)
	if err != nil {
		return nil, err
	}
	if len(transactions) > 1 {
		log.Infof("Transaction exceeded the standard mass limit, built a %d-transaction split chain",
			len(transactions))
	}
	return transactions, nil
}

// BuildTransaction assembles an unsigned transaction spending the selected
// UTXOs into the given payments. paymentOwners is index-aligned with
// payments; nil marks an output that does not pay back to the wallet.
func (b *Builder) BuildTransaction(selected []*model.WalletUTXO, payments []*model.Payment,
	paymentOwners []*model.WalletAddress) (*model.PendingTransaction, error) {

	if len(paymentOwners) != len(payments) {
		return nil, errors.Errorf("got %d payment owners for %d payments", len(paymentOwners), len(payments))
	}

	inputs := make([]*model.TransactionInput, len(selected))
	entries := make([]*model.UTXOEntry, len(selected))
	inputOwners := make([]*model.WalletAddress, len(selected))
	for i, utxo := range selected {
		inputs[i] = &model.TransactionInput{
			PreviousOutpoint: utxo.Outpoint,
			SigOpCount:       byte(b.minimumSignatures),
		}
		entries[i] = utxo.UTXOEntry
		inputOwners[i] = utxo.Address
	}

	outputs := make([]*model.TransactionOutput, len(payments))
	for i, payment := range payments {
		scriptPublicKey, err := b.scripter.PayToAddressScript(payment.Address)
		if err != nil {
			return nil, errors.Wrapf(model.ErrUserInput, "bad payment address %s: %s", payment.Address, err)
		}
		outputs[i] = &model.TransactionOutput{Value: payment.Amount, ScriptPublicKey: scriptPublicKey}
	}

	return &model.PendingTransaction{
		Tx: &model.Transaction{
			Version: 0,
			Inputs:  inputs,
			Outputs: outputs,
		},
		Entries:            entries,
		OwnerByInputIndex:  inputOwners,
		OwnerByOutputIndex: paymentOwners,
	}, nil
}
