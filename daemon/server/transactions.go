package server

import (
	"context"

	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/app/appmessage"
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
	"github.com/IgraLabs/kaswallet/domain/wallet/txbuilder"
)

// CreateUnsignedTransactionsRequest describes a build request as a client
// states it, address strings included.
type CreateUnsignedTransactionsRequest struct {
	Payments []*model.Payment
	SendAll  bool

	// From restricts spending to UTXOs of these monitored addresses.
	From []string

	// Preselected pins exact outpoints to spend. Mutually exclusive with
	// From.
	Preselected []model.Outpoint

	// UseExistingChangeAddress reuses the first internal address instead
	// of advancing the change cursor.
	UseExistingChangeAddress bool

	FeePolicy txbuilder.FeePolicy
}

// CreateUnsignedTransactions validates the request and builds the unsigned
// transaction set: a single transaction, or a split chain ending in the
// merge transaction.
func (s *Server) CreateUnsignedTransactions(ctx context.Context,
	request *CreateUnsignedTransactionsRequest) ([]*model.PendingTransaction, error) {

	if err := s.checkSynced(); err != nil {
		return nil, toStatus(err)
	}

	fromAddresses, err := s.resolveFromAddresses(request.From)
	if err != nil {
		return nil, toStatus(err)
	}

	changeAddress, changeOwner, err := s.directory.ChangeAddress(request.UseExistingChangeAddress, fromAddresses)
	if err != nil {
		return nil, toStatus(err)
	}

	transactions, err := s.builder.CreateUnsignedTransactions(ctx, s.currentView(), &txbuilder.BuildRequest{
		Payments:      request.Payments,
		SendAll:       request.SendAll,
		FeePolicy:     request.FeePolicy,
		FromAddresses: fromAddresses,
		Preselected:   request.Preselected,
		ChangeAddress: changeAddress,
		ChangeOwner:   changeOwner,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return transactions, nil
}

// resolveFromAddresses maps the request's address strings to monitored
// derivation records. An unmonitored address is a user error.
func (s *Server) resolveFromAddresses(from []string) ([]*model.WalletAddress, error) {
	if len(from) == 0 {
		return nil, nil
	}
	ownerMap, _ := s.directory.AddressOwnerMap()
	fromAddresses := make([]*model.WalletAddress, len(from))
	for i, addressString := range from {
		walletAddress, ok := ownerMap[addressString]
		if !ok {
			return nil, errors.Wrapf(model.ErrUserInput, "address %s is not monitored by this wallet", addressString)
		}
		fromAddresses[i] = walletAddress
	}
	return fromAddresses, nil
}

// Broadcast submits a signed transaction to the node, registers it in the
// pending ledger and triggers a sync cycle so the overlay reflects it
// immediately. The pending transaction must carry the signed Tx.
func (s *Server) Broadcast(ctx context.Context, pendingTransaction *model.PendingTransaction) (string, error) {
	if err := s.checkSynced(); err != nil {
		return "", toStatus(err)
	}

	rpcTransaction := appmessage.DomainTransactionToRPCTransaction(pendingTransaction.Tx)
	transactionID, err := s.broadcaster.SubmitTransaction(ctx, rpcTransaction)
	if err != nil {
		return "", toStatus(errors.Wrapf(err, "submitting transaction"))
	}

	s.ledger.Add(pendingTransaction)
	s.engine.Trigger()
	log.Infof("Broadcasted transaction %s (%d inputs, %d outputs)",
		transactionID, len(pendingTransaction.Tx.Inputs), len(pendingTransaction.Tx.Outputs))
	return transactionID, nil
}
