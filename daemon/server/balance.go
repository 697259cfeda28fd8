package server

import (
	"context"

	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/domain/dagconfig"
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
)

// AddressBalances is the balance of a single monitored address.
type AddressBalances struct {
	Address   string
	Available uint64
	Pending   uint64
}

// BalanceResponse is the wallet-wide balance plus the per-address breakdown.
type BalanceResponse struct {
	Available       uint64
	Pending         uint64
	AddressBalances []*AddressBalances
}

type balances struct{ available, pending uint64 }

// GetBalance sums the wallet's funds over one overlay view. Available are
// funds spendable right now; pending are unconfirmed incoming outputs and
// immature coinbase outputs.
func (s *Server) GetBalance(ctx context.Context) (*BalanceResponse, error) {
	if err := s.checkSynced(); err != nil {
		return nil, toStatus(err)
	}
	virtualDAAScore, err := s.node.GetVirtualDAAScore(ctx)
	if err != nil {
		return nil, toStatus(errors.Wrapf(model.ErrTransientFetch, "fetching virtual DAA score: %s", err))
	}

	maturity := s.params.BlockCoinbaseMaturity
	balancesMap := make(map[model.WalletAddress]*balances)
	view := s.currentView()
	iterator := view.SortedIterator()
	for iterator.Next() {
		utxo := iterator.Get()
		addressBalances, ok := balancesMap[*utxo.Address]
		if !ok {
			addressBalances = new(balances)
			balancesMap[*utxo.Address] = addressBalances
		}
		if isUTXOAvailable(utxo.UTXOEntry, virtualDAAScore, maturity) {
			addressBalances.available += utxo.UTXOEntry.Amount
		} else {
			addressBalances.pending += utxo.UTXOEntry.Amount
		}
	}

	response := &BalanceResponse{
		AddressBalances: make([]*AddressBalances, 0, len(balancesMap)),
	}
	for walletAddress, addressBalances := range balancesMap {
		walletAddress := walletAddress
		addressString, ok := s.directory.String(&walletAddress)
		if !ok {
			return nil, toStatus(errors.Wrapf(model.ErrUnresolvableOwner, "address %s", &walletAddress))
		}
		response.AddressBalances = append(response.AddressBalances, &AddressBalances{
			Address:   addressString,
			Available: addressBalances.available,
			Pending:   addressBalances.pending,
		})
		response.Available += addressBalances.available
		response.Pending += addressBalances.pending
	}
	return response, nil
}

// UTXOInfo is one listed UTXO.
type UTXOInfo struct {
	Outpoint  model.Outpoint
	Address   string
	Amount    uint64
	Available bool
}

// GetUTXOs lists the wallet's UTXOs from one overlay view, in ascending
// (amount, outpoint) order.
func (s *Server) GetUTXOs(ctx context.Context) ([]*UTXOInfo, error) {
	if err := s.checkSynced(); err != nil {
		return nil, toStatus(err)
	}
	virtualDAAScore, err := s.node.GetVirtualDAAScore(ctx)
	if err != nil {
		return nil, toStatus(errors.Wrapf(model.ErrTransientFetch, "fetching virtual DAA score: %s", err))
	}

	view := s.currentView()
	infos := make([]*UTXOInfo, 0, view.Len())
	iterator := view.SortedIterator()
	for iterator.Next() {
		utxo := iterator.Get()
		addressString, _ := s.directory.String(utxo.Address)
		infos = append(infos, &UTXOInfo{
			Outpoint:  utxo.Outpoint,
			Address:   addressString,
			Amount:    utxo.UTXOEntry.Amount,
			Available: isUTXOAvailable(utxo.UTXOEntry, virtualDAAScore, s.params.BlockCoinbaseMaturity),
		})
	}
	return infos, nil
}

// isUTXOAvailable reports whether the entry counts as available balance: in
// consensus, and past the maturity window if coinbase.
func isUTXOAvailable(entry *model.UTXOEntry, virtualDAAScore, coinbaseMaturity uint64) bool {
	if entry.BlockDAAScore == dagconfig.UnacceptedDAAScore {
		return false
	}
	if !entry.IsCoinbase {
		return true
	}
	return entry.BlockDAAScore+coinbaseMaturity <= virtualDAAScore
}
