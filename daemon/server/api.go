package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/IgraLabs/kaswallet/app/appmessage"
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
	"github.com/IgraLabs/kaswallet/domain/wallet/txbuilder"
)

// PendingTransactionJSON is the wire form of a pending transaction: the
// transaction itself plus the bookkeeping a later broadcast needs back.
type PendingTransactionJSON struct {
	Transaction        *appmessage.RPCTransaction `json:"transaction"`
	Entries            []*appmessage.RPCUTXOEntry `json:"entries"`
	OwnerByInputIndex  []*model.WalletAddress     `json:"ownerByInputIndex"`
	OwnerByOutputIndex []*model.WalletAddress     `json:"ownerByOutputIndex"`
}

func pendingTransactionToJSON(pendingTransaction *model.PendingTransaction) *PendingTransactionJSON {
	entries := make([]*appmessage.RPCUTXOEntry, len(pendingTransaction.Entries))
	for i, entry := range pendingTransaction.Entries {
		entries[i] = appmessage.DomainUTXOEntryToRPCUTXOEntry(entry)
	}
	return &PendingTransactionJSON{
		Transaction:        appmessage.DomainTransactionToRPCTransaction(pendingTransaction.Tx),
		Entries:            entries,
		OwnerByInputIndex:  pendingTransaction.OwnerByInputIndex,
		OwnerByOutputIndex: pendingTransaction.OwnerByOutputIndex,
	}
}

func pendingTransactionFromJSON(encoded *PendingTransactionJSON) (*model.PendingTransaction, error) {
	transaction, err := appmessage.RPCTransactionToDomainTransaction(encoded.Transaction)
	if err != nil {
		return nil, err
	}
	entries := make([]*model.UTXOEntry, len(encoded.Entries))
	for i, entry := range encoded.Entries {
		entries[i], err = appmessage.RPCUTXOEntryToUTXOEntry(entry)
		if err != nil {
			return nil, err
		}
	}
	return &model.PendingTransaction{
		Tx:                 transaction,
		Entries:            entries,
		OwnerByInputIndex:  encoded.OwnerByInputIndex,
		OwnerByOutputIndex: encoded.OwnerByOutputIndex,
	}, nil
}

// createRequestJSON is the body of POST /transactions/create.
type createRequestJSON struct {
	Payments []*model.Payment `json:"payments"`
	SendAll  bool             `json:"sendAll"`
	From     []string         `json:"from"`

	// Preselected pins exact outpoints to spend. Mutually exclusive with
	// from.
	Preselected []*appmessage.RPCOutpoint `json:"preselected"`

	UseExistingChangeAddress bool `json:"useExistingChangeAddress"`

	// At most one of the fee fields may be set.
	ExactFeeRate float64 `json:"exactFeeRate"`
	MaxFeeRate   float64 `json:"maxFeeRate"`
	MaxFee       uint64  `json:"maxFee"`
}

func (request *createRequestJSON) feePolicy() txbuilder.FeePolicy {
	switch {
	case request.ExactFeeRate > 0:
		return txbuilder.ExactFeeRate(request.ExactFeeRate)
	case request.MaxFeeRate > 0:
		return txbuilder.MaxFeeRate(request.MaxFeeRate)
	case request.MaxFee > 0:
		return txbuilder.MaxFee(request.MaxFee)
	default:
		return nil
	}
}

// Serve answers the wallet API on the given listener until the context is
// cancelled. Transaction signing stays outside: create returns unsigned
// transactions and broadcast accepts them back with signature scripts
// filled in.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/balance", s.handleBalance)
	mux.HandleFunc("/utxos", s.handleUTXOs)
	mux.HandleFunc("/transactions/create", s.handleCreate)
	mux.HandleFunc("/transactions/broadcast", s.handleBroadcast)

	httpServer := &http.Server{Handler: mux}
	errChan := make(chan error, 1)
	spawn("Server.Serve", func() {
		errChan <- httpServer.Serve(listener)
	})
	log.Infof("Wallet API listening on %s", listener.Addr())

	select {
	case <-ctx.Done():
		return httpServer.Close()
	case err := <-errChan:
		return err
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"network": s.params.Name,
		"synced":  s.engine.IsSynced(),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	response, err := s.GetBalance(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleUTXOs(w http.ResponseWriter, r *http.Request) {
	infos, err := s.GetUTXOs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var request createRequestJSON
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	preselected := make([]model.Outpoint, len(request.Preselected))
	for i, rpcOutpoint := range request.Preselected {
		outpoint, err := appmessage.RPCOutpointToOutpoint(rpcOutpoint)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		preselected[i] = *outpoint
	}
	transactions, err := s.CreateUnsignedTransactions(r.Context(), &CreateUnsignedTransactionsRequest{
		Payments:                 request.Payments,
		SendAll:                  request.SendAll,
		From:                     request.From,
		Preselected:              preselected,
		UseExistingChangeAddress: request.UseExistingChangeAddress,
		FeePolicy:                request.feePolicy(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	encoded := make([]*PendingTransactionJSON, len(transactions))
	for i, pendingTransaction := range transactions {
		encoded[i] = pendingTransactionToJSON(pendingTransaction)
	}
	writeJSON(w, http.StatusOK, encoded)
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var encoded PendingTransactionJSON
	err := json.NewDecoder(r.Body).Decode(&encoded)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	pendingTransaction, err := pendingTransactionFromJSON(&encoded)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	transactionID, err := s.Broadcast(r.Context(), pendingTransaction)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transactionId": transactionID})
}

func writeJSON(w http.ResponseWriter, statusCode int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		log.Errorf("Writing API response: %s", err)
	}
}

// writeError renders a service error, reusing the gRPC code mapping for the
// HTTP status.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatusOf(err), map[string]string{"error": err.Error()})
}

func httpStatusOf(err error) int {
	switch status.Code(err) {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
