// Package server is the wallet daemon's service layer: balance and UTXO
// queries, unsigned-transaction builds and broadcast, on top of the domain
// packages.
package server

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/IgraLabs/kaswallet/app/appmessage"
	"github.com/IgraLabs/kaswallet/domain/dagconfig"
	"github.com/IgraLabs/kaswallet/domain/wallet/addressdirectory"
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
	"github.com/IgraLabs/kaswallet/domain/wallet/pendingledger"
	"github.com/IgraLabs/kaswallet/domain/wallet/syncengine"
	"github.com/IgraLabs/kaswallet/domain/wallet/txbuilder"
	"github.com/IgraLabs/kaswallet/domain/wallet/utxostore"
)

// Broadcaster is the node capability the broadcast path consumes.
type Broadcaster interface {
	SubmitTransaction(ctx context.Context, transaction *appmessage.RPCTransaction) (string, error)
}

// VirtualDAAScoreGetter provides the DAA score queries use to classify
// coinbase maturity.
type VirtualDAAScoreGetter interface {
	GetVirtualDAAScore(ctx context.Context) (uint64, error)
}

// Server answers wallet queries. All methods are safe for concurrent use:
// each query works off one immutable view.
type Server struct {
	params      *dagconfig.Params
	store       *utxostore.Store
	ledger      *pendingledger.Ledger
	directory   *addressdirectory.Directory
	engine      *syncengine.Engine
	builder     *txbuilder.Builder
	broadcaster Broadcaster
	node        VirtualDAAScoreGetter
}

// New creates a Server over the given collaborators.
func New(params *dagconfig.Params, store *utxostore.Store, ledger *pendingledger.Ledger,
	directory *addressdirectory.Directory, engine *syncengine.Engine, builder *txbuilder.Builder,
	broadcaster Broadcaster, node VirtualDAAScoreGetter) *Server {

	return &Server{
		params:      params,
		store:       store,
		ledger:      ledger,
		directory:   directory,
		engine:      engine,
		builder:     builder,
		broadcaster: broadcaster,
		node:        node,
	}
}

// errNotSynced guards every query until the first sync cycle completed;
// before that any answer would be fabricated from an empty snapshot.
var errNotSynced = errors.New("wallet is not synced yet, retry shortly")

func (s *Server) checkSynced() error {
	if !s.engine.IsSynced() {
		return errNotSynced
	}
	return nil
}

// currentView returns the current snapshot overlaid with the pending
// transactions, the consistent read surface of a single query.
func (s *Server) currentView() utxostore.View {
	return s.store.OverlayCurrent(s.ledger.Transactions())
}

// toStatus maps a domain error to the gRPC status handed to clients.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, model.ErrUserInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrInsufficientFunds),
		errors.Is(err, model.ErrRestrictionUnsatisfiable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, model.ErrTransientFetch), errors.Is(err, errNotSynced):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
