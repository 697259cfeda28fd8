// Package syncengine refreshes the wallet's UTXO snapshot from the node. A
// single goroutine runs refresh cycles, so snapshot construction is
// structurally serial; readers only ever meet the published result.
package syncengine

import (
	"context"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/app/appmessage"
	"github.com/IgraLabs/kaswallet/domain/dagconfig"
	"github.com/IgraLabs/kaswallet/domain/wallet/addressdirectory"
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
	"github.com/IgraLabs/kaswallet/domain/wallet/pendingledger"
	"github.com/IgraLabs/kaswallet/domain/wallet/utxostore"
	"github.com/IgraLabs/kaswallet/infrastructure/logger"
)

// RPCFetcher is the node capability the engine consumes. Implementations
// live in infrastructure/network/rpcclient.
type RPCFetcher interface {
	GetUTXOsByAddresses(ctx context.Context, addresses []string) ([]*appmessage.UTXOsByAddressesEntry, error)
	GetMempoolEntriesByAddresses(ctx context.Context, addresses []string) ([]*appmessage.MempoolEntryByAddress, error)
	GetBlockDAGInfo(ctx context.Context) (*appmessage.BlockDAGInfo, error)
}

// UTXOChangeNotifier is an optional node capability: a subscription that
// fires whenever the UTXO set of a monitored address changes. The engine
// uses it purely as an extra refresh trigger.
type UTXOChangeNotifier interface {
	NotifyUTXOsChanged(addresses []string, onChanged func()) error
}

// Config carries the engine's tunables.
type Config struct {
	// SyncInterval is the periodic refresh interval.
	SyncInterval time.Duration
}

// DefaultSyncInterval mirrors the node's mempool-scan cadence.
const DefaultSyncInterval = 10 * time.Second

// Engine drives the refresh cycles. Create with New, then call Run from a
// dedicated goroutine.
type Engine struct {
	fetcher   RPCFetcher
	notifier  UTXOChangeNotifier
	directory *addressdirectory.Directory
	store     *utxostore.Store
	ledger    *pendingledger.Ledger
	interval  time.Duration

	triggerChan   chan struct{}
	firstSyncDone chan struct{}
	synced        uint32
}

// New creates an Engine. notifier may be nil when the node connection does
// not support change subscriptions.
func New(cfg *Config, fetcher RPCFetcher, notifier UTXOChangeNotifier,
	directory *addressdirectory.Directory, store *utxostore.Store, ledger *pendingledger.Ledger) *Engine {

	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Engine{
		fetcher:       fetcher,
		notifier:      notifier,
		directory:     directory,
		store:         store,
		ledger:        ledger,
		interval:      interval,
		triggerChan:   make(chan struct{}, 1),
		firstSyncDone: make(chan struct{}),
	}
}

// Trigger requests an immediate refresh cycle. Non-blocking: a trigger that
// arrives while one is already queued coalesces with it.
func (e *Engine) Trigger() {
	select {
	case e.triggerChan <- struct{}{}:
	default:
	}
}

// IsSynced reports whether at least one refresh cycle has completed.
func (e *Engine) IsSynced() bool {
	return atomic.LoadUint32(&e.synced) == 1
}

// FirstSyncDone returns a channel closed once the first refresh cycle
// completes.
func (e *Engine) FirstSyncDone() <-chan struct{} {
	return e.firstSyncDone
}

// Run executes refresh cycles until the context is cancelled: once
// immediately, then on every tick and on every trigger. It never returns a
// transient fetch error; those are logged and retried on the next cycle.
func (e *Engine) Run(ctx context.Context) error {
	if e.notifier != nil {
		addresses, _ := e.directory.MonitoredAddresses()
		err := e.notifier.NotifyUTXOsChanged(addresses, e.Trigger)
		if err != nil {
			log.Warnf("UTXO change subscription unavailable, relying on polling: %s", err)
		}
	}

	e.runCycle(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.runCycle(ctx)
		case <-e.triggerChan:
			e.runCycle(ctx)
		}
	}
}

func (e *Engine) runCycle(ctx context.Context) {
	err := e.syncCycle(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Warnf("Sync cycle failed, keeping previous snapshot: %s", err)
		return
	}
	if atomic.CompareAndSwapUint32(&e.synced, 0, 1) {
		close(e.firstSyncDone)
	}
}

// syncCycle refreshes the published snapshot. Any error aborts the cycle
// before Publish, so the previous snapshot stays authoritative.
func (e *Engine) syncCycle(ctx context.Context) error {
	onEnd := logger.LogAndMeasureExecutionTime(log, "syncCycle")
	defer onEnd()

	addresses, _ := e.directory.MonitoredAddresses()
	ownerMap, _ := e.directory.AddressOwnerMap()

	// It's important to fetch the mempool before fetching the UTXOs, so
	// in case a transaction is accepted between the two fetches we don't
	// end up with missing UTXOs: it will simply appear in both results
	// and the consensus entry wins.
	mempoolEntries, err := e.fetcher.GetMempoolEntriesByAddresses(ctx, addresses)
	if err != nil {
		return errors.Wrapf(model.ErrTransientFetch, "fetching mempool entries: %s", err)
	}
	utxoEntries, err := e.fetcher.GetUTXOsByAddresses(ctx, addresses)
	if err != nil {
		return errors.Wrapf(model.ErrTransientFetch, "fetching UTXO entries: %s", err)
	}

	excluded, err := mempoolExclusionSet(mempoolEntries)
	if err != nil {
		return err
	}

	utxos, usedAddresses, err := e.collectConsensusUTXOs(utxoEntries, ownerMap, excluded)
	if err != nil {
		return err
	}
	utxos, err = e.mergeReceivingMempoolOutputs(utxos, mempoolEntries, ownerMap, excluded)
	if err != nil {
		return err
	}

	fresh := utxostore.NewSnapshot(utxos)
	e.store.Publish(fresh)
	e.ledger.Prune(fresh)
	e.directory.MarkUsed(usedAddresses)

	log.Debugf("Published snapshot with %d UTXOs (%d outpoints excluded as mempool-spent)",
		fresh.Len(), len(excluded))
	return nil
}

// mempoolExclusionSet collects the outpoints consumed by sending mempool
// entries. Those UTXOs are still reported by the node as unspent, but
// spending them again would conflict with the in-flight transaction.
func mempoolExclusionSet(mempoolEntries []*appmessage.MempoolEntryByAddress) (map[model.Outpoint]struct{}, error) {
	excluded := make(map[model.Outpoint]struct{})
	for _, entriesByAddress := range mempoolEntries {
		for _, entry := range entriesByAddress.Sending {
			if entry.Transaction == nil {
				log.Warnf("Skipping malformed sending mempool entry for %s", entriesByAddress.Address)
				continue
			}
			for _, input := range entry.Transaction.Inputs {
				outpoint, err := appmessage.RPCOutpointToOutpoint(input.PreviousOutpoint)
				if err != nil {
					if errors.Is(err, appmessage.ErrMalformedEntry) {
						log.Warnf("Skipping malformed mempool input: %s", err)
						continue
					}
					return nil, err
				}
				excluded[*outpoint] = struct{}{}
			}
		}
	}
	return excluded, nil
}

func (e *Engine) collectConsensusUTXOs(utxoEntries []*appmessage.UTXOsByAddressesEntry,
	ownerMap map[string]*model.WalletAddress, excluded map[model.Outpoint]struct{}) (
	[]*model.WalletUTXO, []string, error) {

	utxos := make([]*model.WalletUTXO, 0, len(utxoEntries))
	usedAddressSet := make(map[string]struct{})
	for _, entry := range utxoEntries {
		outpoint, err := appmessage.RPCOutpointToOutpoint(entry.Outpoint)
		if err != nil {
			if errors.Is(err, appmessage.ErrMalformedEntry) {
				log.Warnf("Skipping malformed UTXO entry for %s: %s", entry.Address, err)
				continue
			}
			return nil, nil, err
		}
		utxoEntry, err := appmessage.RPCUTXOEntryToUTXOEntry(entry.UTXOEntry)
		if err != nil {
			if errors.Is(err, appmessage.ErrMalformedEntry) {
				log.Warnf("Skipping malformed UTXO entry for %s: %s", entry.Address, err)
				continue
			}
			return nil, nil, err
		}
		if _, isExcluded := excluded[*outpoint]; isExcluded {
			continue
		}
		owner, ok := ownerMap[entry.Address]
		if !ok {
			// The node reported a UTXO for an address we never derived.
			// Publishing it with a fabricated owner would corrupt
			// downstream ownership bookkeeping, so the cycle aborts.
			return nil, nil, errors.Wrapf(model.ErrUnresolvableOwner, "address %s", entry.Address)
		}
		utxos = append(utxos, model.NewWalletUTXO(*outpoint, utxoEntry, owner))
		usedAddressSet[entry.Address] = struct{}{}
	}

	usedAddresses := make([]string, 0, len(usedAddressSet))
	for address := range usedAddressSet {
		usedAddresses = append(usedAddresses, address)
	}
	return utxos, usedAddresses, nil
}

// mergeReceivingMempoolOutputs adds mempool outputs paying to monitored
// addresses, so inbound funds show up before confirmation. Outputs that
// already confirmed between the two fetches are skipped in favor of their
// consensus entries.
func (e *Engine) mergeReceivingMempoolOutputs(utxos []*model.WalletUTXO,
	mempoolEntries []*appmessage.MempoolEntryByAddress, ownerMap map[string]*model.WalletAddress,
	excluded map[model.Outpoint]struct{}) ([]*model.WalletUTXO, error) {

	seen := make(map[model.Outpoint]struct{}, len(utxos))
	for _, utxo := range utxos {
		seen[utxo.Outpoint] = struct{}{}
	}

	for _, entriesByAddress := range mempoolEntries {
		for _, entry := range entriesByAddress.Receiving {
			if entry.Transaction == nil {
				log.Warnf("Skipping malformed receiving mempool entry for %s", entriesByAddress.Address)
				continue
			}
			transactionID, err := appmessage.RPCTransactionID(entry.Transaction)
			if err != nil {
				if errors.Is(err, appmessage.ErrMalformedEntry) {
					log.Warnf("Skipping malformed receiving mempool entry: %s", err)
					continue
				}
				return nil, err
			}
			for i, output := range entry.Transaction.Outputs {
				if output.VerboseData == nil || output.ScriptPublicKey == nil {
					log.Warnf("Skipping mempool output %s:%d with missing fields", transactionID, i)
					continue
				}
				owner, ok := ownerMap[output.VerboseData.ScriptPublicKeyAddress]
				if !ok {
					continue
				}
				outpoint := model.NewOutpoint(*transactionID, uint32(i))
				if _, isExcluded := excluded[outpoint]; isExcluded {
					continue
				}
				if _, alreadySeen := seen[outpoint]; alreadySeen {
					continue
				}
				script, err := decodeScriptHex(output.ScriptPublicKey.Script)
				if err != nil {
					log.Warnf("Skipping mempool output %s:%d with bad script hex: %s", transactionID, i, err)
					continue
				}
				entry := model.NewUTXOEntry(output.Amount,
					&model.ScriptPublicKey{Script: script, Version: output.ScriptPublicKey.Version},
					dagconfig.UnacceptedDAAScore, false)
				utxos = append(utxos, model.NewWalletUTXO(outpoint, entry, owner))
				seen[outpoint] = struct{}{}
			}
		}
	}
	return utxos, nil
}

func decodeScriptHex(scriptHex string) ([]byte, error) {
	return hex.DecodeString(scriptHex)
}
