package syncengine

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/app/appmessage"
	"github.com/IgraLabs/kaswallet/domain/dagconfig"
	"github.com/IgraLabs/kaswallet/domain/wallet/addressdirectory"
	"github.com/IgraLabs/kaswallet/domain/wallet/model"
	"github.com/IgraLabs/kaswallet/domain/wallet/pendingledger"
	"github.com/IgraLabs/kaswallet/domain/wallet/utxostore"
)

type fakeSource struct{}

func (fs *fakeSource) Address(walletAddress *model.WalletAddress) (string, error) {
	return fmt.Sprintf("kaspa:fake-%d-%d-%d",
		walletAddress.Keychain, walletAddress.CosignerIndex, walletAddress.Index), nil
}

type fakeFetcher struct {
	mutex          sync.Mutex
	utxoEntries    []*appmessage.UTXOsByAddressesEntry
	mempoolEntries []*appmessage.MempoolEntryByAddress
	fetchErr       error
	cycleCount     int
}

func (ff *fakeFetcher) GetUTXOsByAddresses(_ context.Context, _ []string) ([]*appmessage.UTXOsByAddressesEntry, error) {
	ff.mutex.Lock()
	defer ff.mutex.Unlock()
	if ff.fetchErr != nil {
		return nil, ff.fetchErr
	}
	return ff.utxoEntries, nil
}

func (ff *fakeFetcher) GetMempoolEntriesByAddresses(_ context.Context, _ []string) ([]*appmessage.MempoolEntryByAddress, error) {
	ff.mutex.Lock()
	defer ff.mutex.Unlock()
	ff.cycleCount++
	if ff.fetchErr != nil {
		return nil, ff.fetchErr
	}
	return ff.mempoolEntries, nil
}

func (ff *fakeFetcher) GetBlockDAGInfo(_ context.Context) (*appmessage.BlockDAGInfo, error) {
	return &appmessage.BlockDAGInfo{NetworkName: "kaspa-simnet", VirtualDAAScore: 10000}, nil
}

func (ff *fakeFetcher) set(utxoEntries []*appmessage.UTXOsByAddressesEntry,
	mempoolEntries []*appmessage.MempoolEntryByAddress, fetchErr error) {

	ff.mutex.Lock()
	defer ff.mutex.Unlock()
	ff.utxoEntries = utxoEntries
	ff.mempoolEntries = mempoolEntries
	ff.fetchErr = fetchErr
}

func (ff *fakeFetcher) cycles() int {
	ff.mutex.Lock()
	defer ff.mutex.Unlock()
	return ff.cycleCount
}

func testIDString(seed byte) string {
	var transactionID model.TransactionID
	for i := range transactionID {
		transactionID[i] = seed
	}
	return transactionID.String()
}

func rpcUTXO(address string, seed byte, index uint32, amount uint64) *appmessage.UTXOsByAddressesEntry {
	return &appmessage.UTXOsByAddressesEntry{
		Address:  address,
		Outpoint: &appmessage.RPCOutpoint{TransactionID: testIDString(seed), Index: index},
		UTXOEntry: &appmessage.RPCUTXOEntry{
			Amount:          amount,
			ScriptPublicKey: &appmessage.RPCScriptPublicKey{Script: hex.EncodeToString([]byte{seed})},
			BlockDAAScore:   1000,
		},
	}
}

func newTestEngine(t *testing.T, fetcher *fakeFetcher) (*Engine, *utxostore.Store, *pendingledger.Ledger, *addressdirectory.Directory) {
	t.Helper()
	directory := addressdirectory.New(&fakeSource{}, 0)
	err := directory.Extend(model.ExternalKeychain, 3)
	if err != nil {
		t.Fatalf("Extend failed: %+v", err)
	}
	store := utxostore.NewStore()
	ledger := pendingledger.New()
	engine := New(&Config{SyncInterval: time.Hour}, fetcher, nil, directory, store, ledger)
	return engine, store, ledger, directory
}

func TestSyncCyclePublishesConsensusUTXOs(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set([]*appmessage.UTXOsByAddressesEntry{
		rpcUTXO("kaspa:fake-0-0-0", 1, 0, 500),
		rpcUTXO("kaspa:fake-0-0-1", 2, 0, 100),
	}, nil, nil)

	engine, store, _, _ := newTestEngine(t, fetcher)
	err := engine.syncCycle(context.Background())
	if err != nil {
		t.Fatalf("syncCycle failed: %+v", err)
	}

	snapshot := store.Current()
	if snapshot.Len() != 2 {
		t.Fatalf("snapshot has %d UTXOs, want 2", snapshot.Len())
	}
	iterator := snapshot.SortedIterator()
	if !iterator.Next() || iterator.Get().UTXOEntry.Amount != 100 {
		t.Fatalf("snapshot iteration does not start at the smallest amount")
	}
}

func TestSyncCycleExcludesMempoolSpentOutpoints(t *testing.T) {
	fetcher := &fakeFetcher{}
	spentID := testIDString(1)
	fetcher.set(
		[]*appmessage.UTXOsByAddressesEntry{
			rpcUTXO("kaspa:fake-0-0-0", 1, 0, 500),
			rpcUTXO("kaspa:fake-0-0-0", 2, 0, 300),
		},
		[]*appmessage.MempoolEntryByAddress{{
			Address: "kaspa:fake-0-0-0",
			Sending: []*appmessage.MempoolEntry{{
				Transaction: &appmessage.RPCTransaction{
					Inputs: []*appmessage.RPCTransactionInput{{
						PreviousOutpoint: &appmessage.RPCOutpoint{TransactionID: spentID, Index: 0},
					}},
					VerboseData: &appmessage.RPCTransactionVerboseData{TransactionID: testIDString(7)},
				},
			}},
		}},
		nil)

	engine, store, _, _ := newTestEngine(t, fetcher)
	err := engine.syncCycle(context.Background())
	if err != nil {
		t.Fatalf("syncCycle failed: %+v", err)
	}

	snapshot := store.Current()
	if snapshot.Len() != 1 {
		t.Fatalf("snapshot has %d UTXOs, want 1 after mempool exclusion", snapshot.Len())
	}
	var excludedID model.TransactionID
	for i := range excludedID {
		excludedID[i] = 1
	}
	if snapshot.Contains(model.NewOutpoint(excludedID, 0)) {
		t.Fatalf("snapshot still contains the mempool-spent outpoint")
	}
}

func TestSyncCycleMergesReceivingMempoolOutputs(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(
		[]*appmessage.UTXOsByAddressesEntry{rpcUTXO("kaspa:fake-0-0-0", 1, 0, 500)},
		[]*appmessage.MempoolEntryByAddress{{
			Address: "kaspa:fake-0-0-1",
			Receiving: []*appmessage.MempoolEntry{{
				Transaction: &appmessage.RPCTransaction{
					Outputs: []*appmessage.RPCTransactionOutput{
						{
							Amount:          700,
							ScriptPublicKey: &appmessage.RPCScriptPublicKey{Script: "aa"},
							VerboseData:     &appmessage.RPCTransactionOutputVerboseData{ScriptPublicKeyAddress: "kaspa:fake-0-0-1"},
						},
						{
							Amount:          900,
							ScriptPublicKey: &appmessage.RPCScriptPublicKey{Script: "bb"},
							VerboseData:     &appmessage.RPCTransactionOutputVerboseData{ScriptPublicKeyAddress: "kaspa:unrelated"},
						},
					},
					VerboseData: &appmessage.RPCTransactionVerboseData{TransactionID: testIDString(9)},
				},
			}},
		}},
		nil)

	engine, store, _, _ := newTestEngine(t, fetcher)
	err := engine.syncCycle(context.Background())
	if err != nil {
		t.Fatalf("syncCycle failed: %+v", err)
	}

	snapshot := store.Current()
	if snapshot.Len() != 2 {
		t.Fatalf("snapshot has %d UTXOs, want consensus + receiving = 2", snapshot.Len())
	}
	var receivingID model.TransactionID
	for i := range receivingID {
		receivingID[i] = 9
	}
	merged, ok := snapshot.Get(model.NewOutpoint(receivingID, 0))
	if !ok {
		t.Fatalf("snapshot is missing the receiving mempool output")
	}
	if merged.UTXOEntry.BlockDAAScore != dagconfig.UnacceptedDAAScore {
		t.Fatalf("receiving mempool output has DAA score %d, want unaccepted marker", merged.UTXOEntry.BlockDAAScore)
	}
	if snapshot.Contains(model.NewOutpoint(receivingID, 1)) {
		t.Fatalf("snapshot contains an output paying an unmonitored address")
	}
}

func TestSyncCycleAbortsOnUnresolvableOwner(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set([]*appmessage.UTXOsByAddressesEntry{rpcUTXO("kaspa:fake-0-0-0", 1, 0, 500)}, nil, nil)

	engine, store, _, _ := newTestEngine(t, fetcher)
	err := engine.syncCycle(context.Background())
	if err != nil {
		t.Fatalf("first syncCycle failed: %+v", err)
	}
	previous := store.Current()

	fetcher.set([]*appmessage.UTXOsByAddressesEntry{
		rpcUTXO("kaspa:fake-0-0-0", 1, 0, 500),
		rpcUTXO("kaspa:not-ours", 2, 0, 300),
	}, nil, nil)
	err = engine.syncCycle(context.Background())
	if !errors.Is(err, model.ErrUnresolvableOwner) {
		t.Fatalf("expected ErrUnresolvableOwner, got %+v", err)
	}
	if store.Current() != previous {
		t.Fatalf("aborted cycle replaced the snapshot")
	}
}

func TestSyncCycleSkipsMalformedEntries(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set([]*appmessage.UTXOsByAddressesEntry{
		rpcUTXO("kaspa:fake-0-0-0", 1, 0, 500),
		{Address: "kaspa:fake-0-0-1", Outpoint: nil, UTXOEntry: nil},
		{
			Address:   "kaspa:fake-0-0-2",
			Outpoint:  &appmessage.RPCOutpoint{TransactionID: "zz-not-hex", Index: 0},
			UTXOEntry: &appmessage.RPCUTXOEntry{Amount: 1, ScriptPublicKey: &appmessage.RPCScriptPublicKey{}},
		},
	}, nil, nil)

	engine, store, _, _ := newTestEngine(t, fetcher)
	err := engine.syncCycle(context.Background())
	if err != nil {
		t.Fatalf("syncCycle failed on malformed entries: %+v", err)
	}
	if store.Current().Len() != 1 {
		t.Fatalf("snapshot has %d UTXOs, want only the well-formed one", store.Current().Len())
	}
}

func TestSyncCycleWrapsFetchErrors(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(nil, nil, errors.New("connection refused"))

	engine, store, _, _ := newTestEngine(t, fetcher)
	previous := store.Current()
	err := engine.syncCycle(context.Background())
	if !errors.Is(err, model.ErrTransientFetch) {
		t.Fatalf("expected ErrTransientFetch, got %+v", err)
	}
	if store.Current() != previous {
		t.Fatalf("failed cycle replaced the snapshot")
	}
	if engine.IsSynced() {
		t.Fatalf("engine reports synced before a successful cycle")
	}
}

func TestSyncCyclePrunesSettledPendingTransactions(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set([]*appmessage.UTXOsByAddressesEntry{rpcUTXO("kaspa:fake-0-0-0", 1, 0, 500)}, nil, nil)

	engine, _, ledger, _ := newTestEngine(t, fetcher)
	err := engine.syncCycle(context.Background())
	if err != nil {
		t.Fatalf("syncCycle failed: %+v", err)
	}

	var spentID model.TransactionID
	for i := range spentID {
		spentID[i] = 1
	}
	owner := model.NewWalletAddress(0, 0, model.ExternalKeychain)
	ledger.Add(&model.PendingTransaction{
		Tx: &model.Transaction{
			Inputs: []*model.TransactionInput{{PreviousOutpoint: model.NewOutpoint(spentID, 0)}},
			Outputs: []*model.TransactionOutput{
				{Value: 1, ScriptPublicKey: &model.ScriptPublicKey{Script: []byte{0xaa}}},
			},
		},
		Entries:            []*model.UTXOEntry{model.NewUTXOEntry(500, &model.ScriptPublicKey{Script: []byte{0x01}}, 1000, false)},
		OwnerByInputIndex:  []*model.WalletAddress{owner},
		OwnerByOutputIndex: []*model.WalletAddress{nil},
	})
	if ledger.Len() != 1 {
		t.Fatalf("ledger is empty after Add")
	}

	// Cycle still sees the consumed outpoint, so the transaction stays.
	err = engine.syncCycle(context.Background())
	if err != nil {
		t.Fatalf("syncCycle failed: %+v", err)
	}
	if ledger.Len() != 1 {
		t.Fatalf("cycle pruned a transaction whose input is still unspent")
	}

	// Confirmation: the consumed outpoint disappears from the node's view.
	fetcher.set([]*appmessage.UTXOsByAddressesEntry{rpcUTXO("kaspa:fake-0-0-1", 2, 0, 400)}, nil, nil)
	err = engine.syncCycle(context.Background())
	if err != nil {
		t.Fatalf("syncCycle failed: %+v", err)
	}
	if ledger.Len() != 0 {
		t.Fatalf("cycle did not prune the settled transaction")
	}
}

func TestTriggerCoalesces(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, &fakeFetcher{})

	// Many triggers while no cycle is draining the channel must collapse
	// into a single queued trigger.
	for i := 0; i < 10; i++ {
		engine.Trigger()
	}
	if len(engine.triggerChan) != 1 {
		t.Fatalf("trigger channel holds %d entries, want 1", len(engine.triggerChan))
	}
}

type fakeNotifier struct {
	mutex     sync.Mutex
	addresses []string
	onChanged func()
	err       error
}

func (fn *fakeNotifier) NotifyUTXOsChanged(addresses []string, onChanged func()) error {
	fn.mutex.Lock()
	defer fn.mutex.Unlock()
	if fn.err != nil {
		return fn.err
	}
	fn.addresses = addresses
	fn.onChanged = onChanged
	return nil
}

func (fn *fakeNotifier) fire() {
	fn.mutex.Lock()
	onChanged := fn.onChanged
	fn.mutex.Unlock()
	if onChanged != nil {
		onChanged()
	}
}

func TestRunSubscribesToUTXOChanges(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set([]*appmessage.UTXOsByAddressesEntry{}, nil, nil)

	directory := addressdirectory.New(&fakeSource{}, 0)
	err := directory.Extend(model.ExternalKeychain, 3)
	if err != nil {
		t.Fatalf("Extend failed: %+v", err)
	}
	notifier := &fakeNotifier{}
	engine := New(&Config{SyncInterval: time.Hour}, fetcher, notifier, directory, utxostore.NewStore(), pendingledger.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	select {
	case <-engine.FirstSyncDone():
	case <-time.After(5 * time.Second):
		t.Fatalf("first sync did not complete")
	}

	notifier.mutex.Lock()
	subscribed := len(notifier.addresses)
	notifier.mutex.Unlock()
	if subscribed != 3 {
		t.Fatalf("subscription covers %d addresses, want all 3 monitored", subscribed)
	}

	// A change notification must drive a refresh cycle, same as Trigger.
	before := fetcher.cycles()
	notifier.fire()
	deadline := time.After(5 * time.Second)
	for fetcher.cycles() == before {
		select {
		case <-deadline:
			t.Fatalf("change notification did not start a cycle")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestRunToleratesUnavailableSubscription(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set([]*appmessage.UTXOsByAddressesEntry{}, nil, nil)

	directory := addressdirectory.New(&fakeSource{}, 0)
	err := directory.Extend(model.ExternalKeychain, 1)
	if err != nil {
		t.Fatalf("Extend failed: %+v", err)
	}
	notifier := &fakeNotifier{err: errors.New("subscriptions unsupported")}
	engine := New(&Config{SyncInterval: time.Hour}, fetcher, notifier, directory, utxostore.NewStore(), pendingledger.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	// Sync must still work on polling alone.
	select {
	case <-engine.FirstSyncDone():
	case <-time.After(5 * time.Second):
		t.Fatalf("first sync did not complete without a subscription")
	}

	cancel()
	<-done
}

func TestRunRespondsToTriggerAndCancel(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set([]*appmessage.UTXOsByAddressesEntry{}, nil, nil)

	engine, _, _, _ := newTestEngine(t, fetcher)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	select {
	case <-engine.FirstSyncDone():
	case <-time.After(5 * time.Second):
		t.Fatalf("first sync did not complete")
	}
	if !engine.IsSynced() {
		t.Fatalf("engine not synced after FirstSyncDone")
	}

	before := fetcher.cycles()
	engine.Trigger()
	deadline := time.After(5 * time.Second)
	for fetcher.cycles() == before {
		select {
		case <-deadline:
			t.Fatalf("trigger did not start a cycle")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %+v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
