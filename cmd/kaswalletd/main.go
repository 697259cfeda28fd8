package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/daemon/server"
	"github.com/IgraLabs/kaswallet/domain/wallet/addressdirectory"
	"github.com/IgraLabs/kaswallet/domain/wallet/pendingledger"
	"github.com/IgraLabs/kaswallet/domain/wallet/syncengine"
	"github.com/IgraLabs/kaswallet/domain/wallet/txbuilder"
	"github.com/IgraLabs/kaswallet/domain/wallet/utxostore"
	"github.com/IgraLabs/kaswallet/infrastructure/network/rpcclient"
	"github.com/IgraLabs/kaswallet/infrastructure/os/signal"
	"github.com/IgraLabs/kaswallet/util/panics"
	"github.com/IgraLabs/kaswallet/util/txmass"
)

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func realMain() error {
	cfg, err := parseConfig()
	if err != nil {
		return err
	}
	err = cfg.initLog()
	if err != nil {
		return err
	}
	defer panics.HandlePanic(log, "MAIN", nil)
	interrupt := signal.InterruptListener()

	source, err := loadAddressesFile(cfg.AddressesFile)
	if err != nil {
		return err
	}
	directory := addressdirectory.New(source, cfg.CosignerIndex)
	for keychain, count := range source.indexCounts(cfg.CosignerIndex) {
		if count == 0 {
			continue
		}
		err = directory.Extend(keychain, count)
		if err != nil {
			return err
		}
	}
	err = directory.EnsureLookahead(cfg.Lookahead)
	if err != nil {
		log.Warnf("The addresses file is too short for a lookahead of %d: %s", cfg.Lookahead, err)
	}
	monitored, _ := directory.MonitoredAddresses()
	if len(monitored) == 0 {
		return errors.Errorf("no addresses to monitor for cosigner %d", cfg.CosignerIndex)
	}
	log.Infof("Monitoring %d addresses on %s", len(monitored), cfg.params.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Infof("Connecting to a node at %s...", cfg.RPCServer)
	client, err := rpcclient.Connect(ctx, cfg.RPCServer)
	if err != nil {
		return err
	}
	defer client.Close()
	dagInfo, err := client.GetBlockDAGInfo(ctx)
	if err != nil {
		return err
	}
	if dagInfo.NetworkName != cfg.params.Name {
		return errors.Errorf("the node is on network %s while the wallet runs on %s",
			dagInfo.NetworkName, cfg.params.Name)
	}

	store := utxostore.NewStore()
	ledger := pendingledger.New()
	engine := syncengine.New(&syncengine.Config{
		SyncInterval: time.Duration(cfg.SyncInterval) * time.Second,
	}, client, client, directory, store, ledger)
	builder := txbuilder.New(cfg.params, txmass.NewCalculatorFromParams(cfg.params),
		txbuilder.EstimatorForScheme(cfg.ECDSA), cfg.MinSignatures, client, newPayToAddressScripter(cfg.params))
	walletServer := server.New(cfg.params, store, ledger, directory, engine, builder, client, client)

	spawn("engine.Run", func() {
		err := engine.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			panics.Exit(log, fmt.Sprintf("sync engine exited: %s", err))
		}
	})

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", cfg.Listen)
	}
	serveErr := make(chan error, 1)
	spawn("server.Serve", func() {
		serveErr <- walletServer.Serve(ctx, listener)
	})

	select {
	case <-interrupt:
		log.Infof("Interrupt received, shutting down...")
		cancel()
		return nil
	case err := <-serveErr:
		return err
	}
}
