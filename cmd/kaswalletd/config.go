package main

import (
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/IgraLabs/kaswallet/domain/dagconfig"
	"github.com/IgraLabs/kaswallet/infrastructure/logger"
)

const (
	defaultListen       = "localhost:8882"
	defaultLogFilename  = "kaswalletd.log"
	defaultErrLogSuffix = "_err.log"
)

type configFlags struct {
	Listen        string `long:"listen" short:"l" description:"Address to listen on"`
	RPCServer     string `long:"rpcserver" short:"s" description:"RPC server to connect to" required:"true"`
	AddressesFile string `long:"addresses-file" short:"a" description:"File listing the wallet's derived addresses" required:"true"`
	SyncInterval  uint32 `long:"sync-interval" description:"UTXO refresh interval in seconds"`
	Lookahead     uint32 `long:"lookahead" description:"Number of unused addresses to keep monitored past the used frontier"`
	ECDSA         bool   `long:"ecdsa" description:"The wallet's keys sign with ECDSA instead of schnorr"`
	MinSignatures uint32 `long:"min-signatures" short:"m" description:"Minimum required signatures"`
	CosignerIndex uint16 `long:"cosigner-index" description:"This cosigner's index in a multisig wallet"`
	LogDir        string `long:"logdir" description:"Directory to write log files to"`
	LogLevel      string `long:"loglevel" short:"d" description:"Logging level {trace, debug, info, warn, error, critical}"`

	Testnet bool `long:"testnet" description:"Use the test network"`
	Simnet  bool `long:"simnet" description:"Use the simulation network"`
	Devnet  bool `long:"devnet" description:"Use the development network"`

	params *dagconfig.Params
}

func parseConfig() (*configFlags, error) {
	cfg := &configFlags{
		Listen:        defaultListen,
		SyncInterval:  10,
		Lookahead:     20,
		MinSignatures: 1,
		LogLevel:      "info",
	}
	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	_, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	networks := 0
	cfg.params = &dagconfig.MainnetParams
	if cfg.Testnet {
		networks++
		cfg.params = &dagconfig.TestnetParams
	}
	if cfg.Simnet {
		networks++
		cfg.params = &dagconfig.SimnetParams
	}
	if cfg.Devnet {
		networks++
		cfg.params = &dagconfig.DevnetParams
	}
	if networks > 1 {
		return nil, errors.Errorf("--testnet, --simnet and --devnet are mutually exclusive")
	}
	return cfg, nil
}

func (cfg *configFlags) initLog() error {
	if cfg.LogLevel != "" {
		level, ok := logger.LevelFromString(cfg.LogLevel)
		if !ok {
			return errors.Errorf("unknown log level %s", cfg.LogLevel)
		}
		logger.SetLogLevels(level)
	}

	logFile, errLogFile := "", ""
	if cfg.LogDir != "" {
		err := os.MkdirAll(cfg.LogDir, 0700)
		if err != nil {
			return errors.Wrapf(err, "creating log directory %s", cfg.LogDir)
		}
		logFile = filepath.Join(cfg.LogDir, defaultLogFilename)
		errLogFile = filepath.Join(cfg.LogDir, "kaswalletd"+defaultErrLogSuffix)
	}
	return logger.InitLog(logFile, errLogFile)
}
