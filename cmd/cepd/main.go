package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"cepchain/config"
	"cepchain/core"
	nativecommon "cepchain/native/common"
	"cepchain/native/community"
	"cepchain/observability/logging"
	"cepchain/rpc"
	"cepchain/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	memory := flag.Bool("memory", false, "DEV ONLY: keep state in memory instead of LevelDB")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CEP_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("cepd", env, cfg.LogLevel)

	policy, err := community.ParsePolicy(cfg.AuthorityPolicy)
	if err != nil {
		logger.Error("Invalid authority policy", slog.Any("error", err))
		os.Exit(1)
	}

	var db storage.Database
	if *memory {
		db = storage.NewMemDB()
	} else {
		db, err = storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
		if err != nil {
			logger.Error("Failed to open database", slog.Any("error", err))
			os.Exit(1)
		}
	}
	defer db.Close()

	node := core.NewNode(db)
	node.SetPolicy(policy)
	if len(cfg.PausedModules) > 0 {
		node.SetPauses(nativecommon.NewStaticPauses(cfg.PausedModules))
	}
	if authority := strings.TrimSpace(cfg.MintAuthority); authority != "" {
		if !common.IsHexAddress(authority) {
			logger.Error("Invalid mint authority address", slog.String("address", authority))
			os.Exit(1)
		}
		node.SetAuthority(common.HexToAddress(authority))
	}

	if admin := strings.TrimSpace(cfg.GlobalAdmin); admin != "" {
		if !common.IsHexAddress(admin) {
			logger.Error("Invalid global admin address", slog.String("address", admin))
			os.Exit(1)
		}
		adminAddr := common.HexToAddress(admin)
		if err := node.Execute(func(s *core.Services) error {
			if err := s.Communities.InitializeRegistry(); err != nil {
				return err
			}
			err := s.Communities.InitializeState(adminAddr)
			if errors.Is(err, community.ErrAlreadyInitialized) {
				return nil
			}
			return err
		}); err != nil {
			logger.Error("Failed to initialise ledger state", slog.Any("error", err))
			os.Exit(1)
		}
	}

	logger.Info("Starting engagement ledger node",
		slog.String("network", cfg.NetworkName),
		slog.String("policy", policy.String()),
		slog.String("rpc", cfg.RPCAddress),
	)

	server := rpc.NewServer(node)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server terminated", slog.Any("error", err))
		os.Exit(1)
	}
}
