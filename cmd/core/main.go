package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-token-ledger/internal/app/token/adapter/in/httpapi"
	memory_adapter "github.com/JoeShih716/go-token-ledger/internal/app/token/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-token-ledger/internal/app/token/adapter/out/mysql"
	"github.com/JoeShih716/go-token-ledger/internal/app/token/domain"
	"github.com/JoeShih716/go-token-ledger/internal/app/token/eventlog"
	"github.com/JoeShih716/go-token-ledger/internal/app/token/usecase"
	"github.com/JoeShih716/go-token-ledger/pkg/mysql"
	"github.com/JoeShih716/go-token-ledger/pkg/wal"
)

// Ledger backends selectable via config.
const (
	BackendMySQL        = "mysql"
	BackendMemoryMutex  = "memory-mutex"
	BackendMemorySerial = "memory-serial"
)

type Config struct {
	Server struct {
		Listen string `yaml:"listen"`
	} `yaml:"server"`
	Ledger struct {
		Backend      string `yaml:"backend"`
		WALPath      string `yaml:"wal_path"`
		EventLogSize int    `yaml:"event_log_size"`
	} `yaml:"ledger"`
	Token struct {
		domain.Metadata `yaml:",inline"`
		Supply          uint64 `yaml:"supply"`
		Creator         string `yaml:"creator"`
	} `yaml:"token"`
	MySQL mysql.Config `yaml:"mysql"`
}

func main() {
	// 1. Load config
	cfg := loadConfig()

	creator, err := domain.ParseAddress(cfg.Token.Creator)
	if err != nil {
		log.Fatalf("Invalid creator address: %v", err)
	}

	// 2. Event side channel: in-memory log for queries, websocket hub for
	// live subscribers.
	events := eventlog.New(cfg.Ledger.EventLogSize)
	hub := httpapi.NewHub()
	sink := domain.MultiSink{events, hub}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Pick the ledger backend
	var ledger usecase.Ledger
	switch cfg.Ledger.Backend {
	case BackendMySQL:
		dbClient, err := mysql.NewClient(cfg.MySQL)
		if err != nil {
			log.Fatalf("Failed to connect to MySQL: %v", err)
		}
		defer dbClient.Close()
		log.Println("Connected to MySQL successfully")

		repo := mysql_adapter.NewLedger(dbClient, sink)
		if err := repo.EnsureDeployed(ctx, cfg.Token.Metadata, cfg.Token.Supply, creator); err != nil {
			log.Fatalf("Failed to deploy token: %v", err)
		}
		ledger = repo
	case BackendMemoryMutex:
		walFile, err := wal.New(cfg.Ledger.WALPath)
		if err != nil {
			log.Fatalf("Failed to init WAL: %v", err)
		}
		defer walFile.Close()

		mutexLedger, err := memory_adapter.NewMutexLedger(cfg.Token.Metadata, cfg.Token.Supply, creator, walFile, sink)
		if err != nil {
			log.Fatalf("Failed to init MutexLedger: %v", err)
		}
		ledger = mutexLedger
	case BackendMemorySerial:
		walFile, err := wal.New(cfg.Ledger.WALPath)
		if err != nil {
			log.Fatalf("Failed to init WAL: %v", err)
		}
		defer walFile.Close()

		serialLedger, err := memory_adapter.NewSerialLedger(cfg.Token.Metadata, cfg.Token.Supply, creator, walFile, sink)
		if err != nil {
			log.Fatalf("Failed to init SerialLedger: %v", err)
		}
		serialLedger.Start(ctx)
		ledger = serialLedger
	default:
		log.Fatalf("Invalid ledger backend: %q", cfg.Ledger.Backend)
	}

	// 4. Use case + driving adapter
	core := usecase.NewTokenUseCase(ledger)
	api := httpapi.NewService(core, events, hub)

	mux := http.NewServeMux()
	api.Register(mux)

	server := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: mux,
	}

	// 5. Serve
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.Server.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
	log.Println("Server exited")
}

func loadConfig() Config {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config/config.yaml"
	}

	var cfg Config
	cfgData, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Config file %s not readable (%v), using defaults", path, err)
	} else if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	// Backfill defaults for anything the file left out
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = BackendMemoryMutex
	}
	if cfg.Ledger.WALPath == "" {
		cfg.Ledger.WALPath = "wal.log"
	}
	if cfg.Ledger.EventLogSize == 0 {
		cfg.Ledger.EventLogSize = 10000
	}
	if cfg.Token.Name == "" {
		cfg.Token.Name = "erc20TokenName"
	}
	if cfg.Token.Symbol == "" {
		cfg.Token.Symbol = "erc20TokenSymbol"
	}
	if cfg.Token.Creator == "" {
		cfg.Token.Creator = "0x0000000000000000000000000000000000000001"
	}
	if cfg.Token.Supply == 0 {
		cfg.Token.Supply = 1_000_000
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.MySQL.ConnMaxLifetime == 0 {
		cfg.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
	return cfg
}
