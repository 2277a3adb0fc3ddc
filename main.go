package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/polysensus/chaintrap-arenastate/api"
	"github.com/polysensus/chaintrap-arenastate/config"
	"github.com/polysensus/chaintrap-arenastate/contract"
	"github.com/polysensus/chaintrap-arenastate/db"
	"github.com/polysensus/chaintrap-arenastate/indexer"
	"github.com/polysensus/chaintrap-arenastate/transcript"
	"github.com/polysensus/chaintrap-arenastate/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	if err := db.InitPostgres(cfg.DatabaseURL); err != nil {
		log.Printf("⚠️  Warning: PostgreSQL initialization failed: %v", err)
		log.Println("   Transcript history will not be stored")
	}
	defer db.ClosePostgres()

	if err := db.InitRedis(cfg); err != nil {
		log.Printf("⚠️  Warning: Redis initialization failed: %v", err)
		log.Println("   Event counts and the indexer cursor will not be kept")
	}
	defer db.CloseRedis()

	hub := ws.NewHub(func(ctx context.Context, gid uint64) ([]*transcript.Entry, error) {
		return db.GetTranscript(ctx, gid, config.MaxTranscriptPage)
	})
	go hub.Run(ctx)

	// Initialize contract client
	arena, err := contract.NewArenaContract(ctx, cfg)
	if err != nil {
		log.Printf("⚠️  Warning: Contract client initialization failed: %v", err)
		log.Println("   Transcript indexing is disabled")
	} else {
		defer arena.Close()
		api.SetArenaReader(arena)

		ix := indexer.New(cfg, arena, db.Cursor{})
		ix.Store = storeIfEnabled
		ix.Count = countIfEnabled
		ix.Publish = hub.Publish
		go func() {
			if err := ix.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("❌ Indexer exited: %v", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	api.Routes(mux)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("🚀 Server starting on %s", cfg.ListenAddr)
	log.Println("")
	log.Println("📡 WebSocket Endpoints:")
	log.Println("   /ws - subscribe to 'game:<gid>' or 'all'")
	log.Println("")
	log.Println("🔌 API Endpoints:")
	log.Println("   GET  /api/health - Health check (Redis + PostgreSQL + contract)")
	log.Println("   GET  /api/token/:instance - Game token id for an instance")
	log.Println("   GET  /api/token/decode?id= - Instance number for a game token id")
	log.Println("   GET  /api/names - Ordered event names")
	log.Println("   GET  /api/names/:name - Code for an event name")
	log.Println("   GET  /api/codes/:code - Event name for a code")
	log.Println("   GET  /api/transcript/:gid - Indexed transcript for a game")
	log.Println("   GET  /api/arena/last - Latest game instance on chain")
	log.Println("")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("❌ Server error:", err)
	}
	log.Println("👋 Server stopped")
}

// storeIfEnabled lets the indexer run without Postgres; entries then only
// reach websocket subscribers.
func storeIfEnabled(ctx context.Context, entries []*transcript.Entry) (int, error) {
	n, err := db.StoreEntries(ctx, entries)
	if errors.Is(err, db.ErrPostgresDisabled) {
		return 0, nil
	}
	return n, err
}

func countIfEnabled(ctx context.Context, entries []*transcript.Entry) error {
	if err := db.CountEntries(ctx, entries); err != nil && !errors.Is(err, db.ErrRedisDisabled) {
		return err
	}
	return nil
}
