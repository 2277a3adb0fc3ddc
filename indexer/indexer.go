package indexer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/polysensus/chaintrap-arenastate/config"
	"github.com/polysensus/chaintrap-arenastate/transcript"
)

// Source is the chain side, implemented by contract.ArenaContract.
type Source interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterTranscript(ctx context.Context, from, to uint64) ([]*transcript.Entry, error)
}

// Cursor persists the last fully indexed block.
type Cursor interface {
	Load(ctx context.Context) (block uint64, ok bool, err error)
	Save(ctx context.Context, block uint64) error
}

// Indexer polls the arena contract for transcript logs and hands them to
// the store, the counters and the websocket hub, in that order.
type Indexer struct {
	Source Source
	Cursor Cursor

	// Store must succeed for the cursor to advance. Count and Publish are
	// best effort.
	Store   func(ctx context.Context, entries []*transcript.Entry) (int, error)
	Count   func(ctx context.Context, entries []*transcript.Entry) error
	Publish func(entry *transcript.Entry)

	StartBlock   uint64
	Window       uint64
	PollInterval time.Duration

	next uint64
}

// New builds an indexer from the service config.
func New(cfg *config.Config, source Source, cursor Cursor) *Indexer {
	return &Indexer{
		Source:       source,
		Cursor:       cursor,
		StartBlock:   cfg.StartBlock,
		Window:       cfg.LogWindow,
		PollInterval: cfg.PollInterval,
	}
}

// Resume positions the indexer after the stored cursor, or at StartBlock.
func (ix *Indexer) Resume(ctx context.Context) error {
	ix.next = ix.StartBlock
	if ix.Cursor == nil {
		return nil
	}

	block, ok, err := ix.Cursor.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cursor: %w", err)
	}
	if ok && block+1 > ix.next {
		ix.next = block + 1
	}
	log.Printf("📍 Indexer resuming at block %d", ix.next)
	return nil
}

// Next is the next block to be fetched.
func (ix *Indexer) Next() uint64 {
	return ix.next
}

// Step indexes at most one window. caughtUp reports whether the head was
// reached.
func (ix *Indexer) Step(ctx context.Context) (indexed int, caughtUp bool, err error) {
	rpcCtx, cancel := context.WithTimeout(ctx, config.RPCTimeout)
	defer cancel()

	head, err := ix.Source.BlockNumber(rpcCtx)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get head: %w", err)
	}
	if ix.next > head {
		return 0, true, nil
	}

	window := ix.Window
	if window == 0 {
		window = config.DefaultLogWindow
	}
	// head-next cannot wrap here, next+window-1 can
	to := head
	if head-ix.next >= window {
		to = ix.next + window - 1
	}

	entries, err := ix.Source.FilterTranscript(rpcCtx, ix.next, to)
	if err != nil {
		return 0, false, err
	}

	if ix.Store != nil {
		if _, err := ix.Store(ctx, entries); err != nil {
			return 0, false, fmt.Errorf("failed to store blocks [%d, %d]: %w", ix.next, to, err)
		}
	}

	if ix.Count != nil {
		if err := ix.Count(ctx, entries); err != nil {
			log.Printf("⚠️  Failed to count entries: %v", err)
		}
	}

	if ix.Publish != nil {
		for _, e := range entries {
			ix.Publish(e)
		}
	}

	from := ix.next
	ix.next = to + 1
	if ix.Cursor != nil {
		if err := ix.Cursor.Save(ctx, to); err != nil {
			log.Printf("⚠️  Failed to save cursor at %d: %v", to, err)
		}
	}

	if len(entries) > 0 {
		log.Printf("✅ Indexed %d transcript entries from blocks [%d, %d]", len(entries), from, to)
	}
	return len(entries), to == head, nil
}

// Run polls until ctx is cancelled. Each tick drains windows until the
// head is reached.
func (ix *Indexer) Run(ctx context.Context) error {
	if err := ix.Resume(ctx); err != nil {
		return err
	}

	log.Printf("🎰 Indexer started (every %s, window %d blocks)", ix.PollInterval, ix.Window)
	ticker := time.NewTicker(ix.PollInterval)
	defer ticker.Stop()

	for {
		ix.drain(ctx)

		select {
		case <-ctx.Done():
			log.Println("🛑 Indexer stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (ix *Indexer) drain(ctx context.Context) {
	for ctx.Err() == nil {
		_, caughtUp, err := ix.Step(ctx)
		if err != nil {
			log.Printf("❌ Indexer step failed at block %d: %v", ix.next, err)
			return
		}
		if caughtUp {
			return
		}
	}
}
