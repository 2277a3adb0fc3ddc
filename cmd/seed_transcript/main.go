package main

import (
	"context"
	"fmt"
	"log"

	"github.com/polysensus/chaintrap-arenastate/config"
	"github.com/polysensus/chaintrap-arenastate/db"
	"github.com/polysensus/chaintrap-arenastate/names"
	"github.com/polysensus/chaintrap-arenastate/tokenid"
	"github.com/polysensus/chaintrap-arenastate/transcript"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// seedGID is outside the range a local chain will reach
const seedGID = 1_000_000

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	if err := db.InitPostgres(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to init postgres: %v", err)
	}
	defer db.ClosePostgres()

	ctx := context.Background()

	players := []common.Address{
		common.HexToAddress("0x1234567890123456789012345678901234567890"),
		common.HexToAddress("0xABCDEF0123456789ABCDEF0123456789ABCDEF01"),
	}

	// a short game: creation, two joins, a few moves, a victory
	script := []struct {
		player int
		code   names.Code
	}{
		{0, names.GameCreated},
		{0, names.PlayerJoined},
		{1, names.PlayerJoined},
		{0, names.GameStarted},
		{0, names.UseExit},
		{0, names.TranscriptEntryCommitted},
		{0, names.TranscriptEntryOutcome},
		{1, names.UseExit},
		{1, names.TranscriptPlayerKilledByTrap},
		{0, names.TranscriptPlayerEnteredLocation},
		{0, names.TranscriptPlayerVictory},
		{0, names.GameCompleted},
	}

	token := tokenid.GameToken(seedGID)
	entries := make([]*transcript.Entry, 0, len(script))
	for i, step := range script {
		entries = append(entries, &transcript.Entry{
			GameToken:   token,
			Code:        step.code,
			Participant: players[step.player],
			Block:       uint64(100 + i),
			TxHash:      crypto.Keccak256Hash([]byte(fmt.Sprintf("seed:%d:%d", seedGID, i))),
			LogIndex:    0,
		})
	}

	fmt.Printf("Seeding transcript for game %d (token %s)...\n", seedGID, token.Hex())

	n, err := db.StoreEntries(ctx, entries)
	if err != nil {
		log.Fatalf("Failed to store entries: %v", err)
	}
	fmt.Printf("  inserted %d of %d entries\n", n, len(entries))

	fmt.Println("\nDone! Reading back...")

	stored, err := db.GetTranscript(ctx, seedGID, 0)
	if err != nil {
		log.Fatalf("Failed to get transcript: %v", err)
	}

	fmt.Printf("\nTranscript (%d entries):\n", len(stored))
	for _, e := range stored {
		name, _ := e.Name()
		fmt.Printf("  #%d %-32s %s...\n", e.Block, name, e.Participant.Hex()[:10])
	}
}
