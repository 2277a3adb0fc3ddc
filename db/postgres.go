package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/polysensus/chaintrap-arenastate/config"
	"github.com/polysensus/chaintrap-arenastate/names"
	"github.com/polysensus/chaintrap-arenastate/tokenid"
	"github.com/polysensus/chaintrap-arenastate/transcript"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// PostgresPool is the global PostgreSQL connection pool
	PostgresPool *pgxpool.Pool

	ErrPostgresDisabled = errors.New("postgres not initialized")
)

// InitPostgres initializes the PostgreSQL connection pool
func InitPostgres(databaseURL string) error {
	log.Println("🔌 Connecting to PostgreSQL...")

	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = config.MaxOpenConns
	poolConfig.MinConns = config.MaxIdleConns
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime

	PostgresPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := PostgresPool.Ping(ctx); err != nil {
		PostgresPool.Close()
		PostgresPool = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ PostgreSQL connected successfully")

	if err := InitSchema(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ClosePostgres closes the PostgreSQL connection pool
func ClosePostgres() {
	if PostgresPool != nil {
		log.Println("🔌 Closing PostgreSQL connection...")
		PostgresPool.Close()
	}
}

// InitSchema creates the database tables if they don't exist
func InitSchema(ctx context.Context) error {
	log.Println("📋 Initializing database schema...")

	// token_id is kept as hex text; gid is the decoded instance number
	transcriptSchema := `
	CREATE TABLE IF NOT EXISTS transcript_entries (
		id BIGSERIAL PRIMARY KEY,
		gid BIGINT NOT NULL,
		token_id TEXT NOT NULL,
		code SMALLINT NOT NULL,
		event TEXT NOT NULL,
		participant TEXT NOT NULL,
		block_number BIGINT NOT NULL,
		tx_hash TEXT NOT NULL,
		log_index INTEGER NOT NULL,
		data BYTEA,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE(tx_hash, log_index)
	);

	CREATE INDEX IF NOT EXISTS idx_transcript_entries_gid ON transcript_entries(gid, block_number, log_index);

	CREATE INDEX IF NOT EXISTS idx_transcript_entries_block ON transcript_entries(block_number DESC);
	`

	if _, err := PostgresPool.Exec(ctx, transcriptSchema); err != nil {
		return fmt.Errorf("failed to create transcript_entries table: %w", err)
	}

	log.Println("✅ Database schema initialized")
	return nil
}

/* =========================
   TRANSCRIPT ENTRIES
========================= */

// StoreEntries inserts entries in one batch. Re-indexed logs are ignored.
func StoreEntries(ctx context.Context, entries []*transcript.Entry) (int, error) {
	if PostgresPool == nil {
		return 0, ErrPostgresDisabled
	}
	if len(entries) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO transcript_entries
		(gid, token_id, code, event, participant, block_number, tx_hash, log_index, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tx_hash, log_index) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, e := range entries {
		gid, err := e.Instance()
		if err != nil {
			return 0, err
		}
		name, err := e.Name()
		if err != nil {
			return 0, err
		}
		batch.Queue(query,
			int64(gid),
			e.GameToken.Hex(),
			int16(e.Code),
			name,
			e.Participant.Hex(),
			int64(e.Block),
			e.TxHash.Hex(),
			int32(e.LogIndex),
			e.Data,
		)
	}

	results := PostgresPool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range entries {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to store transcript entry: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// GetTranscript returns a game's entries in chain order.
func GetTranscript(ctx context.Context, gid uint64, limit int) ([]*transcript.Entry, error) {
	if PostgresPool == nil {
		return nil, ErrPostgresDisabled
	}
	if limit <= 0 || limit > config.MaxTranscriptPage {
		limit = config.MaxTranscriptPage
	}

	query := `
		SELECT code, participant, block_number, tx_hash, log_index, data
		FROM transcript_entries
		WHERE gid = $1
		ORDER BY block_number ASC, log_index ASC
		LIMIT $2
	`

	rows, err := PostgresPool.Query(ctx, query, int64(gid), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()

	token := tokenid.GameToken(gid)
	entries := make([]*transcript.Entry, 0)
	for rows.Next() {
		var (
			code        int16
			participant string
			block       int64
			txHash      string
			logIndex    int32
			data        []byte
		)
		if err := rows.Scan(&code, &participant, &block, &txHash, &logIndex, &data); err != nil {
			return nil, fmt.Errorf("failed to scan transcript entry: %w", err)
		}
		entries = append(entries, &transcript.Entry{
			GameToken:   token,
			Code:        names.Code(code),
			Participant: common.HexToAddress(participant),
			Block:       uint64(block),
			TxHash:      common.HexToHash(txHash),
			LogIndex:    uint(logIndex),
			Data:        data,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transcript rows: %w", err)
	}

	return entries, nil
}

// LatestStoredBlock returns the highest block with a stored entry, or 0.
func LatestStoredBlock(ctx context.Context) (uint64, error) {
	if PostgresPool == nil {
		return 0, ErrPostgresDisabled
	}

	var block *int64
	err := PostgresPool.QueryRow(ctx, `SELECT MAX(block_number) FROM transcript_entries`).Scan(&block)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	if block == nil {
		return 0, nil
	}
	return uint64(*block), nil
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheckPostgres performs a PostgreSQL health check
func HealthCheckPostgres(ctx context.Context) error {
	if PostgresPool == nil {
		return ErrPostgresDisabled
	}
	return PostgresPool.Ping(ctx)
}
