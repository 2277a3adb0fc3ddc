package config

import "time"

/* =========================
   INDEXER CONFIGURATION
========================= */

const (
	// Fallback for an Indexer built without config. Must match the
	// LOG_WINDOW envDefault on Config.
	DefaultLogWindow  = 2000 // max blocks per eth_getLogs call
	RPCTimeout        = 15 * time.Second
	MaxTranscriptPage = 500
)

/* =========================
   REDIS TTL CONFIGURATION
========================= */

const (
	// Per game event counters (1 day)
	// Key: arena:gid:{gid}:counts
	GameCountsTTL = 24 * time.Hour
)

/* =========================
   REDIS KEY PATTERNS
========================= */

const (
	RedisLastBlockKey  = "arena:lastblock"
	RedisGameCountsKey = "arena:gid:%d:counts" // arena:gid:{gid}:counts (HASH event -> count)
)

/* =========================
   POSTGRESQL CONFIGURATION
========================= */

const (
	MaxOpenConns    = 25
	MaxIdleConns    = 5
	ConnMaxLifetime = 5 * time.Minute
)

/* =========================
   WEBSOCKET CONFIGURATION
========================= */

const (
	WSReadDeadline  = 60 * time.Second
	WSWriteDeadline = 10 * time.Second
	WSPingInterval  = 30 * time.Second

	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024

	MaxMessageSize = 64 * 1024 // 64KB

	// Outbound queue per client; slow clients are dropped when it fills
	WSSendQueue = 256
)
