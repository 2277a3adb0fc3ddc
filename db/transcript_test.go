package db

import (
	"context"
	"os"
	"testing"

	"github.com/polysensus/chaintrap-arenastate/config"
	"github.com/polysensus/chaintrap-arenastate/names"
	"github.com/polysensus/chaintrap-arenastate/tokenid"
	"github.com/polysensus/chaintrap-arenastate/transcript"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testGID is far above anything a local chain will reach
const testGID = 9_000_001

func testEntries() []*transcript.Entry {
	player := common.HexToAddress("0x1234567890123456789012345678901234567890")
	tx := common.HexToHash("0x7e57000000000000000000000000000000000000000000000000000000000001")
	return []*transcript.Entry{
		{GameToken: tokenid.GameToken(testGID), Code: names.GameCreated, Participant: player, Block: 10, TxHash: tx, LogIndex: 0},
		{GameToken: tokenid.GameToken(testGID), Code: names.UseExit, Participant: player, Block: 11, TxHash: tx, LogIndex: 1, Data: []byte{0x02}},
		{GameToken: tokenid.GameToken(testGID), Code: names.UseExit, Participant: player, Block: 12, TxHash: tx, LogIndex: 2},
	}
}

func TestTranscriptEntries(t *testing.T) {
	_ = godotenv.Load("../.env")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	require.NoError(t, InitPostgres(databaseURL))
	defer ClosePostgres()

	ctx := context.Background()
	cleanup := func() {
		_, _ = PostgresPool.Exec(ctx, "DELETE FROM transcript_entries WHERE gid = $1", testGID)
	}
	cleanup()
	defer cleanup()

	t.Run("StoreEntries", func(t *testing.T) {
		n, err := StoreEntries(ctx, testEntries())
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("StoreEntries_Duplicate", func(t *testing.T) {
		n, err := StoreEntries(ctx, testEntries())
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("GetTranscript", func(t *testing.T) {
		entries, err := GetTranscript(ctx, testGID, 0)
		require.NoError(t, err)
		require.Len(t, entries, 3)

		assert.Equal(t, names.GameCreated, entries[0].Code)
		assert.Equal(t, names.UseExit, entries[1].Code)
		assert.Equal(t, []byte{0x02}, entries[1].Data)
		assert.True(t, entries[2].GameToken.Equal(tokenid.GameToken(testGID)))
	})

	t.Run("LatestStoredBlock", func(t *testing.T) {
		block, err := LatestStoredBlock(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, block, uint64(12))
	})

	t.Run("Cursor_PostgresFallback", func(t *testing.T) {
		if RedisClient != nil {
			t.Skip("redis initialized, cursor reads from redis")
		}
		latest, err := LatestStoredBlock(ctx)
		require.NoError(t, err)

		block, ok, err := Cursor{}.Load(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, latest-1, block)
		assert.NoError(t, Cursor{}.Save(ctx, latest))
	})
}

func TestEventCounts(t *testing.T) {
	_ = godotenv.Load("../.env")

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}

	require.NoError(t, InitRedis(&config.Config{RedisURL: redisURL, RedisPassword: os.Getenv("REDIS_PASSWORD")}))
	defer CloseRedis()

	ctx := context.Background()
	key := "arena:gid:9000001:counts"
	RedisClient.Del(ctx, key)
	defer RedisClient.Del(ctx, key)

	require.NoError(t, CountEntries(ctx, testEntries()))

	counts, err := GetEventCounts(ctx, testGID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["GameCreated"])
	assert.Equal(t, int64(2), counts["UseExit"])
}

func TestDisabledStores(t *testing.T) {
	if PostgresPool != nil || RedisClient != nil {
		t.Skip("stores initialized by another test")
	}
	ctx := context.Background()

	_, err := StoreEntries(ctx, testEntries())
	assert.ErrorIs(t, err, ErrPostgresDisabled)
	_, err = GetTranscript(ctx, 1, 10)
	assert.ErrorIs(t, err, ErrPostgresDisabled)
	assert.ErrorIs(t, HealthCheckPostgres(ctx), ErrPostgresDisabled)

	_, _, err = GetLastBlock(ctx)
	assert.ErrorIs(t, err, ErrRedisDisabled)
	assert.ErrorIs(t, CountEntries(ctx, testEntries()), ErrRedisDisabled)
	assert.ErrorIs(t, HealthCheck(ctx), ErrRedisDisabled)

	block, ok, err := Cursor{}.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(0), block)
	assert.NoError(t, Cursor{}.Save(ctx, 42))
}
