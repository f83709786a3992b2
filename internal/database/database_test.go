package database

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/questionbank-api/internal/models"
)

func TestMigrateCreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.True(t, db.Migrator().HasTable(&models.Question{}))
	require.True(t, db.Migrator().HasTable(&models.Answer{}))
	require.True(t, db.Migrator().HasColumn(&models.Answer{}, "image_embeddings"))
}

func TestConnectRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client, err := ConnectRedis(context.Background(), "redis://"+server.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = ConnectRedis(context.Background(), "")
	require.Error(t, err)
	_, err = ConnectRedis(context.Background(), "://bad")
	require.Error(t, err)
}

func TestConnectRequiresDSN(t *testing.T) {
	_, err := ConnectPostgres("", testLogger())
	require.Error(t, err)
	_, err = ConnectNATS("", "qbank", testLogger())
	require.Error(t, err)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
