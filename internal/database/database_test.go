package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-school-api/internal/models"
)

func TestConnectorsRejectEmptyAddresses(t *testing.T) {
	_, err := ConnectPostgres("")
	require.Error(t, err)

	_, err = ConnectRedis(context.Background(), "")
	require.Error(t, err)

	_, err = ConnectNATS("", "test")
	require.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	client, err := ConnectRedis(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	check := RedisCheck(client)
	require.NoError(t, check(ctx))
	mr.Close()
	require.Error(t, check(ctx))

	_, err = ConnectRedis(ctx, "not a url")
	require.Error(t, err)
}

func TestMigrateCreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.True(t, db.Migrator().HasTable(&models.Assessment{}))
	require.True(t, db.Migrator().HasTable(&models.GradingLevel{}))
	require.True(t, db.Migrator().HasTable(&models.ActivityLog{}))
	require.True(t, db.Migrator().HasColumn(&models.ActivityLog{}, "term_id"))
	require.NoError(t, PostgresCheck(db)(context.Background()))
}
