package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/spreadhub/pkg/contextx"
	"gorm.io/gorm"
)

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "data/a.db?_pragma=foreign_keys(1)", sqliteDSN("data/a.db"))
	assert.Equal(t, "file:x?mode=memory&_pragma=foreign_keys(1)", sqliteDSN("file:x?mode=memory"))
	assert.Equal(t, "a.db?_pragma=foreign_keys(0)", sqliteDSN("a.db?_pragma=foreign_keys(0)"))
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	_, err := Dialector("oracle", "x")
	assert.Error(t, err)
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Init(Config{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestInitEnablesForeignKeys(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.Ping(context.Background()))

	var on int
	require.NoError(t, d.Raw("PRAGMA foreign_keys").Scan(&on).Error)
	assert.Equal(t, 1, on)
}

type row struct {
	ID   int `gorm:"primaryKey"`
	Name string
}

func TestWithTxStoresTxInContext(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.AutoMigrate(&row{}))
	ctx := context.Background()

	err := d.WithTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		assert.Same(t, tx, contextx.GetTx(ctx))
		return tx.Create(&row{Name: "kept"}).Error
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = d.WithTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Create(&row{Name: "rolled back"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var names []string
	require.NoError(t, d.Model(&row{}).Pluck("name", &names).Error)
	assert.Equal(t, []string{"kept"}, names)
}
