package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartflow/pkg/cart"
	"cartflow/pkg/db"
	"cartflow/pkg/logger"
)

func TestSlot(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	conn, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(ctx, conn, logger.Nop()))

	s := New(conn)
	key := "cart:test:" + uuid.NewString()
	t.Cleanup(func() { _ = s.Delete(ctx, key) })

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	items := []cart.Item{{ID: "tee", Name: "Tee", Price: "20.00", Quantity: 2}}
	st := cart.NewStorage(s, key)
	require.Nil(t, st.Save(ctx, items))
	require.Nil(t, st.Save(ctx, items[:0]))
	require.Nil(t, st.Save(ctx, items))

	got, cerr := st.Load(ctx)
	require.Nil(t, cerr)
	assert.Equal(t, items, got)
}
