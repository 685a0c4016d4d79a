package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/aswo/db"
	"github.com/onnwee/aswo/ordr"
	"github.com/onnwee/aswo/settings"
	"github.com/onnwee/aswo/testutil"
)

func TestServiceAgainstPostgres(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := &db.Store{DB: database}

	svc := settings.New(store, ">>")
	require.NoError(t, svc.SetPrefix(ctx, "test:g1", "!"))
	require.NoError(t, svc.SetOsuUsername(ctx, "test:u1", "peppy"))
	require.NoError(t, svc.SetSkin(ctx, "test:u1", 7))

	// a fresh service sees the stored values after warming
	fresh := settings.New(store, ">>")
	require.NoError(t, fresh.Warm(ctx))
	assert.Equal(t, "!", fresh.Prefix(ctx, "test:g1"))
	assert.Equal(t, ">>", fresh.Prefix(ctx, "test:unknown"))

	name, ok, err := fresh.OsuUsername(ctx, "test:u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "peppy", name)

	skin, err := fresh.Skin(ctx, "test:u1")
	require.NoError(t, err)
	assert.Equal(t, 7, skin)

	skin, err = fresh.Skin(ctx, "test:nobody")
	require.NoError(t, err)
	assert.Equal(t, ordr.DefaultSkinID, skin)
}
