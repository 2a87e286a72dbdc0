package prefs

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lukasstorck/dynamic-virtual-controller/internal/keymap"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/preset"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.db")
	store := Open(context.Background(), path, zap.NewNop())
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestStore_SetGetRoundtrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	assert.Equal(t, "", store.Get(ctx, KeyColor))

	store.Set(ctx, KeyColor, "#123456")
	assert.Equal(t, "#123456", store.Get(ctx, KeyColor))

	store.Set(ctx, KeyColor, "#654321")
	assert.Equal(t, "#654321", store.Get(ctx, KeyColor), "second set must overwrite")
}

func TestStore_UserNameGeneratesAndPersistsDefault(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	name := store.UserName(ctx)
	require.True(t, strings.HasPrefix(name, "User-"), "generated name %q", name)
	require.Len(t, name, len("User-")+4)

	assert.Equal(t, name, store.UserName(ctx), "default must be stable once generated")
	assert.Equal(t, name, store.Get(ctx, KeyName), "default must be persisted")
}

func TestStore_UserColorDefault(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	assert.Equal(t, DefaultColor, store.UserColor(ctx))

	store.Set(ctx, KeyColor, "#010203")
	assert.Equal(t, "#010203", store.UserColor(ctx))
}

func TestStore_SlotPresetsRoundtrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	assert.Empty(t, store.SlotPresets(ctx))

	want := preset.SlotPresets{0: "default", 2: "None", 7: "racing"}
	store.SetSlotPresets(ctx, want)
	assert.Equal(t, want, store.SlotPresets(ctx))
}

func TestStore_SlotPresetsUnreadableFallsBackEmpty(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	store.Set(ctx, KeySlotPresets, "{not json")
	assert.Empty(t, store.SlotPresets(ctx))
}

func TestStore_CustomKeybindsRoundtrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	assert.Empty(t, store.CustomKeybinds(ctx))

	slot := 3
	want := []keymap.CustomKeybind{
		{Key: "KeyQ", Event: "Switch to next Slot", Slot: &slot, Active: true},
		{Key: "KeyE", Event: "Toggle Slot 2", Slot: nil, Active: false},
	}
	store.SetCustomKeybinds(ctx, want)

	got := store.CustomKeybinds(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, want[0].Key, got[0].Key)
	require.NotNil(t, got[0].Slot)
	assert.Equal(t, slot, *got[0].Slot)
	assert.Nil(t, got[1].Slot)
	assert.False(t, got[1].Active)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")

	store := Open(ctx, path, zap.NewNop())
	store.Set(ctx, KeyLastGroupID, "g42")
	require.NoError(t, store.Close())

	reopened := Open(ctx, path, zap.NewNop())
	defer reopened.Close()
	assert.Equal(t, "g42", reopened.LastGroupID(ctx))
}

func TestStore_MemoryFallback(t *testing.T) {
	ctx := context.Background()

	// /dev/null is a file, so treating it as a parent directory must fail
	store := Open(ctx, "/dev/null/nested/prefs.db", zap.NewNop())
	defer store.Close()

	store.Set(ctx, KeyName, "Ann")
	assert.Equal(t, "Ann", store.Get(ctx, KeyName))
	assert.Equal(t, "Ann", store.UserName(ctx))
}
