package morph

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_AddAssignsSequentialIDs(t *testing.T) {
	a := NewArena()
	ids := a.Add(Entity{Kind: KindFoliage}, Entity{Kind: KindStar})
	assert.Equal(t, []EntityID{0, 1}, ids)

	more := a.Add(Entity{Kind: KindPhoto})
	assert.Equal(t, []EntityID{2}, more)

	e, ok := a.Get(2)
	require.True(t, ok)
	assert.Equal(t, EntityID(2), e.ID)
	assert.Equal(t, KindPhoto, e.Kind)

	_, ok = a.Get(3)
	assert.False(t, ok)
}

func TestArena_RemoveTombstones(t *testing.T) {
	a := NewArena()
	ids := a.Add(Entity{Kind: KindPhoto}, Entity{Kind: KindPhoto})
	before := a.Snapshot()

	require.NoError(t, a.Remove(ids[0]))
	assert.ErrorIs(t, a.Remove(ids[0]), ErrEntityRemoved)
	assert.ErrorIs(t, a.Remove(99), ErrUnknownEntity)

	assert.False(t, before[0].Removed, "existing snapshots are unchanged")
	assert.Equal(t, []EntityID{ids[1]}, a.IDs(KindPhoto))
	assert.Equal(t, 2, a.Len(), "ids are never reused")

	next := a.Add(Entity{Kind: KindPhoto})
	assert.Equal(t, []EntityID{2}, next)
}

func TestArena_FindUploadAndCount(t *testing.T) {
	a := NewArena()
	up := uuid.New()
	a.Add(Entity{Kind: KindFoliage}, Entity{Kind: KindFoliage}, Entity{Kind: KindPhoto, UploadID: up})

	e, ok := a.FindUpload(up)
	require.True(t, ok)
	assert.Equal(t, EntityID(2), e.ID)

	_, ok = a.FindUpload(uuid.New())
	assert.False(t, ok)

	counts := a.Count()
	assert.Equal(t, 2, counts[KindFoliage])
	assert.Equal(t, 1, counts[KindPhoto])

	require.NoError(t, a.Remove(e.ID))
	_, ok = a.FindUpload(up)
	assert.False(t, ok)
}

func TestArena_SnapshotStableUnderConcurrentAppend(t *testing.T) {
	a := NewArena()
	a.Add(Entity{Kind: KindStar})

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				a.Add(Entity{Kind: KindPhoto})
			}
		}()
	}

	for i := 0; i < 200; i++ {
		snap := a.Snapshot()
		for j, e := range snap {
			assert.Equal(t, EntityID(j), e.ID)
		}
	}
	wg.Wait()

	assert.Equal(t, 1001, a.Len())
	seen := make(map[EntityID]bool)
	for _, e := range a.Snapshot() {
		assert.False(t, seen[e.ID])
		seen[e.ID] = true
	}
}

func TestKind_ParseAndLayer(t *testing.T) {
	for _, k := range []Kind{KindFoliage, KindDust, KindRibbon, KindOrnamentBox, KindOrnamentSphere, KindStar, KindPhoto} {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("tinsel")
	assert.False(t, ok)

	assert.Equal(t, LayerEffects, KindRibbon.Layer())
	assert.Equal(t, LayerOrnaments, KindOrnamentSphere.Layer())
	assert.True(t, KindDust.Particle())
	assert.False(t, KindPhoto.Particle())
}
