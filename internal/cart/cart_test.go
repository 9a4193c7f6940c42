package cart

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educloud/educloud-cli/internal/storage"
)

func newTestStorage(t *testing.T) *storage.Store {
	t.Helper()
	t.Setenv("EDUCLOUD_SESSION", "cart-test")

	backing, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { backing.Close() })
	return backing
}

func course(id string, price float64) Item {
	return Item{ID: id, Title: "Course " + id, UnitPrice: price, Category: "programacion", Instructor: "Ana"}
}

func TestAdd_NewCourse(t *testing.T) {
	s := New(newTestStorage(t))

	require.NoError(t, s.Add(course("c1", 10)))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "c1", items[0].ID)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestAdd_DuplicateIsRejected(t *testing.T) {
	s := New(newTestStorage(t))

	require.NoError(t, s.Add(course("c1", 10)))
	err := s.Add(course("c1", 10))

	require.ErrorIs(t, err, ErrAlreadyInCart)
	require.Len(t, s.Items(), 1)
	assert.Equal(t, 1, s.Items()[0].Quantity, "duplicate add must not bump quantity")
}

func TestNoDuplicateIDsUnderMixedOperations(t *testing.T) {
	s := New(newTestStorage(t))

	require.NoError(t, s.Add(course("c1", 10)))
	require.NoError(t, s.Add(course("c2", 20)))
	_ = s.Add(course("c1", 10))
	require.NoError(t, s.UpdateQuantity("c1", 3))
	require.NoError(t, s.Remove("c2"))
	require.NoError(t, s.Add(course("c2", 20)))

	seen := map[string]bool{}
	for _, item := range s.Items() {
		assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
	}
	assert.Equal(t, 4, s.ItemCount()) // c1 x3 + c2 x1
}

func TestRemove_AbsentIsIdempotent(t *testing.T) {
	s := New(newTestStorage(t))

	require.NoError(t, s.Remove("ghost"))
	assert.Empty(t, s.Items())
}

func TestUpdateQuantity_ZeroAndNegativeRemove(t *testing.T) {
	for _, quantity := range []int{0, -5} {
		s := New(newTestStorage(t))
		require.NoError(t, s.Add(course("c1", 10)))

		require.NoError(t, s.UpdateQuantity("c1", quantity))
		assert.Empty(t, s.Items(), "UpdateQuantity(%d) should remove the item", quantity)
	}
}

func TestUpdateQuantity_Overwrites(t *testing.T) {
	s := New(newTestStorage(t))
	require.NoError(t, s.Add(course("c1", 10)))

	require.NoError(t, s.UpdateQuantity("c1", 7))

	assert.Equal(t, 7, s.Items()[0].Quantity)
	assert.Equal(t, 7, s.ItemCount())
}

func TestTotalAndItemCount(t *testing.T) {
	s := New(newTestStorage(t))
	require.NoError(t, s.Add(course("c1", 10)))
	require.NoError(t, s.Add(course("c2", 25.50)))
	require.NoError(t, s.UpdateQuantity("c1", 2))

	assert.InDelta(t, 45.50, s.Total(), 0.001)
	assert.Equal(t, 3, s.ItemCount())
}

func TestClear(t *testing.T) {
	s := New(newTestStorage(t))
	require.NoError(t, s.Add(course("c1", 10)))

	require.NoError(t, s.Clear())

	assert.Empty(t, s.Items())
	assert.Zero(t, s.ItemCount())
}

func TestPersistReloadRoundTrip(t *testing.T) {
	backing := newTestStorage(t)

	s1 := New(backing)
	require.NoError(t, s1.Add(course("c1", 10)))
	require.NoError(t, s1.Add(course("c2", 20)))
	require.NoError(t, s1.UpdateQuantity("c2", 4))

	s2 := New(backing)
	assert.Equal(t, s1.Items(), s2.Items(), "reload must preserve order and quantities")
}

func TestLoad_MissingQuantityDefaultsToOne(t *testing.T) {
	backing := newTestStorage(t)
	snapshot := `[{"id":"c1","nombre":"Curso","precio":15},{"id":"c2","nombre":"Otro","precio":5,"quantity":3}]`
	require.NoError(t, backing.Put(storage.ScopeDurable, StorageKey, snapshot))

	s := New(backing)

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, 3, items[1].Quantity)
}

func TestLoad_CorruptSnapshotStartsEmpty(t *testing.T) {
	backing := newTestStorage(t)
	require.NoError(t, backing.Put(storage.ScopeDurable, StorageKey, "{not json"))

	s := New(backing)

	assert.Empty(t, s.Items())
	// The next mutation replaces the corrupt snapshot outright.
	require.NoError(t, s.Add(course("c1", 10)))
	assert.Len(t, New(backing).Items(), 1)
}
