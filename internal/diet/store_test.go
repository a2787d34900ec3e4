package diet

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nutriai.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	memory, err := NewMemoryStore(16)
	require.NoError(t, err)

	return map[string]Store{"sqlite": sqlite, "memory": memory}
}

func TestStore_ProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.GetProfile(ctx, "google:u1")
			require.NoError(t, err)
			assert.Nil(t, got)

			p := UserProfile{
				Age:               intPtr(30),
				Weight:            floatPtr(70.5),
				ActivityLevel:     ModeratelyActive,
				DietaryGoals:      LoseWeight,
				DietaryPreference: Vegetarian,
			}
			require.NoError(t, store.PutProfile(ctx, "google:u1", p))

			got, err = store.GetProfile(ctx, "google:u1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, p, *got)

			// Wholesale replacement, including clearing age and weight.
			replacement := DefaultProfile()
			require.NoError(t, store.PutProfile(ctx, "google:u1", replacement))
			got, err = store.GetProfile(ctx, "google:u1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Nil(t, got.Age)
			assert.Nil(t, got.Weight)
			assert.Equal(t, replacement, *got)

			// Other users are unaffected.
			other, err := store.GetProfile(ctx, "github:u2")
			require.NoError(t, err)
			assert.Nil(t, other)
		})
	}
}

func TestStore_MealLogRoundTrip(t *testing.T) {
	ctx := context.Background()
	const description = "Oatmeal with berries for breakfast, salad for lunch"

	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.PutMealLog(ctx, "U", "2024-05-10", description))

			got, found, err := store.GetMealLog(ctx, "U", "2024-05-10")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, description, got)

			// Last writer wins.
			require.NoError(t, store.PutMealLog(ctx, "U", "2024-05-10", "Rice and lentils for dinner"))
			got, _, err = store.GetMealLog(ctx, "U", "2024-05-10")
			require.NoError(t, err)
			assert.Equal(t, "Rice and lentils for dinner", got)

			// An empty write deletes; reads return absent rather than "".
			require.NoError(t, store.PutMealLog(ctx, "U", "2024-05-10", ""))
			got, found, err = store.GetMealLog(ctx, "U", "2024-05-10")
			require.NoError(t, err)
			assert.False(t, found)
			assert.Equal(t, "", got)

			// Deleting an absent entry is not an error.
			require.NoError(t, store.PutMealLog(ctx, "U", "2024-05-10", ""))
		})
	}
}

func TestStore_ListMealLogs(t *testing.T) {
	ctx := context.Background()
	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			logs, err := store.ListMealLogs(ctx, "U")
			require.NoError(t, err)
			assert.Empty(t, logs)

			require.NoError(t, store.PutMealLog(ctx, "U", "2024-05-09", "Eggs and toast, then soup"))
			require.NoError(t, store.PutMealLog(ctx, "U", "2024-05-10", "Oatmeal with berries"))
			require.NoError(t, store.PutMealLog(ctx, "V", "2024-05-10", "Someone else's lunch"))

			logs, err = store.ListMealLogs(ctx, "U")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{
				"2024-05-09": "Eggs and toast, then soup",
				"2024-05-10": "Oatmeal with berries",
			}, logs)
		})
	}
}

func TestMemoryStore_EvictsLeastRecentlyUsedUser(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore(1)
	require.NoError(t, err)

	require.NoError(t, store.PutMealLog(ctx, "U", "2024-05-10", "Oatmeal with berries"))
	require.NoError(t, store.PutMealLog(ctx, "V", "2024-05-10", "Pasta with pesto"))

	_, found, err := store.GetMealLog(ctx, "U", "2024-05-10")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = store.GetMealLog(ctx, "V", "2024-05-10")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestOpen_MemorySize(t *testing.T) {
	ctx := context.Background()
	store, err := Open("memory", "", 1)
	require.NoError(t, err)

	require.NoError(t, store.PutMealLog(ctx, "U", "2024-05-10", "Oatmeal with berries"))
	require.NoError(t, store.PutMealLog(ctx, "V", "2024-05-10", "Pasta with pesto"))

	_, found, err := store.GetMealLog(ctx, "U", "2024-05-10")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_ConcurrentWritesKeepOtherKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore(16)
	require.NoError(t, err)

	const writers = 32
	for round := 0; round < 50; round++ {
		user := fmt.Sprintf("user-%d", round)

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				date := earliestLogDate.AddDate(0, 0, i).Format(DateLayout)
				assert.NoError(t, store.PutMealLog(ctx, user, date, "Rice and beans"))
			}(i)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.PutProfile(ctx, user, DefaultProfile()))
			}()
		}
		wg.Wait()

		logs, err := store.ListMealLogs(ctx, user)
		require.NoError(t, err)
		require.Len(t, logs, writers, "round %d", round)

		profile, err := store.GetProfile(ctx, user)
		require.NoError(t, err)
		require.NotNil(t, profile)
	}
}

func TestOpen(t *testing.T) {
	store, err := Open("memory", "", 0)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open("sqlite", filepath.Join(t.TempDir(), "open.db"), 0)
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open("mongo", "", 0)
	assert.Error(t, err)
}
