package settings

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	rows    map[int64]*Settings
	creates atomic.Int32
	updates []Patch
	delay   time.Duration
	err     error
	// afterRead runs once a row has been read, outside the lock.
	afterRead func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[int64]*Settings{}}
}

func (f *fakeStore) GetOrCreate(_ context.Context, userID int64) (*Settings, error) {
	f.creates.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	row, ok := f.rows[userID]
	if !ok {
		row = &Settings{
			UserID: userID, Provider: DefaultProvider, Model: DefaultModel,
			DefaultLength: DefaultLength, DefaultStyle: DefaultStyle, DefaultLanguage: DefaultLanguage,
			StreamEnabled: true,
		}
		f.rows[userID] = row
	}
	cp := *row
	hook := f.afterRead
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return &cp, nil
}

func (f *fakeStore) Update(_ context.Context, userID int64, p Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, p)
	row := f.rows[userID]
	if p.DefaultLength.Set {
		row.DefaultLength = p.DefaultLength.Value
	}
	if p.DefaultStyle.Set {
		row.DefaultStyle = p.DefaultStyle.Value
	}
	if p.DefaultLanguage.Set {
		row.DefaultLanguage = p.DefaultLanguage.Value
	}
	if p.StreamEnabled.Set {
		row.StreamEnabled = p.StreamEnabled.Value
	}
	return nil
}

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client), mr
}

func TestService_GetOrCreateDefaults(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	s, err := svc.GetOrCreate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "medium", s.DefaultLength)
	assert.Equal(t, "professional", s.DefaultStyle)
	assert.Equal(t, "zh", s.DefaultLanguage)
	assert.True(t, s.StreamEnabled)
}

func TestService_ConcurrentFirstAccessCollapses(t *testing.T) {
	store := newFakeStore()
	store.delay = 50 * time.Millisecond
	svc := NewService(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetOrCreate(context.Background(), 42)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Less(t, store.creates.Load(), int32(10))
	assert.Len(t, store.rows, 1)
}

func TestService_ReturnsCopies(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	a, err := svc.GetOrCreate(context.Background(), 1)
	require.NoError(t, err)
	a.DefaultStyle = "mutated"

	b, err := svc.GetOrCreate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "professional", b.DefaultStyle)
}

func TestService_UpdatePartial(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	require.NoError(t, svc.Update(ctx, 5, Patch{DefaultStyle: Some("casual")}))

	s, err := svc.GetOrCreate(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "casual", s.DefaultStyle)
	assert.Equal(t, "medium", s.DefaultLength)
	assert.Equal(t, "zh", s.DefaultLanguage)
	assert.True(t, s.StreamEnabled)
}

func TestService_UpdateInvalidWritesNothing(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, 5)
	require.NoError(t, err)

	err = svc.Update(ctx, 5, Patch{DefaultStyle: Some("casual"), DefaultLanguage: Some("fr")})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, store.updates)

	s, err := svc.GetOrCreate(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "professional", s.DefaultStyle)
}

func TestService_EmptyPatchIsNoop(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	require.NoError(t, svc.Update(context.Background(), 5, Patch{}))
	assert.Empty(t, store.updates)
	assert.Zero(t, store.creates.Load())
}

func TestService_StoreErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("db down")
	svc := NewService(store, nil)

	_, err := svc.GetOrCreate(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestService_CacheReadThroughAndInvalidate(t *testing.T) {
	store := newFakeStore()
	cache, mr := setupCache(t)
	svc := NewService(store, cache)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, 9)
	require.NoError(t, err)
	assert.True(t, mr.Exists("ai:settings:9"))

	_, err = svc.GetOrCreate(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.creates.Load(), "second read served from cache")

	require.NoError(t, svc.Update(ctx, 9, Patch{DefaultLength: Some("short")}))
	assert.False(t, mr.Exists("ai:settings:9"))

	s, err := svc.GetOrCreate(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "short", s.DefaultLength)
}

func TestService_CacheOutageFallsThrough(t *testing.T) {
	store := newFakeStore()
	cache, mr := setupCache(t)
	svc := NewService(store, cache)
	mr.Close()

	s, err := svc.GetOrCreate(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.UserID)
}

func TestService_UpdateDuringLoadDoesNotCacheStaleRow(t *testing.T) {
	store := newFakeStore()
	cache, mr := setupCache(t)
	svc := NewService(store, cache)
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx, 4)
	require.NoError(t, err)

	// The update lands between the cache miss's row read and its cache write.
	fired := false
	store.afterRead = func() {
		if fired {
			return
		}
		fired = true
		require.NoError(t, svc.Update(ctx, 4, Patch{StreamEnabled: Some(false)}))
	}

	stale, err := svc.GetOrCreate(ctx, 4)
	require.NoError(t, err)
	assert.True(t, stale.StreamEnabled, "the in-flight read saw the old row")
	assert.False(t, mr.Exists("ai:settings:4"), "the old row must not be cached")

	store.afterRead = nil
	fresh, err := svc.GetOrCreate(ctx, 4)
	require.NoError(t, err)
	assert.False(t, fresh.StreamEnabled)
	assert.True(t, mr.Exists("ai:settings:4"))

	cached, err := cache.Get(ctx, 4)
	require.NoError(t, err)
	assert.False(t, cached.StreamEnabled)
}

func TestCache_InvalidateBumpsGeneration(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()

	gen, err := cache.Generation(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "0", gen)

	require.NoError(t, cache.Invalidate(ctx, 2))
	next, err := cache.Generation(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "1", next)

	stored, err := cache.SetIfGeneration(ctx, &Settings{UserID: 2}, gen)
	require.NoError(t, err)
	assert.False(t, stored)

	stored, err = cache.SetIfGeneration(ctx, &Settings{UserID: 2}, next)
	require.NoError(t, err)
	assert.True(t, stored)
}
