package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/storage"
)

// failingStorage wraps a MemoryStorage and fails writes on demand.
type failingStorage struct {
	m        sync.Mutex
	inner    *storage.MemoryStorage
	failSets bool
	sets     int
	deletes  int
}

func newFailingStorage() *failingStorage {
	return &failingStorage{inner: storage.NewMemoryStorage()}
}

func (f *failingStorage) Get(ctx context.Context, key string) ([]byte, error) {
	return f.inner.Get(ctx, key)
}

func (f *failingStorage) Set(ctx context.Context, key string, value []byte) error {
	f.m.Lock()
	f.sets++
	fail := f.failSets
	f.m.Unlock()
	if fail {
		return errors.New("quota exceeded")
	}
	return f.inner.Set(ctx, key, value)
}

func (f *failingStorage) Delete(ctx context.Context, keys ...string) error {
	f.m.Lock()
	f.deletes++
	f.m.Unlock()
	return f.inner.Delete(ctx, keys...)
}
