package catalog

import (
	"context"
	"slices"
	"sync"
)

// MemStore holds the catalog in memory with the same semantics as
// FileStore. Seed records are added in order through Add, so they must be
// valid.
type MemStore struct {
	mu       sync.RWMutex
	products []Product
}

func NewMemStore(seed ...Product) (*MemStore, error) {
	s := &MemStore{products: []Product{}}
	for _, p := range seed {
		if _, err := s.Add(context.Background(), p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// DemoProducts is the seed the memory driver starts with.
func DemoProducts() []Product {
	return []Product{
		{"title": "Keyboard", "description": "Mechanical keyboard", "price": 49.9, "thumbnail": "img/keyboard.png", "code": "KB-01", "stock": 12},
		{"title": "Mouse", "description": "Wireless mouse", "price": 19.9, "thumbnail": "img/mouse.png", "code": "MS-01", "stock": 30},
	}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context, limit int) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := head(s.products, limit)
	out := make([]Product, 0, len(src))
	for _, p := range src {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := indexOf(s.products, id)
	if i < 0 {
		return nil, false, nil
	}
	return s.products[i].Clone(), true, nil
}

func (s *MemStore) Add(ctx context.Context, in Product) (Product, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := newRecord(in, nextID(s.products))
	s.products = append(s.products, p)
	return p.Clone(), nil
}

func (s *MemStore) Update(ctx context.Context, id int64, patch Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.products, id)
	if i < 0 {
		return nil, notFound(id)
	}
	if err := ValidatePatch(patch); err != nil {
		return nil, err
	}
	s.products[i] = merge(s.products[i], patch)
	return s.products[i].Clone(), nil
}

func (s *MemStore) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.products, id)
	if i < 0 {
		return notFound(id)
	}
	s.products = slices.Delete(s.products, i, i+1)
	return nil
}

func (s *MemStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = []Product{}
	return nil
}
