package catalog

import (
	"context"
	"slices"
)

// Store is the catalog contract shared by every backend. List with a
// limit <= 0 returns the whole catalog. Get reports absence through ok;
// Update and Remove return ErrNotFound.
type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context, limit int) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, bool, error)
	Add(ctx context.Context, in Product) (Product, error)
	Update(ctx context.Context, id int64, patch Product) (Product, error)
	Remove(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
}

// nextID is max(ids)+1 over the whole catalog, so hand-edited or
// reordered files never produce a duplicate.
func nextID(records []Product) int64 {
	var maxID int64
	for _, p := range records {
		if id, ok := p.ID(); ok && id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

// indexOf returns the position of the first record with id, or -1.
func indexOf(records []Product, id int64) int {
	return slices.IndexFunc(records, func(p Product) bool {
		got, ok := p.ID()
		return ok && got == id
	})
}

func head(records []Product, limit int) []Product {
	if limit > 0 && limit < len(records) {
		return records[:limit]
	}
	return records
}

// newRecord builds the stored form of an add: the generated id plus every
// caller field except a caller-supplied id.
func newRecord(in Product, id int64) Product {
	out := make(Product, len(in)+1)
	for k, v := range in {
		if k == FieldID {
			continue
		}
		out[k] = v
	}
	out[FieldID] = id
	return out
}

// merge applies patch over old. The stored id always survives.
func merge(old, patch Product) Product {
	out := old.Clone()
	for k, v := range patch {
		if k == FieldID {
			continue
		}
		out[k] = v
	}
	return out
}
