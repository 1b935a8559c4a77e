package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/zap"
)

const catalogFileMode = 0o644

// FileStore keeps the catalog as one tab-indented JSON array in a single
// file. Every mutation is a full read-modify-write of that file.
//
// Mutations through one FileStore are serialised. Two FileStores (or two
// processes) on the same path are not: the last write wins and the other
// update is lost.
type FileStore struct {
	path string
	log  *zap.Logger

	mu sync.Mutex
}

func NewFileStore(path string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{path: path, log: log}
}

func (s *FileStore) Path() string { return s.path }

// Ping checks that the directory holding the catalog exists. The file
// itself may be absent.
func (s *FileStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	fi, err := os.Stat(dir)
	if err != nil {
		return &StoreError{Op: OpRead, Path: dir, Err: err}
	}
	if !fi.IsDir() {
		return &StoreError{Op: OpRead, Path: dir, Err: errors.New("not a directory")}
	}
	return nil
}

func (s *FileStore) List(ctx context.Context, limit int) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := s.ReadCatalog()
	if err != nil {
		return nil, err
	}
	return head(records, limit), nil
}

func (s *FileStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	records, err := s.ReadCatalog()
	if err != nil {
		return nil, false, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, false, nil
	}
	return records[i], true, nil
}

func (s *FileStore) Add(ctx context.Context, in Product) (Product, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.ReadCatalog()
	if err != nil {
		return nil, err
	}

	p := newRecord(in, nextID(records))
	if err := s.WriteCatalog(append(records, p)); err != nil {
		return nil, err
	}

	s.log.Debug("product added", zap.Any("id", p[FieldID]), zap.String("path", s.path))
	return p, nil
}

func (s *FileStore) Update(ctx context.Context, id int64, patch Product) (Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.ReadCatalog()
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, notFound(id)
	}
	if err := ValidatePatch(patch); err != nil {
		return nil, err
	}

	records[i] = merge(records[i], patch)
	if err := s.WriteCatalog(records); err != nil {
		return nil, err
	}
	return records[i], nil
}

func (s *FileStore) Remove(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.ReadCatalog()
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return notFound(id)
	}

	return s.WriteCatalog(slices.Delete(records, i, i+1))
}

func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.WriteCatalog(nil); err != nil {
		return err
	}
	s.log.Info("all products deleted", zap.String("path", s.path))
	return nil
}

// ReadCatalog loads the whole catalog. A missing or blank file is an empty
// catalog; anything else that cannot be parsed as an array of objects is a
// *StoreError.
func (s *FileStore) ReadCatalog() ([]Product, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("catalog file missing, treating as empty", zap.String("path", s.path))
			return []Product{}, nil
		}
		return nil, &StoreError{Op: OpRead, Path: s.path, Err: err}
	}

	records, err := decodeCatalog(data)
	if err != nil {
		return nil, &StoreError{Op: OpRead, Path: s.path, Err: err}
	}
	return records, nil
}

// WriteCatalog replaces the file with records. The previous content stays
// intact if the write fails part way.
func (s *FileStore) WriteCatalog(records []Product) error {
	data, err := encodeCatalog(records)
	if err != nil {
		return &StoreError{Op: OpWrite, Path: s.path, Err: err}
	}
	if err := writeFileAtomic(s.path, data, catalogFileMode); err != nil {
		return &StoreError{Op: OpWrite, Path: s.path, Err: err}
	}
	return nil
}

func decodeCatalog(data []byte) ([]Product, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Product{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []Product
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("invalid JSON: trailing content")
	}

	for i, p := range records {
		if p == nil {
			return nil, fmt.Errorf("entry %d is null", i)
		}
	}
	if records == nil {
		records = []Product{}
	}
	return records, nil
}

func encodeCatalog(records []Product) ([]byte, error) {
	if records == nil {
		records = []Product{}
	}
	return json.MarshalIndent(records, "", "\t")
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
