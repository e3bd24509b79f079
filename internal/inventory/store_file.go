package inventory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const fileMode = 0o644

// One writer lock per inventory file, shared by every FileStore opened on
// the same path inside this process.
var (
	pathLocksMu sync.Mutex
	pathLocks   = map[string]*sync.Mutex{}
)

func lockFor(path string) *sync.Mutex {
	pathLocksMu.Lock()
	defer pathLocksMu.Unlock()

	mu, ok := pathLocks[path]
	if !ok {
		mu = &sync.Mutex{}
		pathLocks[path] = mu
	}
	return mu
}

// FileStore persists the Document as one pretty-printed JSON file.
//
// A missing or corrupt file reads as an empty Document. Corrupt content is
// copied aside before the first write replaces it.
type FileStore struct {
	path    string
	log     *zap.Logger
	metrics *Metrics

	mu    *sync.Mutex
	reads singleflight.Group
}

func NewFileStore(path string, log *zap.Logger, metrics *Metrics) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve inventory path: %w", err)
	}
	abs = filepath.Clean(abs)

	if log == nil {
		log = zap.NewNop()
	}

	return &FileStore{
		path:    abs,
		log:     log.With(zap.String("path", abs)),
		metrics: metrics,
		mu:      lockFor(abs),
	}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

// View coalesces concurrent reads of the file into a single load.
func (s *FileStore) View(ctx context.Context) (Document, error) {
	ch := s.reads.DoChan(s.path, func() (any, error) {
		return s.load().doc, nil
	})

	select {
	case <-ctx.Done():
		return Document{}, ctx.Err()
	case res := <-ch:
		return res.Val.(Document), nil
	}
}

func (s *FileStore) Update(ctx context.Context, fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	cur := s.load()
	doc := cur.doc
	if err := fn(&doc); err != nil {
		return err
	}

	if cur.corrupt {
		s.backup(cur.raw)
	}

	if err := s.write(doc); err != nil {
		s.log.Error("inventory write failed", zap.Error(err))
		s.metrics.writeFailed()
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	// A load already in flight may have read the old file.
	s.reads.Forget(s.path)
	return nil
}

type loaded struct {
	doc     Document
	raw     []byte
	corrupt bool
}

func (s *FileStore) load() loaded {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("inventory file missing, using empty inventory")
			s.metrics.readFailed("missing")
		} else {
			s.log.Error("inventory file unreadable, using empty inventory", zap.Error(err))
			s.metrics.readFailed("unreadable")
		}
		return loaded{doc: emptyDocument()}
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		s.log.Error("inventory file corrupt, using empty inventory", zap.Error(err))
		s.metrics.readFailed("corrupt")
		return loaded{doc: emptyDocument(), raw: raw, corrupt: true}
	}
	return loaded{doc: doc}
}

func (s *FileStore) write(doc Document) error {
	b, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.tmp-%s", s.path, uuid.NewString())
	if err := os.WriteFile(tmp, b, fileMode); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s *FileStore) backup(raw []byte) {
	dst := fmt.Sprintf("%s.corrupt-%s", s.path, uuid.NewString())
	if err := os.WriteFile(dst, raw, fileMode); err != nil {
		s.log.Error("backup of corrupt inventory failed", zap.Error(err))
		return
	}
	s.log.Warn("corrupt inventory preserved", zap.String("backup", dst))
}
