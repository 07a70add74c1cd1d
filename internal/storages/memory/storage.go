package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/greenmaskio/pgschemadiff/internal/storages"
)

type memoryObject struct {
	data         []byte
	lastModified time.Time
}

type objects struct {
	mu    sync.RWMutex
	files map[string]*memoryObject
}

// Storage - in-memory storage. Sub storages share the objects with the parent
type Storage struct {
	basePath string
	objs     *objects
}

// New initializes a root in-memory storage.
func New(basePath string) *Storage {
	return &Storage{
		basePath: path.Clean("/" + basePath),
		objs: &objects{
			files: make(map[string]*memoryObject),
		},
	}
}

func (s *Storage) GetCwd() string {
	return s.basePath
}

func (s *Storage) Dirname() string {
	return path.Base(s.basePath)
}

func (s *Storage) fullPath(filePath string) string {
	return path.Join(s.basePath, filePath)
}

func (s *Storage) ListDir(_ context.Context) (files []string, dirs []storages.Storager, err error) {
	s.objs.mu.RLock()
	defer s.objs.mu.RUnlock()

	prefix := strings.TrimSuffix(s.basePath, "/") + "/"
	var dirNames []string
	for fp := range s.objs.files {
		if !strings.HasPrefix(fp, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(fp, prefix), "/", 2)
		if len(parts) == 1 {
			files = append(files, parts[0])
		} else if !slices.Contains(dirNames, parts[0]) {
			dirNames = append(dirNames, parts[0])
		}
	}
	slices.Sort(files)
	slices.Sort(dirNames)
	for _, d := range dirNames {
		dirs = append(dirs, s.SubStorage(d, true))
	}
	return files, dirs, nil
}

func (s *Storage) GetObject(_ context.Context, filePath string) (io.ReadCloser, error) {
	s.objs.mu.RLock()
	defer s.objs.mu.RUnlock()

	obj, ok := s.objs.files[s.fullPath(filePath)]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", filePath, storages.ErrFileNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *Storage) PutObject(ctx context.Context, filePath string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("error reading object data: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.objs.mu.Lock()
	defer s.objs.mu.Unlock()
	s.objs.files[s.fullPath(filePath)] = &memoryObject{
		data:         data,
		lastModified: time.Now(),
	}
	return nil
}

func (s *Storage) Delete(_ context.Context, filePaths ...string) error {
	s.objs.mu.Lock()
	defer s.objs.mu.Unlock()

	for _, filePath := range filePaths {
		delete(s.objs.files, s.fullPath(filePath))
	}
	return nil
}

func (s *Storage) DeleteAll(_ context.Context, pathPrefix string) error {
	s.objs.mu.Lock()
	defer s.objs.mu.Unlock()

	prefix := strings.TrimSuffix(s.fullPath(pathPrefix), "/") + "/"
	var found bool
	for k := range s.objs.files {
		if strings.HasPrefix(k, prefix) {
			delete(s.objs.files, k)
			found = true
		}
	}
	if !found {
		return fmt.Errorf("prefix %s: %w", pathPrefix, storages.ErrFileNotFound)
	}
	return nil
}

func (s *Storage) Exists(_ context.Context, fileName string) (bool, error) {
	s.objs.mu.RLock()
	defer s.objs.mu.RUnlock()

	_, ok := s.objs.files[s.fullPath(fileName)]
	return ok, nil
}

func (s *Storage) SubStorage(subPath string, relative bool) storages.Storager {
	newBase := path.Clean("/" + subPath)
	if relative {
		newBase = path.Join(s.basePath, subPath)
	}
	return &Storage{
		basePath: newBase,
		objs:     s.objs,
	}
}

func (s *Storage) Stat(fileName string) (*storages.ObjectStat, error) {
	s.objs.mu.RLock()
	defer s.objs.mu.RUnlock()

	fp := s.fullPath(fileName)
	obj, ok := s.objs.files[fp]
	if !ok {
		return &storages.ObjectStat{Name: fp, Exist: false}, nil
	}

	return &storages.ObjectStat{
		Name:         fp,
		LastModified: obj.lastModified,
		Size:         int64(len(obj.data)),
		Exist:        true,
	}, nil
}
