// Copyright 2023 Greenmask
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/greenmaskio/pgschemadiff/internal/storages"
)

const (
	dirMode  os.FileMode = 0750
	fileMode os.FileMode = 0640
)

var errPathIsRequired = errors.New("path is required")

type Storage struct {
	dirMode  os.FileMode
	fileMode os.FileMode
	cwd      string
	mx       *sync.Mutex
}

func NewStorage(cfg *Config) (*Storage, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, errPathIsRequired
	}
	fileInfo, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, err
	}
	if !fileInfo.IsDir() {
		return nil, errors.New("received directory path is file")
	}
	return &Storage{
		dirMode:  dirMode,
		fileMode: fileMode,
		cwd:      cfg.Path,
		mx:       &sync.Mutex{},
	}, nil
}

func (s *Storage) GetCwd() string {
	return s.cwd
}

func (s *Storage) Dirname() string {
	return filepath.Base(s.cwd)
}

func (s *Storage) ListDir(ctx context.Context) (files []string, dirs []storages.Storager, err error) {
	entries, err := os.ReadDir(s.cwd)
	if err != nil {
		return nil, nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, s.SubStorage(entry.Name(), true))
		} else {
			files = append(files, entry.Name())
		}
	}
	return
}

func (s *Storage) GetObject(ctx context.Context, filePath string) (io.ReadCloser, error) {
	f, err := os.Open(path.Join(s.cwd, filePath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("object %s: %w", filePath, storages.ErrFileNotFound)
		}
		return nil, err
	}
	return f, nil
}

func (s *Storage) PutObject(ctx context.Context, filePath string, body io.Reader) error {
	_, err := os.Stat(path.Join(s.cwd, path.Dir(filePath)))
	var errNo syscall.Errno
	if err != nil && errors.As(err, &errNo) && errNo == syscall.ENOENT {
		s.mx.Lock()
		if err = os.MkdirAll(path.Join(s.cwd, path.Dir(filePath)), s.dirMode); err != nil {
			s.mx.Unlock()
			return fmt.Errorf("error creating directory: %w", err)
		}
		s.mx.Unlock()
	} else if err != nil {
		return fmt.Errorf("error getting file stat: %w", err)
	}
	f, err := os.OpenFile(path.Join(s.cwd, filePath), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, s.fileMode)
	if err != nil {
		return fmt.Errorf("unable to create file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	done := make(chan struct{})
	go func() {
		_, err = io.Copy(f, body)
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	if err != nil {
		return fmt.Errorf("error writing data: %w", err)
	}
	return f.Close()
}

func (s *Storage) Delete(ctx context.Context, filePaths ...string) error {
	for _, fp := range filePaths {
		if err := s.remove(fp); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) DeleteAll(ctx context.Context, pathPrefix string) error {
	return s.remove(pathPrefix)
}

func (s *Storage) remove(fp string) error {
	fileInfo, err := os.Stat(path.Join(s.cwd, fp))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("object %s: %w", fp, storages.ErrFileNotFound)
		}
		return err
	}
	if fileInfo.IsDir() {
		if err = os.RemoveAll(path.Join(s.cwd, fp)); err != nil {
			return fmt.Errorf("error deleting directory %s: %w", fp, err)
		}
		return nil
	}
	if err = os.Remove(path.Join(s.cwd, fp)); err != nil {
		return fmt.Errorf("error deleting file %s: %w", fp, err)
	}
	return nil
}

func (s *Storage) Exists(ctx context.Context, fileName string) (bool, error) {
	_, err := os.Stat(path.Join(s.cwd, fileName))
	if err != nil {
		if errors.Is(err, syscall.ENOENT) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Storage) SubStorage(dp string, relative bool) storages.Storager {
	dirPath := dp
	if relative {
		dirPath = path.Join(s.cwd, dp)
	}
	return &Storage{
		cwd:      dirPath,
		dirMode:  s.dirMode,
		fileMode: s.fileMode,
		mx:       s.mx,
	}
}

func (s *Storage) Stat(fileName string) (*storages.ObjectStat, error) {
	fullPath := path.Join(s.cwd, fileName)
	fileInfo, err := os.Stat(fullPath)
	var errNo syscall.Errno
	if err != nil && errors.As(err, &errNo) && errNo == syscall.ENOENT {
		return &storages.ObjectStat{
			Name:         fullPath,
			LastModified: time.Time{},
			Exist:        false,
		}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error getting file stat: %w", err)
	}

	return &storages.ObjectStat{
		Name:         fullPath,
		LastModified: fileInfo.ModTime(),
		Size:         fileInfo.Size(),
		Exist:        true,
	}, nil
}
