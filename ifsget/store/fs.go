package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/opencontainers/go-digest"

	"ifs-get/ifsget"
	ifserrors "ifs-get/ifsget/errors"
	"ifs-get/ifsget/logger"
)

const imageSuffix = ".ifs"

// FSStore keeps IFS images on a billy filesystem, one file per published
// version: <root>/<componentID>/<version>.ifs. Production uses the OS
// filesystem; tests pass an in-memory one.
type FSStore struct {
	fs billy.Filesystem
}

// NewFSStore wraps an existing billy filesystem rooted at the store
// directory.
func NewFSStore(fsys billy.Filesystem) *FSStore {
	return &FSStore{fs: fsys}
}

// NewOSStore opens a store backed by a directory on the local filesystem.
func NewOSStore(root string) *FSStore {
	return NewFSStore(osfs.New(root))
}

func (s *FSStore) imagePath(id ifsget.ComponentID, version ifsget.Version) string {
	return s.fs.Join(string(id), fmt.Sprintf("%d%s", uint64(version), imageSuffix))
}

func (s *FSStore) Exists(ctx context.Context, id ifsget.ComponentID, version ifsget.Version) (bool, error) {
	_, err := s.fs.Stat(s.imagePath(id, version))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FSStore) ListVersions(ctx context.Context, id ifsget.ComponentID) ([]ifsget.Version, error) {
	entries, err := s.fs.ReadDir(string(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var versions []ifsget.Version
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, imageSuffix) {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSuffix(name, imageSuffix), 10, 64)
		if err != nil {
			logger.Warn("ignoring stray file in store: %s/%s", id, name)
			continue
		}
		versions = append(versions, ifsget.Version(v))
	}
	// ReadDir sorts by name, but lexical order is not numeric order.
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

func (s *FSStore) ReadRange(ctx context.Context, id ifsget.ComponentID, version ifsget.Version, offset int64, maxLen int64) ([]byte, error) {
	path := s.imagePath(id, version)

	info, err := s.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound(id, version)
		}
		return nil, err
	}
	size := info.Size()
	if offset < 0 || offset > size {
		return nil, ifserrors.ErrRangeInvalid.
			WithDetail("offset", offset).
			WithDetail("size", size)
	}

	want := size - offset
	if maxLen > 0 && maxLen < want {
		want = maxLen
	}
	if want == 0 {
		return nil, nil
	}

	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, want)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func (s *FSStore) Size(ctx context.Context, id ifsget.ComponentID, version ifsget.Version) (int64, error) {
	info, err := s.fs.Stat(s.imagePath(id, version))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, notFound(id, version)
		}
		return 0, err
	}
	return info.Size(), nil
}

// Put writes a new image file, digesting the content as it streams in.
func (s *FSStore) Put(ctx context.Context, id ifsget.ComponentID, version ifsget.Version, r io.Reader) (digest.Digest, int64, error) {
	path := s.imagePath(id, version)

	if _, err := s.fs.Stat(path); err == nil {
		return "", 0, ifserrors.ErrPublishConflict.
			WithDetail("component", string(id)).
			WithDetail("version", uint64(version))
	}
	if err := s.fs.MkdirAll(string(id), 0755); err != nil {
		return "", 0, err
	}

	f, err := s.fs.Create(path)
	if err != nil {
		return "", 0, err
	}

	digester := digest.SHA256.Digester()
	n, err := io.Copy(io.MultiWriter(f, digester.Hash()), r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.fs.Remove(path)
		return "", 0, err
	}

	logger.Info("published %s@%d: %d bytes, %s", id, version, n, digester.Digest())
	return digester.Digest(), n, nil
}

func notFound(id ifsget.ComponentID, version ifsget.Version) error {
	return ifserrors.ErrNotFound.
		WithDetail("component", string(id)).
		WithDetail("version", uint64(version))
}
