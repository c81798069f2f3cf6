package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jon4hz/moments/internal/config"
	"github.com/stretchr/testify/suite"
)

// StorageTestSuite runs the same behaviour checks against every backend.
type StorageTestSuite struct {
	suite.Suite
	newStorage func(quota int64) Storage
	storage    Storage
	ctx        context.Context
}

func (s *StorageTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.storage = s.newStorage(0)
}

func (s *StorageTestSuite) TearDownTest() {
	s.NoError(s.storage.Close())
}

func (s *StorageTestSuite) TestGetMissingKey() {
	_, err := s.storage.Get(s.ctx, "user")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StorageTestSuite) TestSetAndGet() {
	s.Require().NoError(s.storage.Set(s.ctx, "user", `{"id":1}`))

	value, err := s.storage.Get(s.ctx, "user")
	s.Require().NoError(err)
	s.Equal(`{"id":1}`, value)
}

func (s *StorageTestSuite) TestSetOverwrites() {
	s.Require().NoError(s.storage.Set(s.ctx, "user", `{"id":1}`))
	s.Require().NoError(s.storage.Set(s.ctx, "user", `{"id":2}`))

	value, err := s.storage.Get(s.ctx, "user")
	s.Require().NoError(err)
	s.Equal(`{"id":2}`, value)
}

func (s *StorageTestSuite) TestRemove() {
	s.Require().NoError(s.storage.Set(s.ctx, "user", `{"id":1}`))
	s.Require().NoError(s.storage.Remove(s.ctx, "user"))

	_, err := s.storage.Get(s.ctx, "user")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StorageTestSuite) TestRemoveMissingKey() {
	s.NoError(s.storage.Remove(s.ctx, "user"))
	s.NoError(s.storage.Remove(s.ctx, "user"))
}

func (s *StorageTestSuite) TestQuotaExceeded() {
	quoted := s.newStorage(16)
	defer quoted.Close() //nolint:errcheck

	err := quoted.Set(s.ctx, "user", strings.Repeat("x", 64))
	s.ErrorIs(err, ErrQuotaExceeded)

	_, err = quoted.Get(s.ctx, "user")
	s.ErrorIs(err, ErrNotFound)

	s.NoError(quoted.Set(s.ctx, "user", "small"))
}

func TestMemoryStorage(t *testing.T) {
	suite.Run(t, &StorageTestSuite{
		newStorage: func(quota int64) Storage {
			return NewMemoryStorage("test-", quota)
		},
	})
}

func TestRedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)
	suite.Run(t, &StorageTestSuite{
		newStorage: func(quota int64) Storage {
			mr.FlushAll()
			st, err := NewRedisStorage(mr.Addr(), "test-", quota)
			if err != nil {
				t.Fatalf("failed to create redis storage: %v", err)
			}
			return st
		},
	})
}

func TestSQLiteStorage(t *testing.T) {
	suite.Run(t, &StorageTestSuite{
		newStorage: func(quota int64) Storage {
			st, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "data", "moments.db"), quota)
			if err != nil {
				t.Fatalf("failed to create sqlite storage: %v", err)
			}
			return st
		},
	})
}

func TestSQLiteStorageSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "moments.db")

	st, err := NewSQLiteStorage(path, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.Set(ctx, "user", `{"id":42}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewSQLiteStorage(path, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close() //nolint:errcheck

	value, err := reopened.Get(ctx, "user")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != `{"id":42}` {
		t.Errorf("expected persisted value, got %q", value)
	}
}

func TestRedisStoragePrefixesKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	st, err := NewRedisStorage("redis://"+mr.Addr(), "moments-", 0)
	if err != nil {
		t.Fatalf("failed to create redis storage: %v", err)
	}
	defer st.Close() //nolint:errcheck

	if err := st.Set(context.Background(), "user", `{"id":1}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("moments-user") {
		t.Errorf("expected key moments-user in redis, got %v", mr.Keys())
	}
	if st.GetType() != "redis" {
		t.Errorf("expected redis store, got %s", st.GetType())
	}
}

func TestNew(t *testing.T) {
	st, err := New(&config.StorageConfig{Type: config.StorageTypeMemory, Prefix: "x-"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if cs, ok := st.(*CacheStorage); !ok {
		t.Errorf("expected *CacheStorage, got %T", st)
	} else if cs.GetType() != "go-cache" {
		t.Errorf("expected go-cache store, got %s", cs.GetType())
	}

	st, err = New(&config.StorageConfig{Type: config.StorageTypeSQLite, Path: filepath.Join(t.TempDir(), "m.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer st.Close() //nolint:errcheck
	if _, ok := st.(*SQLiteStorage); !ok {
		t.Errorf("expected *SQLiteStorage, got %T", st)
	}

	if _, err := New(&config.StorageConfig{Type: "local"}); err == nil {
		t.Error("expected error for unknown storage type")
	}
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestRedisStorageErrorsNameTheStore(t *testing.T) {
	mr := miniredis.RunT(t)
	st, err := NewRedisStorage(mr.Addr(), "moments-", 0)
	if err != nil {
		t.Fatalf("failed to create redis storage: %v", err)
	}
	defer st.Close() //nolint:errcheck
	mr.Close()

	_, err = st.Get(context.Background(), "user")
	if err == nil {
		t.Fatal("expected an error with redis down")
	}
	if !strings.Contains(err.Error(), "from redis store") {
		t.Errorf("expected the redis store in the error, got %v", err)
	}
}
