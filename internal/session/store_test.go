package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore 失败: %v", err)
	}
	return store
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	blob := []byte(`{"token":"abc"}`)

	if err := store.Save("alice", blob); err != nil {
		t.Fatalf("save error: %v", err)
	}

	loaded, err := store.Load("alice")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if string(loaded) != string(blob) {
		t.Fatalf("blob mismatch: %s", string(loaded))
	}
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Load("nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveOverwritesPriorBlob(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("alice", []byte("old")); err != nil {
		t.Fatalf("save error: %v", err)
	}
	if err := store.Save("alice", []byte("new")); err != nil {
		t.Fatalf("overwrite error: %v", err)
	}
	loaded, err := store.Load("alice")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if string(loaded) != "new" {
		t.Fatalf("覆盖写入未生效: %s", string(loaded))
	}
}

func TestDropRemovesBlobAndIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("alice", []byte("data")); err != nil {
		t.Fatalf("save error: %v", err)
	}
	if err := store.Drop("alice"); err != nil {
		t.Fatalf("drop error: %v", err)
	}
	if _, err := store.Load("alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("drop 后应为 ErrNotFound, got %v", err)
	}
	if err := store.Drop("alice"); err != nil {
		t.Fatalf("重复 drop 应当幂等: %v", err)
	}
}

func TestRejectsPathTraversalIdentity(t *testing.T) {
	store := newTestStore(t)
	for _, identity := range []string{"", "..", "a/b", `a\b`, "../../etc/passwd"} {
		if err := store.Save(identity, []byte("x")); err == nil {
			t.Fatalf("identity %q 应被拒绝", identity)
		}
		if _, err := store.Load(identity); err == nil || errors.Is(err, ErrNotFound) {
			t.Fatalf("identity %q 读取应直接报错", identity)
		}
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("alice", []byte("data")); err != nil {
		t.Fatalf("save error: %v", err)
	}
	leftovers, err := filepath.Glob(filepath.Join(store.dir, ".session-*"))
	if err != nil {
		t.Fatalf("glob 失败: %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("临时文件未被清理: %v", leftovers)
	}
	if _, err := os.Stat(filepath.Join(store.dir, "alice.json")); err != nil {
		t.Fatalf("最终文件缺失: %v", err)
	}
}
