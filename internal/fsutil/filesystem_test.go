package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_ReadDirSorted(t *testing.T) {
	dir := t.TempDir()
	ofs := OSFileSystem{}
	for _, name := range []string{"2024-06-03.csv", "2024-06-01.csv", "2024-06-02.csv"} {
		if err := ofs.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	entries, err := ofs.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Name() != "2024-06-01.csv" || entries[2].Name() != "2024-06-03.csv" {
		t.Errorf("entries not sorted: %v, %v", entries[0].Name(), entries[2].Name())
	}
}

func TestOSFileSystem_CreateAndExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results", "nested")
	ofs := OSFileSystem{}
	if err := ofs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	path := filepath.Join(dir, "out.csv")
	w, err := ofs.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := io.WriteString(w, "a,b\n"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !ofs.Exists(path) {
		t.Error("expected created file to exist")
	}
	if ofs.Exists(filepath.Join(dir, "missing.csv")) {
		t.Error("expected missing file to not exist")
	}
	data, err := ofs.ReadFile(path)
	if err != nil || string(data) != "a,b\n" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
}

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/results/created.txt")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("created content")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if data, _ := mfs.ReadFile("/results/created.txt"); len(data) != 0 {
		t.Errorf("expected empty file before Close, got %q", data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := mfs.ReadFile("/results/created.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "created content" {
		t.Errorf("expected 'created content', got %q", data)
	}
}

func TestMemoryFileSystem_Open(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.WriteFile("/data/2024-06-01.csv", []byte("open me"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	f, err := mfs.Open("/data/2024-06-01.csv")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "open me" {
		t.Errorf("expected 'open me', got %q", data)
	}

	info, err := f.Stat()
	if err != nil || info.Name() != "2024-06-01.csv" || info.Size() != 7 {
		t.Errorf("Stat = %v, %v", info, err)
	}

	if _, err := mfs.Open("/data/missing.csv"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestMemoryFileSystem_ReadDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.WriteFile("/data/b.csv", []byte("b"), 0644)
	_ = mfs.WriteFile("/data/a.csv", []byte("a"), 0644)
	_ = mfs.WriteFile("/data/sub/c.csv", []byte("c"), 0644)
	_ = mfs.MkdirAll("/data/empty", 0755)

	entries, err := mfs.ReadDir("/data")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"a.csv", "b.csv", "empty", "sub"}
	if len(names) != len(want) {
		t.Fatalf("ReadDir names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ReadDir names = %v, want %v", names, want)
			break
		}
	}
	if !entries[2].IsDir() || !entries[3].IsDir() {
		t.Error("expected 'empty' and 'sub' to be directories")
	}

	if _, err := mfs.ReadDir("/nowhere"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
	if entries, err := mfs.ReadDir("/data/empty"); err != nil || len(entries) != 0 {
		t.Errorf("ReadDir(empty) = %v, %v", entries, err)
	}
}

func TestMemoryFileSystem_MkdirAllAndExists(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("/a/b/c", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
		if !mfs.Exists(p) {
			t.Errorf("expected %s to exist", p)
		}
	}
	if mfs.Exists("/a/x") {
		t.Error("expected /a/x to not exist")
	}
}
