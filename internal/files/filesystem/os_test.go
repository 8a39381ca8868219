package filesystem

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestOSFileSystem_Open_ValidDirectory(t *testing.T) {
	dir := t.TempDir()
	fs := NewOSFileSystem()

	d, err := fs.Open(dir)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", dir, err)
	}

	absDir, _ := filepath.Abs(dir)
	if d.Path() != absDir {
		t.Errorf("directory.Path() = %q, want %q", d.Path(), absDir)
	}
}

func TestOSFileSystem_Open_NonexistentPath(t *testing.T) {
	fs := NewOSFileSystem()

	_, err := fs.Open(filepath.Join(t.TempDir(), "nonexistent"))
	if err == nil {
		t.Error("Open(nonexistent) should return error")
	}
}

func TestOSFileSystem_Open_FileNotDirectory(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "file.json")
	writeFile(t, filePath, "{}")

	fs := NewOSFileSystem()

	_, err := fs.Open(filePath)
	if err == nil {
		t.Error("Open(file) should return error")
	}
}

func TestOSFileSystem_OpenFile(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "song.json")
	expected := `{"song_id":"S1"}`
	writeFile(t, filePath, expected)

	fs := NewOSFileSystem()

	rc, err := fs.OpenFile(filePath)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != expected {
		t.Errorf("OpenFile() content = %q, want %q", string(data), expected)
	}
}

func TestOSFileSystem_OpenFile_Nonexistent(t *testing.T) {
	fs := NewOSFileSystem()

	_, err := fs.OpenFile(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Error("OpenFile(nonexistent) should return error")
	}
}

func TestOSFileSystem_Stat(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "song.json")
	writeFile(t, filePath, "{}")

	fs := NewOSFileSystem()

	info, err := fs.Stat(filePath)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.IsDir() {
		t.Error("Stat(file) should not be a directory")
	}
	if info.Size() != 2 {
		t.Errorf("Stat().Size() = %d, want 2", info.Size())
	}

	info, err = fs.Stat(dir)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !info.IsDir() {
		t.Error("Stat(dir) should be a directory")
	}
}

func TestOSFileSystem_Walk_LexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b", "TRB.json"), "{}")
	writeFile(t, filepath.Join(dir, "a", "B", "TRA2.json"), "{}")
	writeFile(t, filepath.Join(dir, "a", "A", "TRA1.json"), "{}")

	fs := NewOSFileSystem()
	d, err := fs.Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	var files []string
	err = d.Walk(func(f File, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !f.Info().IsDir() {
			files = append(files, f.RelativePath())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	want := []string{"a/A/TRA1.json", "a/B/TRA2.json", "b/TRB.json"}
	if len(files) != len(want) {
		t.Fatalf("Walk found %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestOSFileSystem_Walk_CallbackPanic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x.json"), "{}")

	d, err := NewOSFileSystem().Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	err = d.Walk(func(f File, walkErr error) error {
		panic("boom")
	})
	if err == nil {
		t.Fatal("Walk() should convert callback panic into error")
	}
}
