package storage

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestSaveAndResolve(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key, err := store.Save("../../etc/report.txt", strings.NewReader("printer on fire"), 1024)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(key, "_report.txt") {
		t.Errorf("key = %q", key)
	}
	if OriginalName(key) != "report.txt" {
		t.Errorf("original name = %q", OriginalName(key))
	}
	if !store.Exists(key) {
		t.Fatal("expected file to exist")
	}

	path, err := store.Path(key)
	if err != nil {
		t.Fatal(err)
	}
	body, err := os.ReadFile(path)
	if err != nil || string(body) != "printer on fire" {
		t.Fatalf("read back %q, %v", body, err)
	}

	if err := store.Remove(key); err != nil {
		t.Fatal(err)
	}
	if store.Exists(key) {
		t.Error("file should be gone")
	}
	if err := store.Remove(key); err != nil {
		t.Errorf("second remove should be a no-op, got %v", err)
	}
}

func TestSaveRejectsOversize(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Save("big.bin", strings.NewReader(strings.Repeat("x", 11)), 10)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("oversize upload left %d files behind", len(entries))
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "..", "../x", "a/b"} {
		if _, err := store.Path(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Path(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"notes.md":          "notes.md",
		`C:\Users\a\b.txt`:  "b.txt",
		"  ":                "file",
		"..":                "file",
		"dir/sub/guide.txt": "guide.txt",
	}
	for in, want := range cases {
		if got := SanitizeName(in); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
