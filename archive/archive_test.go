package archive

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
	"github.com/use-agent/orderbot/models"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer r.Close()

	got := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		got[f.Name] = string(data)
	}
	return got
}

func TestZip(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "receipts")
	files := map[string]string{
		"1.pdf":      "%PDF-1 one",
		"2.pdf":      "%PDF-1 two",
		"nested/x.p": "deep",
	}
	writeFiles(t, src, files)
	dest := filepath.Join(root, "receipts.zip")

	names, err := Zip(src, dest)
	if err != nil {
		t.Fatalf("Zip() error: %v", err)
	}
	if diff := cmp.Diff([]string{"1.pdf", "2.pdf", "nested/x.p"}, names); diff != "" {
		t.Errorf("entry names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(files, readZip(t, dest)); diff != "" {
		t.Errorf("archive contents mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(dest + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Error("temporary archive left behind")
	}
}

func TestZip_OverwritesExisting(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "receipts")
	writeFiles(t, src, map[string]string{"3.pdf": "three"})
	dest := filepath.Join(root, "receipts.zip")
	if err := os.WriteFile(dest, []byte("old archive"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Zip(src, dest); err != nil {
		t.Fatalf("Zip() error: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"3.pdf": "three"}, readZip(t, dest)); diff != "" {
		t.Errorf("archive contents mismatch (-want +got):\n%s", diff)
	}
}

func TestZip_EmptyOrMissingSource(t *testing.T) {
	root := t.TempDir()
	empty := filepath.Join(root, "empty")
	if err := os.Mkdir(empty, 0o755); err != nil {
		t.Fatal(err)
	}

	for _, src := range []string{empty, filepath.Join(root, "absent")} {
		dest := filepath.Join(root, "out.zip")
		_, err := Zip(src, dest)
		if code := models.CodeOf(err); code != models.ErrCodeArchive {
			t.Errorf("Zip(%s) error = %v, want %s", src, err, models.ErrCodeArchive)
		}
		if _, statErr := os.Stat(dest); !errors.Is(statErr, os.ErrNotExist) {
			t.Errorf("Zip(%s) must not leave an archive", src)
		}
	}
}

func TestCleanup_Idempotent(t *testing.T) {
	root := t.TempDir()
	receipts := filepath.Join(root, "receipts")
	shots := filepath.Join(root, "screenshots")
	writeFiles(t, receipts, map[string]string{"1.pdf": "x"})
	writeFiles(t, shots, map[string]string{"1.png": "y"})

	for i := 0; i < 2; i++ {
		if err := Cleanup(receipts, shots); err != nil {
			t.Fatalf("Cleanup() pass %d error: %v", i+1, err)
		}
	}
	for _, dir := range []string{receipts, shots} {
		if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s should be gone", dir)
		}
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("parent directory must survive: %v", err)
	}
}
