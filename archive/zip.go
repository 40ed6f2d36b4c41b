package archive

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/use-agent/orderbot/models"
)

// Zip writes every regular file under srcDir into a deflate-compressed
// archive at dest, with paths relative to srcDir. An empty or unreadable
// srcDir is an ARCHIVE_FAILED error and leaves no archive behind.
//
// It returns the archived entry names in walk (lexical) order.
func Zip(srcDir, dest string) ([]string, error) {
	files, err := collect(srcDir)
	if err != nil {
		return nil, models.NewRunError(models.ErrCodeArchive, "failed to read "+srcDir, err)
	}
	if len(files) == 0 {
		return nil, models.NewRunError(models.ErrCodeArchive, srcDir+" is empty", nil)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, models.NewRunError(models.ErrCodeArchive, "failed to create archive directory", err)
	}

	tmp := dest + ".tmp"
	if err := writeZip(tmp, srcDir, files); err != nil {
		_ = os.Remove(tmp)
		return nil, models.NewRunError(models.ErrCodeArchive, "failed to write "+dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return nil, models.NewRunError(models.ErrCodeArchive, "failed to finalise "+dest, err)
	}

	slog.Info("archive written", "path", dest, "files", len(files))
	return files, nil
}

// collect lists regular files under dir as slash-separated relative paths.
func collect(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}

func writeZip(dest, srcDir string, files []string) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	for _, name := range files {
		if err := addFile(zw, srcDir, name); err != nil {
			zw.Close()
			out.Close()
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func addFile(zw *zip.Writer, srcDir, name string) error {
	f, err := os.Open(filepath.Join(srcDir, filepath.FromSlash(name)))
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
