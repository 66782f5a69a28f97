package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// AddDir adds everything under the root of fsys to w: folders with Mkdir
// and regular files with Create. Other kinds of files are skipped.
func AddDir(w *Writer, fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		if d.IsDir() {
			return w.Mkdir(path)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		return w.Create(path, data)
	})
}

// Extract writes the contents of the archive under dir, creating folders
// as needed.
func (a *Archive) Extract(dir string) error {
	for _, e := range a.Entries {
		target := filepath.Join(dir, filepath.FromSlash(e.Path))
		if e.Dir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		data, err := a.Open(e.Path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	return nil
}
