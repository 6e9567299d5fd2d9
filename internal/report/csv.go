// Package report writes tabular results to disk. Writers either produce the
// complete file or leave the destination untouched.
package report

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/blackwell-systems/cuality/internal/faults"
)

// WriteCSV writes header followed by rows to path. The data goes to a
// temporary file next to path which is renamed over it only after every row
// has been flushed, so a failure never leaves a partial CSV behind.
func WriteCSV(path string, header []string, rows [][]string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return faults.NewIOError("mkdir", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return faults.NewIOError("create", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		return faults.NewIOError("write", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return faults.NewIOError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return faults.NewIOError("write", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return faults.NewIOError("chmod", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return faults.NewIOError("rename", path, err)
	}
	return nil
}
