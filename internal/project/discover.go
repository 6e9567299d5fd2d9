package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/blackwell-systems/cuality/internal/faults"
)

// Scan lists the packages directly under root and locates each package's
// migrations directory. A root that does not exist, or is not a directory,
// produces an empty Tree rather than an error.
func Scan(root string, opts Options) (*Tree, error) {
	opts = opts.withDefaults()

	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	tree := &Tree{Root: abs}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return tree, nil
		}
		return nil, faults.NewIOError("stat", abs, err)
	}
	if !info.IsDir() {
		return tree, nil
	}
	tree.Exists = true

	pkgs, err := FindPackages(abs, opts.Markers)
	if err != nil {
		return nil, err
	}
	for i := range pkgs {
		migrations, ok, err := FindMigrations(pkgs[i].Path, opts.MigrationDir)
		if err != nil {
			return nil, err
		}
		if ok {
			pkgs[i].Migrations = migrations
		}
	}
	tree.Packages = pkgs
	return tree, nil
}

// FindPackages returns the immediate subdirectories of root that contain at
// least one of the marker files, in directory-listing order.
func FindPackages(root string, markers []string) ([]Package, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, faults.NewIOError("read", root, err)
	}

	var pkgs []Package
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())
		if !isDir(dir, entry) {
			continue
		}
		if !hasMarker(dir, markers) {
			continue
		}
		pkgs = append(pkgs, Package{Path: dir, Name: entry.Name()})
	}
	return pkgs, nil
}

func hasMarker(dir string, markers []string) bool {
	for _, m := range markers {
		if info, err := os.Stat(filepath.Join(dir, m)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// FindMigrations searches below pkgRoot, depth-first in directory-listing
// order, for the first directory named exactly name. pkgRoot itself is not
// a candidate. Symlinked directories are followed; a directory reached
// twice is searched once.
func FindMigrations(pkgRoot, name string) (string, bool, error) {
	visited := make(map[string]bool)
	stack := []string{pkgRoot}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if dir != pkgRoot && filepath.Base(dir) == name {
			return dir, true, nil
		}

		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			if visited[resolved] {
				continue
			}
			visited[resolved] = true
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", false, faults.NewIOError("read", dir, err)
		}
		var children []string
		for _, entry := range entries {
			if child := filepath.Join(dir, entry.Name()); isDir(child, entry) {
				children = append(children, child)
			}
		}
		// Reverse so the first listed child is popped first.
		slices.Reverse(children)
		stack = append(stack, children...)
	}
	return "", false, nil
}

// isDir reports whether entry is a directory or a symlink to one.
func isDir(path string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
