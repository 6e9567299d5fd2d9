// Package project inspects a multi-package project directory: it finds the
// installable sub-packages and, inside each one, its migrations folder.
package project

// DefaultMarkers are the files whose presence marks a directory as a package.
var DefaultMarkers = []string{"setup.py"}

// DefaultMigrationDir is the directory name searched for inside a package.
const DefaultMigrationDir = "migration"

// Options controls package discovery.
type Options struct {
	// Markers lists package-descriptor file names. Empty means DefaultMarkers.
	Markers []string

	// MigrationDir is the exact, case-sensitive directory name to find.
	// Empty means DefaultMigrationDir.
	MigrationDir string
}

func (o Options) withDefaults() Options {
	if len(o.Markers) == 0 {
		o.Markers = DefaultMarkers
	}
	if o.MigrationDir == "" {
		o.MigrationDir = DefaultMigrationDir
	}
	return o
}

// Package is an immediate subdirectory of the project root that contains a
// package-descriptor file.
type Package struct {
	// Path is the absolute path to the package directory.
	Path string `json:"path"`

	// Name is the package directory name.
	Name string `json:"name"`

	// Migrations is the absolute path of the first migrations directory
	// found, or empty when the package has none.
	Migrations string `json:"migrations,omitempty"`
}

// Tree is the result of scanning a project root.
type Tree struct {
	// Root is the absolute path that was scanned.
	Root string `json:"root"`

	// Exists is false when Root is missing or is not a directory.
	Exists bool `json:"exists"`

	Packages []Package `json:"packages"`
}
