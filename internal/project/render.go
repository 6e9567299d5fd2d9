package project

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	minNameWidth      = 4
	minMigrationWidth = 10
)

// RelMigrations returns the package's migrations path relative to root, or
// "" when it has none.
func (p Package) RelMigrations(root string) string {
	if p.Migrations == "" {
		return ""
	}
	rel, err := filepath.Rel(root, p.Migrations)
	if err != nil {
		return p.Migrations
	}
	return rel
}

// Render formats the tree as a project header followed by a two-column
// package table. The table is omitted when there are no packages.
func (t *Tree) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Project %s\n\t%s\n", filepath.Base(t.Root), t.Root)
	if len(t.Packages) == 0 {
		return sb.String()
	}

	rows := [][2]string{{"Name", "migrations"}}
	for _, p := range t.Packages {
		rows = append(rows, [2]string{p.Name, p.RelMigrations(t.Root)})
	}

	nameWidth, migWidth := minNameWidth, minMigrationWidth
	for _, r := range rows {
		nameWidth = max(nameWidth, utf8.RuneCountInString(r[0]))
		migWidth = max(migWidth, utf8.RuneCountInString(r[1]))
	}

	sb.WriteString("Packages: \n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "| %s | %s |\n", pad(r[0], nameWidth), pad(r[1], migWidth))
	}
	return sb.String()
}

// String implements fmt.Stringer.
func (t *Tree) String() string {
	return t.Render()
}

// pad right-pads s with spaces to width runes.
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
