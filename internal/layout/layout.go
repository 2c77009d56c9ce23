package layout

import (
	"path/filepath"
)

const extension = ".png"

// Layout holds the three snapshot roots for a single request. It is built per
// call and never shared, so concurrent requests may use different roots.
type Layout struct {
	BaseDir   string
	ActualDir string
	DiffDir   string
}

// New returns the default layout under root, with the baseline and diff roots
// overridden when baseDir or diffDir are set. The actual root always follows
// the screenshot capturer's convention.
func New(root string, baseDir string, diffDir string) Layout {
	l := Layout{
		BaseDir:   filepath.Join(root, "cypress", "snapshots", "base"),
		ActualDir: filepath.Join(root, "cypress", "snapshots", "actual"),
		DiffDir:   filepath.Join(root, "cypress", "snapshots", "diff"),
	}
	if baseDir != "" {
		l.BaseDir = baseDir
	}
	if diffDir != "" {
		l.DiffDir = diffDir
	}
	return l
}

func (l Layout) Baseline(specDirectory string, name string) string {
	return filepath.Join(l.BaseDir, specDirectory, name+extension)
}

func (l Layout) Actual(specDirectory string, name string) string {
	return filepath.Join(l.ActualDir, specDirectory, name+extension)
}

func (l Layout) Diff(specDirectory string, name string) string {
	return filepath.Join(l.DiffDir, specDirectory, name+extension)
}

func (l Layout) BaselineFolder(specDirectory string) string {
	return filepath.Join(l.BaseDir, specDirectory)
}

func (l Layout) ActualFolder(specDirectory string) string {
	return filepath.Join(l.ActualDir, specDirectory)
}

func (l Layout) DiffFolder(specDirectory string) string {
	return filepath.Join(l.DiffDir, specDirectory)
}
