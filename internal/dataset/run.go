package dataset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ppiankov/planeval/internal/model"
)

// ReportBaseName is the file name, without extension, of rendered reports.
// Files with this name are never treated as runs.
const ReportBaseName = "evaluation_result"

// DefaultModel is used when a run file name carries no model part
const DefaultModel = "none"

// Run is one prediction file and the key derived from its name
type Run struct {
	Key  model.RunKey
	Path string
}

// ParseRunKey derives the run key from a file name of the form
// dataset_solver[_model].ext. Everything after the first dot is ignored.
func ParseRunKey(name string) (model.RunKey, error) {
	base := filepath.Base(name)
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}

	parts := strings.Split(base, "_")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return model.RunKey{}, fmt.Errorf("run file name %q: want dataset_solver[_model]", filepath.Base(name))
	}

	key := model.RunKey{
		Dataset: parts[0],
		Solver:  parts[1],
		Model:   DefaultModel,
	}
	if len(parts) > 2 && parts[2] != "" {
		key.Model = parts[2]
	}
	return key, nil
}

// Discover finds run files under dir matching any of the glob patterns.
// Patterns use doublestar syntax relative to dir. Runs are sorted by key.
func Discover(dir string, patterns []string) ([]Run, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("results dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("results dir %s is not a directory", dir)
	}

	fsys := os.DirFS(dir)
	seen := make(map[string]bool)
	byKey := make(map[model.RunKey]string)
	var runs []Run

	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern %q", pattern)
		}

		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}

		for _, match := range matches {
			if seen[match] || isReport(match) {
				continue
			}
			if st, err := fs.Stat(fsys, match); err != nil || st.IsDir() {
				continue
			}
			seen[match] = true

			key, err := ParseRunKey(match)
			if err != nil {
				return nil, err
			}
			path := filepath.Join(dir, filepath.FromSlash(match))
			if prev, ok := byKey[key]; ok {
				return nil, fmt.Errorf("duplicate run %s: %s and %s", key, prev, path)
			}
			byKey[key] = path
			runs = append(runs, Run{Key: key, Path: path})
		}
	}

	if len(runs) == 0 {
		return nil, fmt.Errorf("%w in %s", model.ErrNoRuns, dir)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Key.String() < runs[j].Key.String()
	})
	return runs, nil
}

func isReport(match string) bool {
	base := filepath.Base(match)
	return strings.HasPrefix(base, ReportBaseName+".")
}
