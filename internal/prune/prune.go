// Package prune keeps only the newest snapshot file in each table folder.
package prune

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Extension is the file extension considered for pruning.
const Extension = ".parquet"

// Result summarizes one pruning pass.
type Result struct {
	Kept    []string
	Deleted []string
	Failed  []string
}

type entry struct {
	path    string
	modTime time.Time
}

// Snapshots walks each immediate subfolder of root, keeps the most recently
// modified parquet file and deletes the rest. Delete failures are logged and
// recorded but do not stop the pass. A missing root is not an error.
func Snapshots(root string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	res := &Result{}

	dirs, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("prune root does not exist", "root", root)
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", root, err)
	}

	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		folder := filepath.Join(root, dir.Name())
		files, err := listSnapshots(folder)
		if err != nil {
			logger.Warn("skipping folder", "folder", folder, "error", err)
			continue
		}
		if len(files) == 0 {
			continue
		}

		res.Kept = append(res.Kept, files[0].path)
		for _, f := range files[1:] {
			if err := os.Remove(f.path); err != nil {
				logger.Warn("failed to delete snapshot", "path", f.path, "error", err)
				res.Failed = append(res.Failed, f.path)
				continue
			}
			logger.Debug("deleted snapshot", "path", f.path)
			res.Deleted = append(res.Deleted, f.path)
		}
	}

	logger.Info("pruned snapshots", "root", root, "kept", len(res.Kept), "deleted", len(res.Deleted), "failed", len(res.Failed))
	return res, nil
}

// listSnapshots returns the folder's parquet files, newest first. Equal
// modification times are ordered by name, descending.
func listSnapshots(folder string) ([]entry, error) {
	items, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}

	var files []entry
	for _, item := range items {
		if item.IsDir() || !strings.HasSuffix(item.Name(), Extension) {
			continue
		}
		info, err := item.Info()
		if err != nil {
			// Removed between listing and stat.
			continue
		}
		files = append(files, entry{path: filepath.Join(folder, item.Name()), modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.After(files[j].modTime)
		}
		return files[i].path > files[j].path
	})
	return files, nil
}

// Newest returns the most recently modified parquet file in folder, or ""
// when there is none or the folder does not exist.
func Newest(folder string) (string, error) {
	files, err := listSnapshots(folder)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", folder, err)
	}
	if len(files) == 0 {
		return "", nil
	}
	return files[0].path, nil
}
