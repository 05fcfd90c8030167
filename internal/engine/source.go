package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/gradplan/internal/catalog"
	"github.com/vk/gradplan/internal/catalog/csvimport"
	"github.com/vk/gradplan/internal/catalog/hclcatalog"
	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/snapshot"
)

// ResolveSource picks the catalog reader for a path. A directory or an
// .hcl file is read as HCL, a .csv file as a spreadsheet export and a
// .snapshot file as a binary snapshot.
func ResolveSource(ctx context.Context, path string) (catalog.Source, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving catalog path.", "path", path)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog path not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	if info.IsDir() {
		logger.Debug("Path is a directory, scanning for HCL files.", "directory", path)
		return hclcatalog.New(path), nil
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		return hclcatalog.New(path), nil
	case ".csv":
		return csvimport.New(path), nil
	case snapshot.Ext:
		return snapshot.NewSource(path), nil
	default:
		return nil, fmt.Errorf("unsupported catalog file type %q: %s", ext, path)
	}
}
