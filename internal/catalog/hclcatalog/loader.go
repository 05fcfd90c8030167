package hclcatalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/gradplan/internal/catalog"
	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/curriculum"
)

// ErrNoFiles is returned when none of the configured paths holds an .hcl file.
var ErrNoFiles = errors.New("no .hcl catalog files found")

// Loader reads course records from HCL files and directories.
type Loader struct {
	paths []string
}

// New creates a loader over the given files or directories.
func New(paths ...string) *Loader {
	return &Loader{paths: paths}
}

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Programs []*programBlock `hcl:"program,block"`
	Courses  []*courseBlock  `hcl:"course,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type programBlock struct {
	Name    string         `hcl:"name,label"`
	Courses []*courseBlock `hcl:"course,block"`
}

type courseBlock struct {
	Code     string         `hcl:"code,label"`
	Name     *string        `hcl:"name,optional"`
	Program  *string        `hcl:"program,optional"`
	Credits  hcl.Expression `hcl:"credits,optional"`
	Level    hcl.Expression `hcl:"level,optional"`
	Requires hcl.Expression `hcl:"requires,optional"`
}

// Records implements catalog.Source. Records keep file order, then block
// order within each file.
func (l *Loader) Records(ctx context.Context) ([]curriculum.Record, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL catalog loader started.", "path_count", len(l.paths))

	files, err := findAllHCLFiles(l.paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoFiles, l.paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	var records []curriculum.Record

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, p := range root.Programs {
			for _, c := range p.Courses {
				rec, ok, err := translateCourse(ctx, c, p.Name)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", file, err)
				}
				if ok {
					records = append(records, rec)
				}
			}
		}
		for _, c := range root.Courses {
			rec, ok, err := translateCourse(ctx, c, "")
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			if ok {
				records = append(records, rec)
			}
		}
	}

	logger.Debug("HCL catalog loading complete.", "files", len(files), "records", len(records))
	return records, nil
}

// translateCourse turns a decoded block into a sanitized record.
func translateCourse(ctx context.Context, c *courseBlock, program string) (curriculum.Record, bool, error) {
	if c.Program != nil {
		program = *c.Program
	}

	credits, err := numberAttr(ctx, c.Credits, "credits")
	if err != nil {
		return curriculum.Record{}, false, fmt.Errorf("course %q: %w", c.Code, err)
	}
	level, err := numberAttr(ctx, c.Level, "level")
	if err != nil {
		return curriculum.Record{}, false, fmt.Errorf("course %q: %w", c.Code, err)
	}
	requires, err := requiresAttr(ctx, c.Requires)
	if err != nil {
		return curriculum.Record{}, false, fmt.Errorf("course %q: %w", c.Code, err)
	}

	name := ""
	if c.Name != nil {
		name = *c.Name
	}

	rec, ok := catalog.NewRecord(c.Code, name, credits, level, program, requires)
	if !ok {
		ctxlog.FromContext(ctx).Warn("Course block without a usable code skipped.", "label", c.Code)
	}
	return rec, ok, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					add(p)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			add(path)
		}
	}
	return allFiles, nil
}
