// Package transform discovers the SQL scripts of a layer and executes them
// against the catalog in dependency order.
package transform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nomadiq-labs/parklake/internal/dag"
)

// Unit is one transformation script.
type Unit struct {
	Name        string
	Path        string
	Description string
	DependsOn   []string
	SQL         string
}

// Discover reads every *.sql file directly inside folder and returns the
// units in execution order: declared dependencies first, otherwise by name.
// A missing folder yields no units.
func Discover(folder string) ([]*Unit, error) {
	paths, err := filepath.Glob(filepath.Join(folder, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts in %s: %w", folder, err)
	}

	units := make([]*Unit, 0, len(paths))
	for _, p := range paths {
		unit, err := readUnit(p)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return Order(units)
}

func readUnit(path string) (*Unit, error) {
	content, err := os.ReadFile(path) //nolint:gosec // scripts come from the configured SQL dir
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}

	fm, body, err := ExtractFrontmatter(string(content))
	if err != nil {
		var fmErr *FrontmatterError
		if errors.As(err, &fmErr) {
			fmErr.File = path
		}
		return nil, err
	}

	name := fm.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".sql")
	}
	return &Unit{
		Name:        name,
		Path:        path,
		Description: fm.Description,
		DependsOn:   fm.DependsOn,
		SQL:         body,
	}, nil
}

// Order sorts units so that each runs after the units it depends on. Ties
// are broken by name. Duplicate names, unknown dependencies and cycles are
// errors.
func Order(units []*Unit) ([]*Unit, error) {
	g := dag.NewGraph[*Unit]()
	for _, u := range units {
		if existing, ok := g.Value(u.Name); ok {
			return nil, fmt.Errorf("duplicate transform %q in %s and %s", u.Name, existing.Path, u.Path)
		}
		g.AddNode(u.Name, u)
	}
	for _, u := range units {
		for _, dep := range u.DependsOn {
			if err := g.AddEdge(dep, u.Name); err != nil {
				return nil, fmt.Errorf("transform %s: %w", u.Name, err)
			}
		}
	}
	return g.Values()
}
