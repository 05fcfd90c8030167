package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vk/gradplan/internal/catalog"
	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/curriculum"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("required column missing")

const (
	colCode         = "codigo"
	colName         = "asignatura"
	colCredits      = "creditos"
	colLevel        = "nivel"
	colProgram      = "carrera"
	colRequirements = "requisitos"
)

var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ñ", "n",
)

// Importer is a catalog.Source over a CSV file.
type Importer struct {
	path string
}

// New returns an importer for the CSV file at path.
func New(path string) *Importer {
	return &Importer{path: path}
}

// Records implements catalog.Source.
func (i *Importer) Records(ctx context.Context) ([]curriculum.Record, error) {
	f, err := os.Open(i.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog CSV %s: %w", i.path, err)
	}
	defer f.Close()

	records, err := Read(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to import catalog CSV %s: %w", i.path, err)
	}
	return records, nil
}

// Read parses CSV rows from r.
func Read(ctx context.Context, r io.Reader) ([]curriculum.Record, error) {
	logger := ctxlog.FromContext(ctx)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, colCode)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns := indexHeader(header)
	for _, required := range []string{colCode, colName} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var (
		records []curriculum.Record
		dropped int
		line    = 1
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return row[idx]
		}

		if catalog.CleanString(cell(colName), "") == "" {
			dropped++
			continue
		}
		rec, ok := catalog.NewRecord(
			cell(colCode),
			cell(colName),
			cell(colCredits),
			cell(colLevel),
			cell(colProgram),
			cell(colRequirements),
		)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}

	logger.Debug("CSV catalog parsed.", "records", len(records), "dropped_rows", dropped)
	return records, nil
}

// indexHeader maps each normalized column name to its position. The first
// occurrence of a name wins.
func indexHeader(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		key := normalizeHeader(name)
		if _, exists := columns[key]; !exists {
			columns[key] = idx
		}
	}
	return columns
}

func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.ToLower(accentFolder.Replace(strings.TrimSpace(name)))
}
