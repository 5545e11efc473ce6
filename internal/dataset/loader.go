// Package dataset reads the sales dataset once per process and hands out the
// parsed rows read-only.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"profit-dashboard/internal/models"
)

const (
	batchSize  = 2000
	maxWorkers = 8
)

// Columns lists the required header names.
var Columns = []string{
	"Year", "Month", "Code", "Description",
	"Amount_Sold", "Total_Sale", "Total_Profit",
	"Margin%", "Unit_Cost", "Unit_Profit",
}

var ErrEmptyDataset = errors.New("dataset has no rows")

// Source loads a dataset file on first use. Every later call to Rows returns
// the same slice and error; callers must not modify the returned rows.
type Source struct {
	path     string
	cacheDir string
	logger   *slog.Logger

	once     sync.Once
	rows     []models.Row
	err      error
	loadedAt time.Time
}

type Option func(*Source)

// WithCacheDir enables the gob row cache in dir. An empty dir disables it.
func WithCacheDir(dir string) Option {
	return func(s *Source) { s.cacheDir = dir }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

func NewSource(path string, opts ...Option) *Source {
	s := &Source{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Path() string {
	return s.path
}

func (s *Source) LoadedAt() time.Time {
	return s.loadedAt
}

// Rows loads the dataset on the first call. The load ignores cancellation of
// ctx so that an abandoned first caller cannot memoize a context error.
func (s *Source) Rows(ctx context.Context) ([]models.Row, error) {
	s.once.Do(func() {
		s.rows, s.err = s.load(context.WithoutCancel(ctx))
		s.loadedAt = time.Now()
	})
	return s.rows, s.err
}

func (s *Source) load(ctx context.Context) ([]models.Row, error) {
	if s.cacheDir != "" {
		if rows, err := loadCache(s.cacheDir, s.path); err == nil {
			s.logger.Info("loaded dataset from cache", "file", s.path, "rows", len(rows))
			return rows, nil
		}
	}

	start := time.Now()
	s.logger.Info("reading dataset", "file", s.path)

	rows, err := ReadFile(ctx, s.path)
	if err != nil {
		return nil, err
	}

	if s.cacheDir != "" {
		if err := saveCache(s.cacheDir, s.path, rows); err != nil {
			s.logger.Warn("failed to save dataset cache", "error", err)
		}
	}

	duration := time.Since(start)
	s.logger.Info("dataset loaded",
		"rows", len(rows),
		"duration", duration,
	)
	return rows, nil
}

// ReadFile parses a .csv or .xlsx dataset.
func ReadFile(ctx context.Context, path string) ([]models.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(ctx, file)
	case ".csv", "":
		return ReadCSV(ctx, file)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
}

func ReadCSV(ctx context.Context, r io.Reader) ([]models.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return parseRecords(ctx, records)
}

// ReadXLSX parses the first sheet of a workbook.
func ReadXLSX(ctx context.Context, r io.Reader) ([]models.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return parseRecords(ctx, records)
}

func parseRecords(ctx context.Context, records [][]string) ([]models.Row, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	index, err := headerIndex(records[0])
	if err != nil {
		return nil, err
	}

	body := make([][]string, 0, len(records)-1)
	lineNumbers := make([]int, 0, len(records)-1)
	for i, record := range records[1:] {
		if blank(record) {
			continue
		}
		body = append(body, record)
		lineNumbers = append(lineNumbers, i+2)
	}
	if len(body) == 0 {
		return nil, ErrEmptyDataset
	}

	rows := make([]models.Row, len(body))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for start := 0; start < len(body); start += batchSize {
		end := min(start+batchSize, len(body))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				row, err := parseRow(body[i], index)
				if err != nil {
					return fmt.Errorf("row %d: %w", lineNumbers[i], err)
				}
				rows[i] = row
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	var missing []string
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func parseRow(record []string, index map[string]int) (models.Row, error) {
	field := func(col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	year, err := parseInt(field("Year"))
	if err != nil {
		return models.Row{}, fmt.Errorf("Year: %w", err)
	}
	month, err := parseInt(field("Month"))
	if err != nil {
		return models.Row{}, fmt.Errorf("Month: %w", err)
	}
	if month < 1 || month > 12 {
		return models.Row{}, fmt.Errorf("Month: %d out of range", month)
	}

	row := models.Row{
		Year:        year,
		Month:       month,
		Code:        field("Code"),
		Description: field("Description"),
	}

	measures := []struct {
		col string
		dst *float64
	}{
		{"Amount_Sold", &row.AmountSold},
		{"Total_Sale", &row.TotalSale},
		{"Total_Profit", &row.TotalProfit},
		{"Margin%", &row.MarginPct},
		{"Unit_Cost", &row.UnitCost},
		{"Unit_Profit", &row.UnitProfit},
	}
	for _, m := range measures {
		v, err := parseFloat(field(m.col))
		if err != nil {
			return models.Row{}, fmt.Errorf("%s: %w", m.col, err)
		}
		*m.dst = v
	}

	return row, nil
}

func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int(f), nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
