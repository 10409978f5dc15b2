package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

// Column layout of the reference workbooks. The first row is a header.
const (
	colPrefix   = 0 // A
	colSupplier = 1 // B
	colCode     = 0 // A
	colCategory = 3 // D
)

// Loader reads the reference tables for one invocation.
type Loader interface {
	Load(ctx context.Context) (*Resolver, error)
}

// XLSXLoader loads the supplier prefix table and the optional category table from
// local workbooks.
type XLSXLoader struct {
	SuppliersPath  string
	CategoriesPath string
}

// NewXLSXLoader creates a loader. An empty suppliers path resolves every code to the
// defaults; an empty or missing categories path disables the override table.
func NewXLSXLoader(suppliersPath, categoriesPath string) *XLSXLoader {
	return &XLSXLoader{SuppliersPath: suppliersPath, CategoriesPath: categoriesPath}
}

// Load reads both tables concurrently.
func (l *XLSXLoader) Load(ctx context.Context) (*Resolver, error) {
	var (
		rules      []PrefixRule
		categories map[string]string
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		if l.SuppliersPath == "" {
			return nil
		}
		f, err := os.Open(l.SuppliersPath)
		if err != nil {
			return fmt.Errorf("open suppliers table: %w", err)
		}
		defer f.Close()
		rules, err = ReadSupplierRules(f)
		return err
	})
	g.Go(func() error {
		if l.CategoriesPath == "" {
			return nil
		}
		f, err := os.Open(l.CategoriesPath)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("open categories table: %w", err)
		}
		defer f.Close()
		categories, err = ReadCategories(f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return New(rules, categories), nil
}

// ReadSupplierRules reads (prefix, supplier, category) rows from column A, B and D of
// the first sheet.
func ReadSupplierRules(r io.Reader) ([]PrefixRule, error) {
	rows, err := firstSheetRows(r)
	if err != nil {
		return nil, fmt.Errorf("read suppliers table: %w", err)
	}
	rules := make([]PrefixRule, 0, len(rows))
	for _, row := range skipHeader(rows) {
		prefix := cell(row, colPrefix)
		if prefix == "" {
			continue
		}
		rules = append(rules, PrefixRule{
			Prefix:   prefix,
			Supplier: cell(row, colSupplier),
			Category: cell(row, colCategory),
		})
	}
	return rules, nil
}

// ReadCategories reads code to category rows from column A and D of the first sheet.
func ReadCategories(r io.Reader) (map[string]string, error) {
	rows, err := firstSheetRows(r)
	if err != nil {
		return nil, fmt.Errorf("read categories table: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range skipHeader(rows) {
		code, cat := cell(row, colCode), cell(row, colCategory)
		if code != "" && cat != "" {
			out[code] = cat
		}
	}
	return out, nil
}

func firstSheetRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func skipHeader(rows [][]string) [][]string {
	if len(rows) == 0 {
		return rows
	}
	return rows[1:]
}

func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
