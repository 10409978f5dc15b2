package resolver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadSupplierRules(t *testing.T) {
	data := workbook(t, [][]interface{}{
		{"Prefix", "Supplier", "Notes", "Category"},
		{"TK", "Acme", "", "Tools"},
		{"", "Nobody", "", ""},
		{" CB ", "Cablex"},
	})

	rules, err := ReadSupplierRules(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []PrefixRule{
		{Prefix: "TK", Supplier: "Acme", Category: "Tools"},
		{Prefix: "CB", Supplier: "Cablex"},
	}, rules)
}

func TestReadCategories(t *testing.T) {
	data := workbook(t, [][]interface{}{
		{"Code", "Description", "Unit", "Category"},
		{"TK001", "Hammer", "pc", "Hand Tools"},
		{"TK002", "Saw", "pc", ""},
	})

	cats, err := ReadCategories(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"TK001": "Hand Tools"}, cats)
}

func TestReadSupplierRulesRejectsGarbage(t *testing.T) {
	_, err := ReadSupplierRules(bytes.NewReader([]byte("not a workbook")))
	require.Error(t, err)
}

func TestXLSXLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	suppliers := filepath.Join(dir, "suppliers-codes.xlsx")
	categories := filepath.Join(dir, "categories-descriptions.xlsx")
	require.NoError(t, os.WriteFile(suppliers, workbook(t, [][]interface{}{
		{"Prefix", "Supplier"},
		{"TK", "Acme"},
	}), 0o644))
	require.NoError(t, os.WriteFile(categories, workbook(t, [][]interface{}{
		{"Code", "", "", "Category"},
		{"TK001", "", "", "Hand Tools"},
	}), 0o644))

	r, err := NewXLSXLoader(suppliers, categories).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Resolution{"Acme", "Hand Tools"}, r.Resolve("TK001"))
}

func TestXLSXLoaderMissingCategoriesIsOptional(t *testing.T) {
	dir := t.TempDir()
	suppliers := filepath.Join(dir, "suppliers.xlsx")
	require.NoError(t, os.WriteFile(suppliers, workbook(t, [][]interface{}{
		{"Prefix", "Supplier"},
		{"TK", "Acme"},
	}), 0o644))

	r, err := NewXLSXLoader(suppliers, filepath.Join(dir, "absent.xlsx")).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Acme", r.Resolve("TK1").Supplier)
}

func TestXLSXLoaderMissingSuppliersFails(t *testing.T) {
	_, err := NewXLSXLoader(filepath.Join(t.TempDir(), "absent.xlsx"), "").Load(context.Background())
	require.Error(t, err)
}
