package rowsource

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/sap-date-robot/internal/validation"
)

var testColumns = validation.Columns{Order: "Order", Line: "Line", NewDate: "NewDate"}

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("NewSheet() error = %v", err)
		}
		if err := f.DeleteSheet("Sheet1"); err != nil {
			t.Fatalf("DeleteSheet() error = %v", err)
		}
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		t.Fatalf("NewStyle() error = %v", err)
	}

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName() error = %v", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("SetCellValue(%s) error = %v", cell, err)
			}
			if _, ok := value.(time.Time); ok {
				if err := f.SetCellStyle(sheet, cell, cell, dateStyle); err != nil {
					t.Fatalf("SetCellStyle(%s) error = %v", cell, err)
				}
			}
		}
	}

	path := filepath.Join(t.TempDir(), "orders.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}
	return path
}

func TestLoad_Workbook(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"Order", "Line", "NewDate", "Comment"},
		{4500000001, 10, time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC), "date cell"},
		{},
		{"4500000002", "20", "2026-01-15", "text cells"},
		{"", 30, "25.12.2025", "no order"},
	})

	src, err := Load(path, Options{Columns: testColumns})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	rows := src.Rows()
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (empty row skipped)", len(rows))
	}

	first := rows[0]
	if first.Err != nil {
		t.Fatalf("row 2 Err = %v", first.Err)
	}
	if first.Request.OrderID != "4500000001" || first.Request.LineNumber != 10 || first.Request.TargetDate != "25.12.2025" {
		t.Errorf("row 2 = %+v", first.Request)
	}
	if first.Request.RowNumber != 2 {
		t.Errorf("row 2 RowNumber = %d", first.Request.RowNumber)
	}

	second := rows[1]
	if second.Err != nil || second.Request.TargetDate != "15.01.2026" || second.Request.RowNumber != 4 {
		t.Errorf("row 4 = %+v, Err = %v", second.Request, second.Err)
	}

	if rows[2].Err == nil {
		t.Error("row 5 without order number has no error")
	}
	if src.Table.Sheet != "Sheet1" {
		t.Errorf("Sheet = %q, want Sheet1", src.Table.Sheet)
	}
}

func TestLoad_NamedSheetAndHeaderRow(t *testing.T) {
	path := writeWorkbook(t, "Pedidos", [][]interface{}{
		{"Delivery date changes"},
		{"Order", "Line", "NewDate"},
		{"4500000001", "10", "25/12/2025"},
	})

	src, err := Load(path, Options{Sheet: "Pedidos", HeaderRow: 2, Columns: testColumns})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(src.Rows()) != 1 || src.Rows()[0].Request.RowNumber != 3 {
		t.Fatalf("rows = %+v", src.Rows())
	}

	if _, err := Load(path, Options{Sheet: "Missing", Columns: testColumns}); err == nil {
		t.Error("Load() with unknown sheet succeeded")
	}
}

func TestLoad_MissingColumns(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"Pedido", "Linha", "NovaData"},
		{"4500000001", "10", "25.12.2025"},
	})

	_, err := Load(path, Options{Columns: testColumns})
	if err == nil {
		t.Fatal("Load() succeeded without the configured columns")
	}
	if !strings.Contains(err.Error(), "missing column") {
		t.Errorf("error = %v", err)
	}
}

func TestLoad_CSV(t *testing.T) {
	content := "\ufeffOrder;Line;NewDate\n4500000001;10;25.12.2025\n;;\n4500000002;20;2025-12-26\n"
	path := filepath.Join(t.TempDir(), "orders.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	src, err := Load(path, Options{Delimiter: ";", Columns: testColumns})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	rows := src.Rows()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1].Request.TargetDate != "26.12.2025" || rows[1].Request.RowNumber != 4 {
		t.Errorf("row 4 = %+v", rows[1].Request)
	}
}

func TestRead_UnsupportedType(t *testing.T) {
	if _, err := Read("orders.pdf", Options{}); err == nil {
		t.Error("Read() accepted a .pdf file")
	}
}

func TestConfigureReader(t *testing.T) {
	tests := []struct {
		delimiter string
		want      string
	}{
		{"", "a;b"},
		{";", "a;b"},
		{",", "a,b"},
		{"tab", "a\tb"},
		{"|", "a|b"},
	}

	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "in.csv")
		data := "Order" + string(tt.want[1]) + "Line\n"
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		table, err := Read(path, Options{Delimiter: tt.delimiter})
		if err != nil {
			t.Fatalf("Read(%q) error = %v", tt.delimiter, err)
		}
		if len(table.Headers) != 2 {
			t.Errorf("delimiter %q: headers = %v, want 2 columns", tt.delimiter, table.Headers)
		}
	}
}
