package validation

import (
	"errors"
	"strings"
	"testing"
)

var columns = Columns{Order: "Order", Line: "Line", NewDate: "NewDate"}

func record(row int, order, line, date string) Record {
	return Record{RowNumber: row, Fields: map[string]string{"Order": order, "Line": line, "NewDate": date}}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name      string
		rec       Record
		wantOrder string
		wantLine  int
		wantDate  string
		wantRules []string
	}{
		{"valid", record(2, "4500000001", "10", "2025-12-25"), "4500000001", 10, "25.12.2025", nil},
		{"float cells", record(3, "4500000001.0", "20.0", "46016"), "4500000001", 20, "25.12.2025", nil},
		{"trims", record(4, " 4500000001 ", " 30 ", " 25/12/2025 "), "4500000001", 30, "25.12.2025", nil},
		{"empty order", record(5, "", "10", "25.12.2025"), "", 10, "25.12.2025", []string{"required"}},
		{"letters in order", record(6, "45A", "10", "25.12.2025"), "45A", 10, "25.12.2025", []string{"numeric"}},
		{"only a float suffix", record(12, ".0", "10", "25.12.2025"), ".0", 10, "25.12.2025", []string{"numeric"}},
		{"non-ASCII digits", record(13, "\u0664\u0665\u0660\u0660", "10", "25.12.2025"), "\u0664\u0665\u0660\u0660", 10, "25.12.2025", []string{"numeric"}},
		{"order too long", record(7, "450000000123", "10", "25.12.2025"), "450000000123", 10, "25.12.2025", []string{"numeric"}},
		{"zero line", record(8, "4500000001", "0", "25.12.2025"), "4500000001", 0, "25.12.2025", []string{"range"}},
		{"fractional line", record(9, "4500000001", "10.5", "25.12.2025"), "4500000001", 0, "25.12.2025", []string{"range"}},
		{"bad date", record(10, "4500000001", "10", "31.02.2025"), "4500000001", 10, "31.02.2025", []string{"date"}},
		{"everything empty", record(11, "", "", ""), "", 0, "", []string{"required", "required", "required"}},
	}

	v := NewValidator(columns)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, problems := v.ValidateRecord(tt.rec)

			if req.OrderID != tt.wantOrder {
				t.Errorf("OrderID = %q, want %q", req.OrderID, tt.wantOrder)
			}
			if req.LineNumber != tt.wantLine {
				t.Errorf("LineNumber = %d, want %d", req.LineNumber, tt.wantLine)
			}
			if req.TargetDate != tt.wantDate {
				t.Errorf("TargetDate = %q, want %q", req.TargetDate, tt.wantDate)
			}
			if req.RowNumber != tt.rec.RowNumber {
				t.Errorf("RowNumber = %d, want %d", req.RowNumber, tt.rec.RowNumber)
			}

			if len(problems) != len(tt.wantRules) {
				t.Fatalf("got %d problem(s) %v, want rules %v", len(problems), problems, tt.wantRules)
			}
			for i, p := range problems {
				if p.Rule != tt.wantRules[i] {
					t.Errorf("problem %d rule = %q, want %q", i, p.Rule, tt.wantRules[i])
				}
				if p.RowNumber != tt.rec.RowNumber {
					t.Errorf("problem %d row = %d, want %d", i, p.RowNumber, tt.rec.RowNumber)
				}
			}
		})
	}
}

func TestValidateAll(t *testing.T) {
	v := NewValidator(columns)
	result := v.ValidateAll([]Record{
		record(2, "4500000001", "10", "25.12.2025"),
		record(3, "", "10", "25.12.2025"),
		record(4, "4500000001", "10", "26.12.2025"),
		record(5, "4500000002", "10", "25.12.2025"),
	})

	if len(result.Rows) != 4 {
		t.Fatalf("Rows = %d, want one per record", len(result.Rows))
	}
	if result.ValidRows != 3 {
		t.Errorf("ValidRows = %d, want 3", result.ValidRows)
	}
	if result.ErrorCount != 1 || result.WarningCount != 1 {
		t.Errorf("ErrorCount = %d, WarningCount = %d, want 1 and 1", result.ErrorCount, result.WarningCount)
	}
	if result.IsValid() {
		t.Error("IsValid() = true with a fatal problem")
	}
	if result.InvalidRows != 1 {
		t.Errorf("InvalidRows = %d, want 1", result.InvalidRows)
	}

	var list ErrorList
	if !errors.As(result.Rows[1].Err, &list) {
		t.Fatalf("row 3 Err = %v, want ErrorList", result.Rows[1].Err)
	}
	if !strings.Contains(list.Error(), "order number is empty") {
		t.Errorf("Err = %q", list.Error())
	}

	// Duplicates are processed, only reported.
	if result.Rows[2].Err != nil {
		t.Errorf("duplicate row Err = %v, want nil", result.Rows[2].Err)
	}
	var dup *ValidationError
	for _, e := range result.Errors {
		if e.Rule == "duplicate" {
			dup = e
		}
	}
	if dup == nil || dup.RowNumber != 4 || !strings.Contains(dup.Message, "row 2") {
		t.Errorf("duplicate warning = %+v", dup)
	}
}

func TestCheckHeaders(t *testing.T) {
	v := NewValidator(columns)

	if err := v.CheckHeaders([]string{" order ", "LINE", "NewDate", "Comment"}); err != nil {
		t.Errorf("CheckHeaders() error = %v", err)
	}

	err := v.CheckHeaders([]string{"Order", "Date"})
	if err == nil {
		t.Fatal("CheckHeaders() = nil, want missing columns")
	}
	if !strings.Contains(err.Error(), "Line, NewDate") {
		t.Errorf("error = %q, want the missing column names", err)
	}
}

func TestValidateAll_CountsRowsNotProblems(t *testing.T) {
	v := NewValidator(columns)
	result := v.ValidateAll([]Record{
		record(2, "PO-1", "10", "someday"),
		record(3, "4500000001", "0", "25.12.2025"),
		record(4, "4500000002", "10", "25.12.2025"),
	})

	if result.ErrorCount != 3 {
		t.Errorf("ErrorCount = %d, want 3", result.ErrorCount)
	}
	if result.InvalidRows != 2 {
		t.Errorf("InvalidRows = %d, want 2", result.InvalidRows)
	}
	if result.ValidRows != 1 {
		t.Errorf("ValidRows = %d, want 1", result.ValidRows)
	}
}
