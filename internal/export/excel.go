package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Spok95/school-office/internal/models"
	"github.com/Spok95/school-office/internal/render"
	"github.com/xuri/excelize/v2"
)

// SheetSpec: один лист книги, заголовок в первой строке, дальше данные.
type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

// NewWorkbook собирает книгу из листов в заданном порядке.
func NewWorkbook(sheets []SheetSpec) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook: no sheets")
	}
	f := excelize.NewFile()
	for i, s := range sheets {
		name := sheetName(s.Title, i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("new sheet: %w", err)
		}
		for col, h := range s.Header {
			cell := fmt.Sprintf("%s1", columnName(col+1))
			if err := f.SetCellStr(name, cell, h); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		for r, row := range s.Rows {
			for c, val := range row {
				cell := fmt.Sprintf("%s%d", columnName(c+1), r+2)
				if err := f.SetCellStr(name, cell, val); err != nil {
					_ = f.Close()
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
			}
		}
		if err := ApplyDefaultExcelFormatting(f, name); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

// ApplyDefaultExcelFormatting: жирная шапка, автофильтр по первой строке
// и примерная ширина колонок по содержимому.
func ApplyDefaultExcelFormatting(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	if cols == 0 {
		return nil
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", fmt.Sprintf("%s1", columnName(cols)), style)
	}
	_ = f.AutoFilter(sheet, fmt.Sprintf("A1:%s1", columnName(cols)), nil)

	widths := make([]float64, cols)
	for c := range widths {
		widths[c] = 10
	}
	for rIdx, row := range rows {
		for cIdx := 0; cIdx < cols && cIdx < len(row); cIdx++ {
			w := float64(visualLen(row[cIdx])) * 1.1
			if rIdx == 0 {
				w += 1.5
			}
			if w > 60 {
				w = 60
			}
			if w > widths[cIdx] {
				widths[cIdx] = w
			}
		}
	}
	for i, w := range widths {
		col := columnName(i + 1)
		_ = f.SetColWidth(sheet, col, col, w)
	}
	return nil
}

// workbookBytes: xlsx в память, файл книги закрывается.
func workbookBytes(f *excelize.File) ([]byte, error) {
	defer func() { _ = f.Close() }()
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// tabularSheet: лист для табличного отчёта.
func tabularSheet(rec models.DocumentRecord, currency string) (SheetSpec, error) {
	switch r := rec.(type) {
	case models.AttendanceReportRecord:
		s := SheetSpec{
			Title:  r.ClassName + " " + r.SectionName,
			Header: []string{"#", "Student ID", "Name", "Roll", "Present", "Late", "Absent"},
		}
		for i, row := range r.Rows {
			s.Rows = append(s.Rows, []string{
				strconv.Itoa(i + 1), row.StudentID, row.Name, strconv.Itoa(row.Roll),
				strconv.Itoa(row.Present), strconv.Itoa(row.Late), strconv.Itoa(row.Absent),
			})
		}
		return s, nil
	case models.FeeReportRecord:
		if sym := r.School.CurrencySymbol; sym != "" {
			currency = sym
		}
		s := SheetSpec{
			Title:  r.Student.StudentID,
			Header: []string{"Invoice", "Title", "Due date", "Total", "Paid", "Due", "Status"},
		}
		for _, row := range r.Rows {
			s.Rows = append(s.Rows, []string{
				strconv.FormatInt(row.InvoiceID, 10), row.Title, render.DatePtr(row.DueDate),
				render.Money(row.Total, currency), render.Money(row.Paid, currency), render.Money(row.Due, currency),
				string(row.Status),
			})
		}
		return s, nil
	}
	return SheetSpec{}, fmt.Errorf("xlsx: unsupported record %T", rec)
}

var invalidSheetChars = strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")")

// sheetName: Excel ограничивает имя листа 31 символом и требует уникальности.
func sheetName(title string, i int) string {
	name := invalidSheetChars.Replace(title)
	if name == "" {
		name = "Sheet"
	}
	suffix := ""
	if i > 0 {
		suffix = " (" + strconv.Itoa(i+1) + ")"
	}
	if r := []rune(name); len(r)+len([]rune(suffix)) > 31 {
		name = string(r[:31-len([]rune(suffix))])
	}
	return name + suffix
}

func columnName(n int) string {
	// 1 -> A; 27 -> AA
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}

// visualLen: длина текста в символах, таб считаем за 4.
func visualLen(s string) int {
	n := 0
	for _, r := range s {
		if r == '\t' {
			n += 4
		} else {
			n++
		}
	}
	return n
}
