package documents

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxImportRows ограничивает размер одного файла импорта.
const MaxImportRows = 1000

// ImportRow - одна строка файла импорта оборудования. Line - номер строки в листе.
type ImportRow struct {
	Line            int
	TypeName        string
	SerialNumber    string
	Notes           string
	PhoneNumber     string
	Carrier         string
	CompatibleModel string
	Quantity        string
}

type importColumns struct {
	typeName, serial, notes, phone, carrier, compatible, quantity int
}

// detectColumns ищет в строке шапку: обязательна колонка типа оборудования.
func detectColumns(row []string) (importColumns, bool) {
	cols := importColumns{-1, -1, -1, -1, -1, -1, -1}
	for i, cell := range row {
		c := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case strings.HasPrefix(c, "тип") || c == "type":
			cols.typeName = i
		case strings.Contains(c, "серийн") || strings.Contains(c, "serial"):
			cols.serial = i
		case strings.Contains(c, "примечан") || c == "notes":
			cols.notes = i
		case strings.Contains(c, "телефон") || strings.Contains(c, "phone"):
			cols.phone = i
		case strings.Contains(c, "оператор") || strings.Contains(c, "carrier"):
			cols.carrier = i
		case strings.Contains(c, "совместим") || strings.Contains(c, "compatible"):
			cols.compatible = i
		case strings.Contains(c, "количеств") || strings.Contains(c, "quantity"):
			cols.quantity = i
		}
	}
	return cols, cols.typeName != -1
}

// ParseEquipmentWorkbook читает первый лист, где найдена шапка, и возвращает
// непустые строки под ней. Итоговые строки ("Итого", "Всего") пропускаются.
func ParseEquipmentWorkbook(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл импорта: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("не удалось прочитать лист «%s»: %w", sheet, err)
		}
		for headerIdx, row := range rows {
			cols, ok := detectColumns(row)
			if !ok {
				continue
			}
			return collectRows(rows[headerIdx+1:], headerIdx+2, cols)
		}
	}
	return nil, fmt.Errorf("в файле не найдена шапка таблицы с колонкой «Тип»")
}

func collectRows(rows [][]string, firstLine int, cols importColumns) ([]ImportRow, error) {
	result := make([]ImportRow, 0, len(rows))
	for i, row := range rows {
		item := ImportRow{
			Line:            firstLine + i,
			TypeName:        cell(row, cols.typeName),
			SerialNumber:    cell(row, cols.serial),
			Notes:           cell(row, cols.notes),
			PhoneNumber:     cell(row, cols.phone),
			Carrier:         cell(row, cols.carrier),
			CompatibleModel: cell(row, cols.compatible),
			Quantity:        cell(row, cols.quantity),
		}
		if item.TypeName == "" && item.SerialNumber == "" || isTotalRow(item.TypeName) {
			continue
		}
		result = append(result, item)
		if len(result) > MaxImportRows {
			return nil, fmt.Errorf("в файле больше %d строк", MaxImportRows)
		}
	}
	return result, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isTotalRow(v string) bool {
	v = strings.ToLower(v)
	return strings.Contains(v, "итого") || strings.Contains(v, "всего")
}
