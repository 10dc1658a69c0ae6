package documents

import (
	"bytes"
	"encoding/json"
	"fmt"

	"inventory-system/internal/entities"

	"github.com/xuri/excelize/v2"
)

const auditSheet = "Битакора"

// AuditWorkbook выгружает события битакоры в xlsx, по строке на событие.
func AuditWorkbook(events []entities.AuditEvent) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", auditSheet); err != nil {
		return nil, err
	}

	headers := []interface{}{"ID", "Транзакция", "Дата", "Действие", "Раздел", "Объект", "Пользователь", "Детали"}
	f.SetSheetRow(auditSheet, "A1", &headers)
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(auditSheet, "A1", "H1", style)

	for i, e := range events {
		target := ""
		if e.TargetID != nil {
			target = fmt.Sprint(*e.TargetID)
		}
		details, err := json.Marshal(e.Details)
		if err != nil {
			return nil, fmt.Errorf("событие %d: %w", e.ID, err)
		}
		row := []interface{}{
			e.ID, e.TxID.String(), e.CreatedAt.Format("2006-01-02 15:04:05"),
			string(e.Action), e.Section, target, e.ActorID, string(details),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		f.SetSheetRow(auditSheet, cell, &row)
	}
	f.SetColWidth(auditSheet, "B", "B", 38)
	f.SetColWidth(auditSheet, "C", "C", 20)
	f.SetColWidth(auditSheet, "H", "H", 80)

	return f.WriteToBuffer()
}
