// Package documents формирует файлы Excel: акт приёма-передачи оборудования и выгрузку битакоры.
package documents

import (
	"context"
	"fmt"
	"time"

	"inventory-system/internal/entities"
	"inventory-system/pkg/filestorage"

	"github.com/xuri/excelize/v2"
)

const (
	handoverSheet  = "Акт"
	handoverPrefix = "handover"
)

// HandoverAct - данные для акта приёма-передачи.
type HandoverAct struct {
	Number string
	User   entities.User
	Actor  *entities.User
	Items  []entities.Equipment
	Date   time.Time
}

type GeneratorInterface interface {
	// Generate создаёт акт и возвращает путь к сохранённому файлу.
	Generate(ctx context.Context, act HandoverAct) (string, error)
	// Discard удаляет акт, который не к чему привязать.
	Discard(path string) error
}

type ExcelGenerator struct {
	storage filestorage.FileStorageInterface
}

func NewExcelGenerator(storage filestorage.FileStorageInterface) *ExcelGenerator {
	return &ExcelGenerator{storage: storage}
}

func (g *ExcelGenerator) Generate(ctx context.Context, act HandoverAct) (string, error) {
	if len(act.Items) == 0 {
		return "", fmt.Errorf("акт без оборудования не формируется")
	}

	f, err := BuildHandoverWorkbook(act)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("не удалось сформировать файл акта: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := g.storage.Save(buf, "act.xlsx", handoverPrefix)
	if err != nil {
		return "", fmt.Errorf("не удалось сохранить акт: %w", err)
	}
	return path, nil
}

func (g *ExcelGenerator) Discard(path string) error {
	return g.storage.Delete(path)
}

// BuildHandoverWorkbook раскладывает акт по ячейкам листа "Акт".
func BuildHandoverWorkbook(act HandoverAct) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", handoverSheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	title, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	heading := "АКТ приёма-передачи оборудования"
	if act.Number != "" {
		heading += " № " + act.Number
	}
	f.SetCellValue(handoverSheet, "A1", heading)
	f.MergeCell(handoverSheet, "A1", "F1")
	f.SetCellStyle(handoverSheet, "A1", "F1", title)

	f.SetCellValue(handoverSheet, "A3", "Дата:")
	f.SetCellValue(handoverSheet, "B3", act.Date.Format("02.01.2006"))
	f.SetCellValue(handoverSheet, "A4", "Получатель:")
	f.SetCellValue(handoverSheet, "B4", describeUser(&act.User))
	f.SetCellValue(handoverSheet, "A5", "Передал:")
	f.SetCellValue(handoverSheet, "B5", describeUser(act.Actor))
	f.SetCellStyle(handoverSheet, "A3", "A5", bold)

	headers := []interface{}{"№", "ID", "Тип", "Серийный номер", "Доп. сведения", "Примечание"}
	f.SetSheetRow(handoverSheet, "A7", &headers)
	f.SetCellStyle(handoverSheet, "A7", "F7", bold)

	for i, item := range act.Items {
		row := []interface{}{i + 1, item.ID, item.TypeName, deref(item.SerialNumber), detailLine(item), deref(item.Notes)}
		cell, _ := excelize.CoordinatesToCellName(1, i+8)
		f.SetSheetRow(handoverSheet, cell, &row)
	}

	signRow := len(act.Items) + 10
	f.SetCellValue(handoverSheet, fmt.Sprintf("A%d", signRow), "Передал: ____________________")
	f.SetCellValue(handoverSheet, fmt.Sprintf("D%d", signRow), "Принял: ____________________")

	f.SetColWidth(handoverSheet, "A", "A", 14)
	f.SetColWidth(handoverSheet, "B", "B", 30)
	f.SetColWidth(handoverSheet, "C", "F", 22)
	return f, nil
}

func describeUser(u *entities.User) string {
	if u == nil {
		return "-"
	}
	if u.Position != nil && *u.Position != "" {
		return fmt.Sprintf("%s (%s)", u.Fio, *u.Position)
	}
	return u.Fio
}

func detailLine(e entities.Equipment) string {
	switch {
	case e.SimDetail != nil:
		return fmt.Sprintf("тел. %s, %s", e.SimDetail.PhoneNumber, e.SimDetail.Carrier)
	case e.ConsumableDetail != nil:
		return fmt.Sprintf("для %s, %d шт.", e.ConsumableDetail.CompatibleModel, e.ConsumableDetail.Quantity)
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
