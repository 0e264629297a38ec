package httpapi

import (
	"bytes"
	"fmt"

	"cmms-data/internal/domain"

	"github.com/xuri/excelize/v2"
)

// PartsExportHeader 备件库存导出表头
var PartsExportHeader = []string{
	"Part Name",
	"Part Number",
	"Category",
	"Department",
	"Quantity",
	"Min Quantity",
	"Unit Cost",
	"Location",
	"Low Stock",
}

// GeneratePartsExport 生成备件库存导出 Excel 文件
func GeneratePartsExport(parts []*domain.Part) ([]byte, error) {
	f := excelize.NewFile()
	// 注意：不要在这里 defer Close()，WriteTo 需要文件保持打开

	sheetName := "Parts Inventory"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range PartsExportHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resolve header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell: %w", err)
		}
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for row, p := range parts {
		values := []any{
			p.Name,
			p.PartNumber,
			p.Category,
			p.Department,
			p.Quantity,
			p.MinQuantity,
			p.UnitCost,
			p.Location,
			p.LowStock(),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to resolve cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell: %w", err)
			}
		}
	}

	// 列宽给宽一点方便直接阅读
	_ = f.SetColWidth(sheetName, "A", "D", 20)
	_ = f.SetColWidth(sheetName, "E", "I", 12)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	f.Close()
	return buf.Bytes(), nil
}
