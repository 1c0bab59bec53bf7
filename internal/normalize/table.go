package normalize

import (
	"github.com/northpages/contentsync/internal/models"
	"github.com/northpages/contentsync/internal/source"
)

// ProcessTable flattens a table block and its ordered row children into a
// grid. Each cell's annotations are extracted independently, so their
// offsets are local to the cell rather than the table.
func ProcessTable(block *source.Block, rows []*source.Block) *models.Table {
	table := &models.Table{
		Rows: make([]models.TableRow, 0, len(rows)),
	}
	if block.TableInfo != nil {
		table.Width = block.TableInfo.Width
		table.HasColumnHeader = block.TableInfo.HasColumnHeader
		table.HasRowHeader = block.TableInfo.HasRowHeader
	}

	for _, row := range rows {
		if row.Type != source.TypeTableRow {
			continue
		}
		tr := models.TableRow{
			Cells: make([]models.TableCell, 0, len(row.Cells)),
		}
		for _, cell := range row.Cells {
			tr.Cells = append(tr.Cells, models.TableCell{
				Text:        source.PlainText(cell),
				Annotations: ExtractAnnotations(cell),
			})
		}
		table.Rows = append(table.Rows, tr)
	}

	return table
}
