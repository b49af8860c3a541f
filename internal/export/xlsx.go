package export

import (
	"fmt"

	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	articlesSheet = "Articles"
	metadataSheet = "Metadata"
)

// writeWorkbook stores one article per row, plus a metadata sheet when meta is set.
func writeWorkbook(path string, articles []domain.GeneratedArticle, meta *Metadata) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := f.SetSheetName("Sheet1", articlesSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []any{"#", "Title", "Word Count", "Content"}
	if err := f.SetSheetRow(articlesSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, a := range articles {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{i + 1, a.Title, a.WordCount, a.Content}
		if err := f.SetSheetRow(articlesSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write article %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(articlesSheet, "B", "B", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(articlesSheet, "D", "D", 80); err != nil {
		return err
	}

	if meta != nil {
		if _, err := f.NewSheet(metadataSheet); err != nil {
			return fmt.Errorf("failed to create metadata sheet: %w", err)
		}
		for i, p := range meta.pairs() {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			row := []any{p[0], p[1]}
			if err := f.SetSheetRow(metadataSheet, cell, &row); err != nil {
				return fmt.Errorf("failed to write metadata: %w", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
