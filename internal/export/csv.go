package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/chainquery/chainquery/internal/warehouse"
)

func writeCSV(path string, columns []string, rows [][]any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(row))
		for i, value := range row {
			record[i] = warehouse.FormatValue(value)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return file.Close()
}
