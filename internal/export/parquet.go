package export

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/chainquery/chainquery/internal/warehouse"
)

// writeParquet encodes every cell as an optional string. Result column sets
// vary per query, so the schema is built from the column names at write time
// rather than from a Go struct.
func writeParquet(path string, columns []string, rows [][]any) error {
	group := parquet.Group{}
	for _, column := range columns {
		group[column] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("results", group)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[map[string]any](file, schema)
	records := make([]map[string]any, len(rows))
	for i, row := range rows {
		record := make(map[string]any, len(columns))
		for j, column := range columns {
			if j < len(row) && row[j] != nil {
				record[column] = warehouse.FormatValue(row[j])
			}
		}
		records[i] = record
	}
	if len(records) > 0 {
		if _, err := writer.Write(records); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return file.Close()
}
