package warehouse

import (
	"fmt"
	"strconv"
	"time"
)

// FormatValue renders a result cell in its display-string form. Persisted
// example previews and file exports both go through this so the text the
// prompt later sees matches what the user saw.
func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

// FormatRows renders every cell of every row.
func FormatRows(rows [][]any) [][]string {
	formatted := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, value := range row {
			cells[j] = FormatValue(value)
		}
		formatted[i] = cells
	}
	return formatted
}
