// Package export encodes a result set into downloadable formats.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/mahanteshimath/duckdb-snowflake/internal/engine"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatNDJSON  Format = "ndjson"
	FormatParquet Format = "parquet"
)

// ContentType returns the MIME type served for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatNDJSON:
		return "application/x-ndjson"
	case FormatParquet:
		return "application/octet-stream"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case FormatCSV, FormatNDJSON, FormatParquet:
		return Format(value), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", value)
	}
}

// Encode renders result in the requested format.
func Encode(format Format, result engine.Result) ([]byte, error) {
	switch format {
	case FormatCSV:
		return CSV(result)
	case FormatNDJSON:
		return NDJSON(result)
	case FormatParquet:
		return Parquet(result)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// CSV renders a header row followed by one record per row.
func CSV(result engine.Result) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buf)

	if err := writer.Write(result.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range result.Rows {
		record := make([]string, len(result.Columns))
		for i := range result.Columns {
			if i < len(row) && row[i] != nil {
				record[i] = fmt.Sprintf("%v", row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// NDJSON renders one column-keyed JSON object per line.
func NDJSON(result engine.Result) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	encoder := json.NewEncoder(buf)

	for _, row := range result.Rows {
		record := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			if i < len(row) {
				record[col] = row[i]
			} else {
				record[col] = nil
			}
		}
		if err := encoder.Encode(record); err != nil {
			return nil, fmt.Errorf("encode ndjson record: %w", err)
		}
	}
	return buf.Bytes(), nil
}

type parquetCell struct {
	Column string  `parquet:"column"`
	Row    int64   `parquet:"row"`
	Value  *string `parquet:"value,optional"`
}

// Parquet renders the result in a long cell layout (row, column, value).
// The explorer exports what it rendered, so values are stringified rather
// than mapped back to engine types.
func Parquet(result engine.Result) ([]byte, error) {
	cells := make([]parquetCell, 0, len(result.Rows)*len(result.Columns))
	for rowIndex, row := range result.Rows {
		for colIndex, col := range result.Columns {
			cell := parquetCell{Column: col, Row: int64(rowIndex)}
			if colIndex < len(row) && row[colIndex] != nil {
				value := fmt.Sprintf("%v", row[colIndex])
				cell.Value = &value
			}
			cells = append(cells, cell)
		}
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetCell](buf)
	if len(cells) > 0 {
		if _, err := writer.Write(cells); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
