package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"anomalyexplain/adapters/datareadiness/coercer"
	"anomalyexplain/domain/core"
	"anomalyexplain/domain/dataset"

	"github.com/xuri/excelize/v2"
)

// DataReader reads reference tables from Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	config   ReaderConfig
}

// NewDataReader creates a reader; the format follows the file extension
func NewDataReader(filePath string, config ReaderConfig) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := ""
	switch ext {
	case ".csv":
		fileType = "csv"
	case ".xlsx", ".xlsm":
		fileType = "xlsx"
	}
	return &DataReader{filePath: filePath, fileType: fileType, config: config}
}

// ReadReference loads the file into a reference table. Only numeric columns
// are kept; unparsable cells inside them become missing.
func (r *DataReader) ReadReference() (*dataset.Reference, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("reference file not found: %s", r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filepath.Ext(r.filePath))
	}
	if err != nil {
		return nil, err
	}

	return r.processRows(rows)
}

// readExcelRows reads the configured sheet
func (r *DataReader) readExcelRows() ([][]string, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", core.ErrEmptyDataset)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	log.Printf("[DataReader] Sheet %s read in %.2fms (%d rows)", sheet, float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

// readCSVRows reads CSV data
func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	start := time.Now()
	rows, err := ReadCSV(file)
	if err != nil {
		return nil, err
	}
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

// ReadCSV reads all records; rows may have differing lengths
func ReadCSV(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

// processRows converts a header row plus data rows into a reference table
func (r *DataReader) processRows(rows [][]string) (*dataset.Reference, error) {
	return BuildReference(rows, r.config)
}

// BuildReference converts a header row plus data rows into a reference table.
// Short rows are padded with missing cells.
func BuildReference(rows [][]string, config ReaderConfig) (*dataset.Reference, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: need a header row and at least one data row", core.ErrEmptyDataset)
	}

	excluded := make(map[string]bool, len(config.ExcludeColumns))
	for _, name := range config.ExcludeColumns {
		excluded[strings.ToLower(name)] = true
	}

	cellCoercer := coercer.NewCellCoercer(config.CoercionConfig)
	header := rows[0]
	data := rows[1:]
	columns := make(map[string][]dataset.Value, len(header))
	var dropped []string

	for j, rawName := range header {
		name := strings.TrimSpace(rawName)
		if name == "" || excluded[strings.ToLower(name)] {
			continue
		}
		if _, dup := columns[name]; dup {
			return nil, fmt.Errorf("duplicate column %q in header", name)
		}

		raw := make([]string, len(data))
		for i, row := range data {
			if j < len(row) {
				raw[i] = row[j]
			}
		}

		values, numeric := cellCoercer.CoerceColumn(raw)
		if !numeric {
			dropped = append(dropped, name)
			continue
		}
		columns[name] = values
	}

	if len(dropped) > 0 {
		log.Printf("[DataReader] Skipped %d non-numeric columns: %s", len(dropped), strings.Join(dropped, ", "))
	}
	log.Printf("[DataReader] Reference built (%d numeric columns, %d rows)", len(columns), len(data))

	return dataset.NewReference(columns)
}
