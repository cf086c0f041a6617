package table

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"gocompare/domain/comparison"
	"gocompare/domain/core"
)

// IsWorkbook reports whether a file name looks like an xlsx workbook.
func IsWorkbook(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm")
}

// ReadWorkbook reads the first sheet of an xlsx workbook into a Table.
func (l *Loader) ReadWorkbook(r io.Reader) (*comparison.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %v", core.ErrUnparsableTable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.ErrEmptyTable
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %q: %v", core.ErrUnparsableTable, sheets[0], err)
	}

	// GetRows trims trailing empty cells, so short rows are expected here.
	tbl, err := FromRecords(rows)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("workbook read",
		zap.String("sheet", sheets[0]),
		zap.Int("columns", len(tbl.Columns)),
		zap.Int("rows", tbl.Len()))

	return tbl, nil
}
