package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"gocompare/domain/comparison"
	"gocompare/domain/core"
	"gocompare/internal/logging"
)

// candidateDelimiters in tie-break order.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// sniffLines is how many non-empty lines take part in delimiter inference.
const sniffLines = 20

// DefaultMaxRows bounds the prepared table when Options.MaxRows is unset.
const DefaultMaxRows = 1_000_000

// Options controls the post-parse preparation of a table.
type Options struct {
	GroupColumn string
	AllowList   []string
	Replicate   int
	// MaxRows caps the row count replication may produce.
	MaxRows int
}

// Inspection describes a table without analysing it.
type Inspection struct {
	Delimiter   string   `json:"delimiter"`
	Columns     []string `json:"columns"`
	RowCount    int      `json:"row_count"`
	GroupColumn string   `json:"group_column,omitempty"`
	GroupValues []string `json:"group_values,omitempty"`
}

// Loader turns delimited text into a prepared Table.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new table loader
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logging.OrNop(logger)}
}

// Load parses raw text and prepares it: allow-list filter, replication, and
// decimal-comma rewrite, in that order.
func (l *Loader) Load(raw string, opts Options) (*comparison.Table, error) {
	tbl, err := l.Parse(raw)
	if err != nil {
		return nil, err
	}
	return l.Prepare(tbl, opts)
}

// Parse tokenizes raw text with an inferred delimiter. Blank lines are skipped,
// short rows are padded with empty cells, and rows longer than the header
// are rejected.
func (l *Loader) Parse(raw string) (*comparison.Table, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, core.ErrEmptyTable
	}

	delim := SniffDelimiter(raw)

	reader := csv.NewReader(strings.NewReader(raw))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrUnparsableTable, err)
		}
		records = append(records, record)
	}

	tbl, err := FromRecords(records)
	if err != nil {
		return nil, err
	}
	tbl.Delimiter = delim

	l.logger.Debug("table parsed",
		zap.String("delimiter", string(delim)),
		zap.Int("columns", len(tbl.Columns)),
		zap.Int("rows", tbl.Len()))

	return tbl, nil
}

// FromRecords builds a Table from a header record followed by data records.
func FromRecords(records [][]string) (*comparison.Table, error) {
	records = dropBlankRecords(records)
	if len(records) == 0 {
		return nil, core.ErrEmptyTable
	}

	headers := uniqueHeaders(records[0])
	rows := make([]comparison.Row, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) > len(headers) {
			return nil, fmt.Errorf("%w: expected %d fields in line %d, saw %d",
				core.ErrUnparsableTable, len(headers), i+2, len(record))
		}
		row := make(comparison.Row, len(headers))
		for j, h := range headers {
			if j < len(record) {
				row[h] = strings.TrimSpace(record[j])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return &comparison.Table{
		Columns:   headers,
		Rows:      rows,
		Delimiter: ',',
	}, nil
}

// Prepare applies the allow-list filter, then replication, then rewrites
// every decimal comma to a period. The input table is not modified.
func (l *Loader) Prepare(tbl *comparison.Table, opts Options) (*comparison.Table, error) {
	if opts.GroupColumn != "" && !tbl.HasColumn(opts.GroupColumn) {
		return nil, core.NewGroupColumnError(opts.GroupColumn)
	}

	rows := tbl.Rows
	if len(opts.AllowList) > 0 {
		allowed := make(map[string]bool, len(opts.AllowList))
		for _, v := range opts.AllowList {
			allowed[v] = true
		}
		filtered := make([]comparison.Row, 0, len(rows))
		for _, row := range rows {
			if allowed[row[opts.GroupColumn]] {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	replicate := opts.Replicate
	if replicate < 1 {
		replicate = 1
	}
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	if len(rows) == 0 {
		replicate = 1
	}
	if replicate > 1 && replicate > maxRows/len(rows) {
		return nil, core.NewReplicationError(replicate, len(rows), maxRows)
	}
	if replicate > 1 {
		l.logger.Warn("replicating rows; sample size is inflated without new information",
			zap.Int("replicate", replicate),
			zap.Int("rows", len(rows)))
	}

	out := make([]comparison.Row, 0, len(rows)*replicate)
	for r := 0; r < replicate; r++ {
		for _, row := range rows {
			out = append(out, normalizeDecimals(row))
		}
	}

	return &comparison.Table{
		Columns:   append([]string(nil), tbl.Columns...),
		Rows:      out,
		Delimiter: tbl.Delimiter,
	}, nil
}

// Inspect reports the delimiter, the header and, when groupColumn is set, the
// distinct non-missing grouping values in first-appearance order.
func (l *Loader) Inspect(raw, groupColumn string) (*Inspection, error) {
	tbl, err := l.Parse(raw)
	if err != nil {
		return nil, err
	}

	ins := &Inspection{
		Delimiter: string(tbl.Delimiter),
		Columns:   tbl.Columns,
		RowCount:  tbl.Len(),
	}
	if groupColumn == "" {
		return ins, nil
	}
	if !tbl.HasColumn(groupColumn) {
		return nil, core.NewGroupColumnError(groupColumn)
	}

	ins.GroupColumn = groupColumn
	seen := make(map[string]bool)
	for _, row := range tbl.Rows {
		v := row[groupColumn]
		if comparison.IsMissing(v) || seen[v] {
			continue
		}
		seen[v] = true
		ins.GroupValues = append(ins.GroupValues, v)
	}
	return ins, nil
}

// SniffDelimiter picks the candidate that appears in the header and splits
// the most sampled lines into the same number of fields. Commas are the
// fallback.
func SniffDelimiter(raw string) rune {
	lines := sampleLines(raw, sniffLines)
	if len(lines) == 0 {
		return ','
	}

	best := ','
	bestScore, bestCount := -1, -1
	for _, d := range candidateDelimiters {
		headerCount := countOutsideQuotes(lines[0], d)
		if headerCount == 0 {
			continue
		}
		consistent := 0
		for _, line := range lines[1:] {
			if countOutsideQuotes(line, d) == headerCount {
				consistent++
			}
		}
		if consistent > bestScore || (consistent == bestScore && headerCount > bestCount) {
			best, bestScore, bestCount = d, consistent, headerCount
		}
	}
	return best
}

func normalizeDecimals(row comparison.Row) comparison.Row {
	out := make(comparison.Row, len(row))
	for k, v := range row {
		out[k] = strings.ReplaceAll(v, ",", ".")
	}
	return out
}

// uniqueHeaders trims names and suffixes repeats as name.1, name.2, ...
func uniqueHeaders(record []string) []string {
	headers := make([]string, len(record))
	taken := make(map[string]bool, len(record))
	for i, h := range record {
		base := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if base == "" {
			base = "Unnamed: " + strconv.Itoa(i)
		}
		name := base
		for n := 1; taken[name]; n++ {
			name = base + "." + strconv.Itoa(n)
		}
		taken[name] = true
		headers[i] = name
	}
	return headers
}

func dropBlankRecords(records [][]string) [][]string {
	out := records[:0:0]
	for _, r := range records {
		blank := true
		for _, cell := range r {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, r)
		}
	}
	return out
}

func sampleLines(raw string, limit int) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == limit {
			break
		}
	}
	return lines
}

func countOutsideQuotes(line string, d rune) int {
	count := 0
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == d && !inQuotes:
			count++
		}
	}
	return count
}
