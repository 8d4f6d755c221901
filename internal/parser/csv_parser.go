package parser

import (
	"encoding/csv"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/sstent/runlog-go/internal/models"
)

const (
	splitKey     = "split"
	summaryValue = "summary"
)

var numericPattern = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)$`)

// CSVParser reads the split/summary table exported next to each activity.
type CSVParser struct{}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

func (p *CSVParser) Parse(src Source) (models.Fragment, error) {
	data, err := p.ParseText(string(src.Data))
	if err != nil {
		return nil, err
	}

	date := src.Date
	if date == "" {
		date = DateFromName(src.Name)
	}

	return &models.RowFragment{
		File: filepath.Base(src.Name),
		Date: date,
		Data: *data,
	}, nil
}

// ParseText classifies every data row as a split, the summary, or a repeated
// header. Tables with fewer than two non-empty lines return ErrTooFewLines.
func (p *CSVParser) ParseText(text string) (*models.RowData, error) {
	lines := nonEmptyLines(text)
	if len(lines) < 2 {
		return nil, ErrTooFewLines
	}

	header := splitLine(lines[0])
	splitCol := -1
	for i, h := range header {
		if cleanKey(h) == splitKey {
			splitCol = i
			break
		}
	}

	result := &models.RowData{Splits: []models.Split{}}
	for _, line := range lines[1:] {
		values := splitLine(line)
		kind := ""
		if splitCol >= 0 && splitCol < len(values) {
			kind = strings.TrimSpace(values[splitCol])
		}

		switch {
		case strings.EqualFold(kind, summaryValue):
			row := cleanRow(header, values, splitCol)
			row[splitKey] = summaryValue
			result.Summary = row
		case strings.EqualFold(kind, splitKey):
			// repeated header
		case kind != "":
			result.Splits = append(result.Splits, cleanRow(header, values, splitCol))
		}
	}

	return result, nil
}

// cleanRow zips header keys to positional values. The split column is an
// identifier and stays text; every other value is coerced when numeric.
func cleanRow(header, values []string, splitCol int) models.Split {
	row := make(models.Split, len(header))
	for i, h := range header {
		key := cleanKey(h)
		if key == "" {
			continue
		}
		value := ""
		if i < len(values) {
			value = strings.TrimSpace(values[i])
		}
		if i == splitCol {
			row[key] = value
			continue
		}
		row[key] = coerceValue(value)
	}
	return row
}

// cleanKey lower-cases a header name and removes all whitespace from it.
func cleanKey(key string) string {
	key = strings.TrimPrefix(key, "\ufeff")
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, key)
}

// coerceValue returns a float64 when the whole trimmed value is numeric and
// the trimmed text otherwise. Nothing is dropped.
func coerceValue(value string) any {
	value = strings.TrimSpace(value)
	if numericPattern.MatchString(value) {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return value
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// splitLine honours quoted fields and falls back to a plain comma split for
// lines encoding/csv rejects.
func splitLine(line string) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	record, err := r.Read()
	if err != nil {
		return strings.Split(line, ",")
	}
	return record
}
