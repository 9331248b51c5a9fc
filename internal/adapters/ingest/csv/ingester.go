// Package csv ingests exported rate sheets. The expected layout mirrors the
// published spreadsheets: a banner row, then a header row whose cells name the
// volume brackets ("5 М3", "10 М3", ...) and carry the validity date, then one
// row per destination city. The hub sheet publishes a single rate row.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/growex/quotebot/internal/domain"
	"github.com/growex/quotebot/internal/ports"
)

const (
	headerRowIndex = 1

	minDirectColumns = 10
	minDirectCities  = 5
	minHubColumns    = 10

	defaultCurrency = "USD"
)

// Cyrillic and Latin spellings both occur in exports.
var bracketPattern = regexp.MustCompile(`(?i)(\d+)\s*[МM]3`)

var validUntilFormats = []string{
	"2006-01-02",
	"02.01.2006",
	"01/02/2006",
}

type Ingester struct{}

var _ ports.SpreadsheetIngester = (*Ingester)(nil)

func New() *Ingester { return &Ingester{} }

// ClassifyFilename maps an upload's name to the table it targets. Matching is
// substring-based so renamed exports ("complex rates v2.csv") still land.
func (i *Ingester) ClassifyFilename(name string) (domain.TariffKind, error) {
	lower := strings.ToLower(name)

	switch {
	case strings.Contains(lower, "complex"),
		strings.Contains(lower, "composite"),
		strings.Contains(lower, "комплексная"),
		strings.Contains(lower, "direct"):
		return domain.TariffDirect, nil
	case strings.Contains(lower, "hub"),
		strings.Contains(lower, "novorossiysk"),
		strings.Contains(lower, "новороссийск"):
		return domain.TariffHub, nil
	default:
		return "", domain.ErrUnknownFileKind
	}
}

// Validate checks the sheet's structure without building a table. Structural
// problems come back as a false result with a reason; only I/O and decode
// failures are errors.
func (i *Ingester) Validate(ctx context.Context, path string, kind domain.TariffKind) (bool, string, error) {
	if err := ctx.Err(); err != nil {
		return false, "", err
	}

	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return false, "unsupported file format, expected .csv", nil
	}

	rows, err := readRows(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, "file not found", nil
		}
		return false, "", err
	}

	if len(rows) <= headerRowIndex {
		return false, "sheet is missing the header row", nil
	}
	header := rows[headerRowIndex]

	switch kind {
	case domain.TariffDirect:
		if len(header) < minDirectColumns {
			return false, fmt.Sprintf("rate sheet has %d columns, need at least %d", len(header), minDirectColumns), nil
		}
		if cities := countDataRows(rows); cities < minDirectCities {
			return false, fmt.Sprintf("rate sheet has %d cities, need at least %d", cities, minDirectCities), nil
		}
	case domain.TariffHub:
		if len(header) < minHubColumns {
			return false, fmt.Sprintf("hub sheet has %d columns, need at least %d", len(header), minHubColumns), nil
		}
		if countDataRows(rows) == 0 {
			return false, "hub sheet has no rate row", nil
		}
	default:
		return false, "", domain.ErrUnknownTariffKind
	}

	return true, "", nil
}

func (i *Ingester) Parse(ctx context.Context, path string, kind domain.TariffKind) (domain.RateTable, error) {
	if err := ctx.Err(); err != nil {
		return domain.RateTable{}, err
	}

	rows, err := readRows(path)
	if err != nil {
		return domain.RateTable{}, err
	}
	if len(rows) <= headerRowIndex {
		return domain.RateTable{}, fmt.Errorf("parse %s: missing header row", filepath.Base(path))
	}

	header := rows[headerRowIndex]
	brackets := bracketColumns(header)
	if len(brackets) == 0 {
		return domain.RateTable{}, fmt.Errorf("parse %s: no volume bracket columns found", filepath.Base(path))
	}

	table := domain.RateTable{
		Entries:    map[string]map[int]float64{},
		ValidUntil: validUntilFromHeader(header),
		Currency:   defaultCurrency,
		SourceFile: filepath.Base(path),
	}

	switch kind {
	case domain.TariffDirect:
		for _, row := range rows[headerRowIndex+1:] {
			city, rates := cityRates(row, brackets)
			if city == "" || len(rates) == 0 {
				continue
			}
			table.Entries[city] = rates
		}
	case domain.TariffHub:
		for _, row := range rows[headerRowIndex+1:] {
			rates := rowRates(row, brackets)
			if len(rates) == 0 {
				continue
			}
			table.Entries[domain.HubLocationKey] = rates
			break
		}
	default:
		return domain.RateTable{}, domain.ErrUnknownTariffKind
	}

	return table, nil
}

func readRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// bracketColumns maps column index -> volume threshold from header cells like
// "3 М3" or "10 M3".
func bracketColumns(header []string) map[int]int {
	columns := map[int]int{}
	for idx, cell := range header {
		match := bracketPattern.FindStringSubmatch(cell)
		if match == nil {
			continue
		}
		threshold, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		columns[idx] = threshold
	}
	return columns
}

// validUntilFromHeader scans header cells for a date; the sheets carry the
// validity deadline as a standalone header cell.
func validUntilFromHeader(header []string) *time.Time {
	for _, cell := range header {
		trimmed := strings.TrimSpace(cell)
		if trimmed == "" {
			continue
		}
		for _, format := range validUntilFormats {
			if parsed, err := time.Parse(format, trimmed); err == nil {
				return &parsed
			}
		}
	}
	return nil
}

func cityRates(row []string, brackets map[int]int) (string, map[int]float64) {
	if len(row) == 0 {
		return "", nil
	}
	city := strings.TrimSpace(row[0])
	// "в USD" is the currency annotation row in the published sheet.
	if city == "" || strings.EqualFold(city, "в USD") {
		return "", nil
	}
	return city, rowRates(row, brackets)
}

func rowRates(row []string, brackets map[int]int) map[int]float64 {
	rates := map[int]float64{}
	for idx, threshold := range brackets {
		if idx >= len(row) {
			continue
		}
		price, err := parsePrice(row[idx])
		if err != nil {
			continue
		}
		rates[threshold] = price
	}
	return rates
}

func parsePrice(cell string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(cell), ",", ".")
	normalized = strings.ReplaceAll(normalized, " ", "")
	if normalized == "" {
		return 0, fmt.Errorf("empty cell")
	}
	return strconv.ParseFloat(normalized, 64)
}

func countDataRows(rows [][]string) int {
	count := 0
	for _, row := range rows[headerRowIndex+1:] {
		if len(row) > 0 && strings.TrimSpace(row[0]) != "" && !strings.EqualFold(strings.TrimSpace(row[0]), "в USD") {
			count++
		}
	}
	return count
}
