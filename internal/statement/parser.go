// Package statement reads bank statement exports from Brazilian banks.
package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/MrJamesThe3rd/fluxo/internal/encoding"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

// Line is one cash movement of a statement.
type Line struct {
	// Row is the 1-based record number. Blank lines are not counted.
	Row         int                   `json:"row"`
	Date        time.Time             `json:"date"`
	Description string                `json:"description"`
	Amount      money.Cents           `json:"amount"` // Always positive
	Direction   transaction.Direction `json:"direction"`
}

var dateLayouts = []string{"02/01/2006", "02/01/06", "2006-01-02", "02-01-2006"}

// Parse reads a ';' separated statement in any common encoding. Header and footer rows
// around the movements are skipped; the layout is detected from the column names.
func Parse(r io.Reader) ([]Line, error) {
	utf8r, _, err := encoding.UTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	profile, cols, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, fmt.Errorf("no matching statement layout: expected date, description and amount columns")
	}

	return parseRows(profile, cols, rows[headerIdx+1:], headerIdx+1)
}

// colIndex maps a profile's column group to its index in the row.
type colIndex []int

func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		names := make(map[string]int)

		for i, cell := range row {
			if name := foldHeader(cell); name != "" {
				if _, dup := names[name]; !dup {
					names[name] = i
				}
			}
		}

		for i := range profiles {
			if cols, ok := match(&profiles[i], names); ok {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func match(p *Profile, names map[string]int) (colIndex, bool) {
	var cols colIndex

	for _, aliases := range p.groups() {
		idx := -1

		for _, alias := range aliases {
			if i, ok := names[alias]; ok {
				idx = i
				break
			}
		}

		if idx < 0 {
			return nil, false
		}

		cols = append(cols, idx)
	}

	return cols, true
}

func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]Line, error) {
	var lines []Line

	for i, row := range rows {
		rowNum := headerRowNum + i + 1 // 1-based

		date, ok := parseDate(cellValue(row, cols[0]))
		if !ok {
			continue
		}

		desc := cellValue(row, cols[1])
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", rowNum)
		}

		// Balance rows carry a date but no movement.
		if isBalanceRow(desc) {
			continue
		}

		var (
			amount money.Cents
			dir    transaction.Direction
		)

		switch p.AmountMode {
		case amountSingle:
			amount, dir, ok = parseSigned(cellValue(row, cols[2]))
		case amountSplit:
			amount, dir, ok = parseSplit(cellValue(row, cols[2]), cellValue(row, cols[3]))
		}

		if !ok {
			continue
		}

		lines = append(lines, Line{Row: rowNum, Date: date, Description: desc, Amount: amount, Direction: dir})
	}

	return lines, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// parseSigned reads "-1.234,56", "1.234,56" or the "1.234,56 D" / "1.234,56 C" suffix form.
func parseSigned(s string) (money.Cents, transaction.Direction, bool) {
	if s == "" {
		return 0, "", false
	}

	negative := false

	switch upper := strings.ToUpper(s); {
	case strings.HasSuffix(upper, "D"):
		negative = true
		s = strings.TrimSpace(s[:len(s)-1])
	case strings.HasSuffix(upper, "C"):
		s = strings.TrimSpace(s[:len(s)-1])
	}

	cents, err := money.ParseBRL(s)
	if err != nil || cents == 0 {
		return 0, "", false
	}

	if negative {
		cents = -cents.Abs()
	}

	if cents < 0 {
		return -cents, transaction.DirectionOut, true
	}

	return cents, transaction.DirectionIn, true
}

func parseSplit(debit, credit string) (money.Cents, transaction.Direction, bool) {
	if debit != "" {
		if cents, err := money.ParseBRL(debit); err == nil && cents != 0 {
			return cents.Abs(), transaction.DirectionOut, true
		}
	}

	if credit != "" {
		if cents, err := money.ParseBRL(credit); err == nil && cents != 0 {
			return cents.Abs(), transaction.DirectionIn, true
		}
	}

	return 0, "", false
}

func isBalanceRow(desc string) bool {
	d := foldHeader(desc)
	return strings.HasPrefix(d, "saldo")
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

// foldHeader lowercases s, removes accents and a trailing "(r$)".
func foldHeader(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, err := transform.String(stripMarks, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}

	folded = strings.ToLower(folded)
	folded = strings.TrimSpace(strings.TrimSuffix(folded, "(r$)"))

	return folded
}
