package register

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/giygas/pharmacy-validator/entities"
)

// ParseCandidates extracts (name, status) pairs from the first table of an
// HTML page. Every row inside that table counts, including rows of tables
// nested in it, since register pages wrap their results in a layout table.
// The data cells of a row are all its `td` descendants: cell 0 is the name
// and cell 1 the status. Rows with fewer than two data cells (headers,
// spacers) are skipped.
//
// This relies on the page layout alone: if the register ever puts another
// table first, results will be wrong rather than missing.
func ParseCandidates(page []byte) ([]entities.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse register page: %w", err)
	}

	candidates := make([]entities.Candidate, 0)

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return candidates, nil
	}

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		candidates = append(candidates, entities.Candidate{
			Name:   cellText(cells.Eq(0)),
			Status: cellText(cells.Eq(1)),
		})
	})

	return candidates, nil
}

// cellText returns the visible text of a cell with runs of whitespace
// collapsed to a single space
func cellText(cell *goquery.Selection) string {
	return strings.Join(strings.Fields(cell.Text()), " ")
}
