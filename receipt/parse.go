package receipt

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/orderbot/models"
)

var reReceiptID = regexp.MustCompile(`RSB-ROBO-ORDER-[A-Z0-9]+`)

// Parse reads the confirmation fields out of receipt markup. Fields the
// markup does not carry are left empty; only a missing receipt ID makes the
// markup unusable, which callers detect through Receipt.ID == "".
//
// Expected shape:
//
//	<h3>Receipt</h3>
//	<div>2024-05-04T10:12:31.861Z</div>
//	<p class="badge badge-success">RSB-ROBO-ORDER-7X3K1Q</p>
//	<p>1 Main St</p>
//	<div id="parts"><div>Head: 2</div><div>Body: 3</div><div>Legs: 4</div></div>
func Parse(markup string) (models.Receipt, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return models.Receipt{}, err
	}

	var r models.Receipt

	badge := doc.Find(".badge").First()
	if badge.Length() > 0 {
		r.ID = reReceiptID.FindString(badge.Text())
		r.Address = strings.TrimSpace(badge.NextFiltered("p").Text())
	}
	if r.ID == "" {
		r.ID = reReceiptID.FindString(doc.Text())
	}

	doc.Find("body > div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Is("#parts") {
			return true
		}
		r.Date = strings.TrimSpace(s.Text())
		return false
	})

	doc.Find("#parts > div").Each(func(_ int, s *goquery.Selection) {
		if part := strings.TrimSpace(s.Text()); part != "" {
			r.Parts = append(r.Parts, part)
		}
	})

	return r, nil
}
