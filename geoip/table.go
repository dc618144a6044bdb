package geoip

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

const (
	securityCrawler      = "Security / Crawler"
	securityProxy        = "Security / Proxy"
	securityAttackSource = "Security / Attack source"
	securityYes          = "Yes"
)

var securityHeaders = [3]string{"Crawler", "Proxy", "Attack source"}

// isSecurityTable reports whether the table at index carries the
// crawler/proxy/attack flags. The provider renders it second.
func isSecurityTable(index int) bool {
	return index == 1
}

// Extractor turns a provider page into a PropertyMap.
type Extractor struct {
	// IsSecurityTable overrides the positional security table rule.
	IsSecurityTable func(index int) bool
}

func (e Extractor) isSecurity(index int) bool {
	if e.IsSecurityTable != nil {
		return e.IsSecurityTable(index)
	}
	return isSecurityTable(index)
}

// Extract parses body as HTML and collects the properties found in its
// tables. Malformed or empty input yields an empty map.
func (e Extractor) Extract(body string) *PropertyMap {
	props := NewPropertyMap()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to parse provider page")

		return props
	}

	doc.Find("table").Each(func(index int, table *goquery.Selection) {
		rows := table.Find("tr")
		if e.isSecurity(index) {
			extractSecurityRows(rows, props)
		} else {
			extractPairRows(rows, props)
		}
	})

	return props
}

func extractSecurityRows(rows *goquery.Selection, props *PropertyMap) {
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		th := row.Find("th")
		td := row.Find("td")

		if i == 0 {
			return th.Length() == 3 && td.Length() == 0 &&
				th.Eq(0).Text() == securityHeaders[0] &&
				th.Eq(1).Text() == securityHeaders[1] &&
				th.Eq(2).Text() == securityHeaders[2]
		}

		if th.Length() != 0 || td.Length() != 3 {
			return false
		}

		props.Set(securityCrawler, cleanText(td.Eq(0).Text()) == securityYes)
		props.Set(securityProxy, cleanText(td.Eq(1).Text()) == securityYes)
		props.Set(securityAttackSource, cleanText(td.Eq(2).Text()) == securityYes)

		return true
	})
}

func extractPairRows(rows *goquery.Selection, props *PropertyMap) {
	rows.Each(func(_ int, row *goquery.Selection) {
		th := row.Find("th")
		td := row.Find("td")
		if th.Length() != 1 || td.Length() != 1 {
			return
		}

		label := cleanText(th.Text())
		value := cleanText(td.Text())
		if label != "" && value != "" {
			props.Set(label, value)
		}
	})
}

// cleanText trims whitespace and then strips tab, 0xA0 and 0xC2 bytes from
// both ends. It works on bytes, so a non-breaking space (0xC2 0xA0) at
// either end goes away while the same bytes inside the text survive.
func cleanText(s string) string {
	s = strings.Trim(s, " \t\n\r\x00\x0b")

	start, end := 0, len(s)
	for start < end && isStripByte(s[start]) {
		start++
	}
	for end > start && isStripByte(s[end-1]) {
		end--
	}

	return s[start:end]
}

func isStripByte(b byte) bool {
	return b == 0x09 || b == 0xa0 || b == 0xc2
}
