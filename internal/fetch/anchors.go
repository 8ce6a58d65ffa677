package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobharvest-engine/internal/pipeline/util"
)

// AnchorsFromHTML walks a[href] elements when the render service returned
// HTML without a link list.
func AnchorsFromHTML(html string) []Anchor {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []Anchor
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		out = append(out, Anchor{
			Href: href,
			Text: util.CleanText(a.Text()),
		})
	})
	return out
}
