package research

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var binaryExtensions = []string{
	".pdf", ".zip", ".rar", ".exe", ".dmg", ".doc", ".docx", ".xls", ".xlsx",
	".ppt", ".pptx", ".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg",
	".mp3", ".mp4", ".avi", ".mov", ".css", ".js", ".xml", ".rss",
}

// internalLinks returns the same-host anchors of a page, absolute, without
// fragments, self-links or binary targets. Order follows document order.
func (r *Researcher) internalLinks(ctx context.Context, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	body, err := r.session.Get(ctx, pageURL, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var links []string
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		resolved.Fragment = ""
		if resolved.Hostname() != base.Hostname() {
			return
		}

		target := resolved.String()
		if target == pageURL || seen[target] {
			return
		}
		lowerPath := strings.ToLower(resolved.Path)
		for _, ext := range binaryExtensions {
			if strings.HasSuffix(lowerPath, ext) {
				return
			}
		}
		seen[target] = true
		links = append(links, target)
	})
	return links, nil
}
