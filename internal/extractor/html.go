package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelectors are dropped before any text extraction.
const boilerplateSelectors = "script, style, nav, header, footer, aside, form, iframe, noscript"

// readableText approximates a readability pass: it keeps the paragraphs with
// real sentence density and drops everything that looks like chrome.
func readableText(html []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find(boilerplateSelectors).Remove()

	title := pageTitle(doc)

	var parts []string
	doc.Find("p, h1, h2, h3, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		// Short fragments are navigation and button labels, not prose.
		if len(text) >= 40 || (len(text) >= 20 && strings.ContainsAny(text, ".!?")) {
			parts = append(parts, text)
		}
	})

	text := normalizeWhitespace(strings.Join(parts, "\n"))
	if text == "" {
		return title, "", fmt.Errorf("no readable paragraphs found")
	}
	return title, text, nil
}

// structuredText prefers main, then article, then a content-classed div, and
// finally the whole body.
func structuredText(html []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find(boilerplateSelectors).Remove()

	title := pageTitle(doc)

	for _, selector := range []string{"main", "article"} {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			if text := normalizeWhitespace(sel.Text()); text != "" {
				return title, text, nil
			}
		}
	}

	// A div whose class hints at content.
	var fromDiv string
	doc.Find("div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		lower := strings.ToLower(class)
		if strings.Contains(lower, "content") || strings.Contains(lower, "main") || strings.Contains(lower, "article") {
			fromDiv = normalizeWhitespace(s.Text())
			return fromDiv == ""
		}
		return true
	})
	if fromDiv != "" {
		return title, fromDiv, nil
	}

	text := normalizeWhitespace(doc.Find("body").Text())
	if text == "" {
		return title, "", fmt.Errorf("document has no text content")
	}
	return title, text, nil
}

func pageTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
