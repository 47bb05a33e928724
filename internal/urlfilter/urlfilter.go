// Package urlfilter decides which URLs are worth extracting. It rejects
// login walls, marketplaces, binary payloads and obviously irrelevant pages
// before any network fetch happens.
package urlfilter

import (
	"net/url"
	"path"
	"strings"
)

// blockedDomains are hosts that never yield useful content: auth providers,
// login walls and the big marketplaces.
var blockedDomains = map[string]bool{
	"accounts.google.com":  true,
	"login.microsoftonline.com": true,
	"auth0.com":            true,
	"okta.com":             true,
	"facebook.com/login":   true,
	"amazon.com":           true,
	"amazon.com.br":        true,
	"mercadolivre.com.br":  true,
	"shopee.com.br":        true,
	"aliexpress.com":       true,
	"ebay.com":             true,
	"magazineluiza.com.br": true,
	"americanas.com.br":    true,
}

// blockedPathPatterns reject URLs whose path points at auth flows, checkout
// funnels or binary payloads.
var blockedPathPatterns = []string{
	"/login", "/signin", "/sign-in", "/signup", "/sign-up",
	"/cart", "/checkout", "/carrinho", "/account", "/auth/",
	"/wp-login", "/password",
}

var blockedExtensions = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".webp",
	".mp4", ".mp3", ".avi", ".mov", ".zip", ".rar", ".exe", ".dmg",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
}

// irrelevanceMarkers are weak negative signals; two or more in the combined
// title+snippet reject the result.
var irrelevanceMarkers = []string{
	"login", "sign in", "cart", "carrinho", "checkout",
	"terms of use", "termos de uso", "privacy policy", "política de privacidade",
	"about us", "sobre nós", "careers", "trabalhe conosco",
	"cookie policy", "fale conosco",
}

// preferredDomains is the curated high-trust list. It contributes to quality
// scoring, never to rejection here.
var preferredDomains = map[string]bool{
	"g1.globo.com":        true,
	"globo.com":           true,
	"folha.uol.com.br":    true,
	"estadao.com.br":      true,
	"valor.globo.com":     true,
	"exame.com":           true,
	"infomoney.com.br":    true,
	"uol.com.br":          true,
	"cnnbrasil.com.br":    true,
	"bbc.com":             true,
	"agenciabrasil.ebc.com.br": true,
	"ibge.gov.br":         true,
	"sebrae.com.br":       true,
	"fgv.br":              true,
	"statista.com":        true,
	"mckinsey.com":        true,
}

// IsRelevant reports whether a search result is worth extracting. The checks
// are cheap and purely lexical; content quality is judged later.
func IsRelevant(rawURL, title, snippet string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if host == "" {
		return false
	}
	for blocked := range blockedDomains {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return false
		}
	}

	lowerPath := strings.ToLower(parsed.Path)
	for _, pattern := range blockedPathPatterns {
		if strings.Contains(lowerPath, pattern) {
			return false
		}
	}
	ext := strings.ToLower(path.Ext(lowerPath))
	for _, blocked := range blockedExtensions {
		if ext == blocked {
			return false
		}
	}

	text := strings.ToLower(title + " " + snippet)
	markers := 0
	for _, marker := range irrelevanceMarkers {
		if strings.Contains(text, marker) {
			markers++
			if markers >= 2 {
				return false
			}
		}
	}

	return true
}

// IsPreferred reports whether a URL's host is on the curated high-trust list.
func IsPreferred(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	for preferred := range preferredDomains {
		if host == preferred || strings.HasSuffix(host, "."+preferred) {
			return true
		}
	}
	return false
}
