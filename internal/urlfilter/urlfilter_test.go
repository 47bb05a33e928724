package urlfilter

import "testing"

func TestIsRelevant(t *testing.T) {
	cases := []struct {
		name    string
		url     string
		title   string
		snippet string
		want    bool
	}{
		{"plain article", "https://exame.com/negocios/telemedicina-cresce", "Telemedicina cresce no Brasil", "Mercado em expansão", true},
		{"ftp scheme", "ftp://example.com/file", "File", "", false},
		{"relative url", "/artigo/123", "Artigo", "", false},
		{"blocked marketplace", "https://www.amazon.com.br/produto", "Produto", "", false},
		{"blocked marketplace subdomain", "https://sellercentral.amazon.com.br/x", "x", "", false},
		{"login path", "https://example.com/login?next=/home", "Entrar", "", false},
		{"checkout path", "https://loja.com/checkout/step1", "Checkout", "", false},
		{"pdf payload", "https://example.com/relatorio.pdf", "Relatório", "", false},
		{"image payload", "https://example.com/foto.PNG", "Foto", "", false},
		{"one marker only", "https://example.com/artigo", "Como fazer login em telemedicina", "guia completo", true},
		{"two markers", "https://example.com/artigo", "Login e carrinho", "veja os termos de uso", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRelevant(tc.url, tc.title, tc.snippet); got != tc.want {
				t.Errorf("IsRelevant(%q, %q, %q) = %v, want %v", tc.url, tc.title, tc.snippet, got, tc.want)
			}
		})
	}
}

func TestIsPreferred(t *testing.T) {
	if !IsPreferred("https://g1.globo.com/economia/noticia.html") {
		t.Error("g1.globo.com should be preferred")
	}
	if !IsPreferred("https://www.ibge.gov.br/indicadores") {
		t.Error("ibge.gov.br should be preferred")
	}
	if IsPreferred("https://blog-aleatorio.com/post") {
		t.Error("unknown domain should not be preferred")
	}
	// Government domains off the curated list keep their own reputation tier
	// in the quality scorer; they are not blanket-preferred.
	if IsPreferred("https://www.prefeitura-qualquer.sp.gov.br/noticia") {
		t.Error("uncurated .gov.br host must not be preferred")
	}
}
