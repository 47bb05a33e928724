package providers

import (
	"context"
	"fmt"

	"garimpo/internal/core"
)

// MockClient is a deterministic Searcher for tests and offline runs. It needs
// no credentials and returns canned results tagged with the query.
type MockClient struct {
	name    string
	results []core.SearchResult
	err     error
}

// NewMockClient creates a mock provider with three canned results.
func NewMockClient() *MockClient {
	return &MockClient{
		name: "mock",
		results: []core.SearchResult{
			{
				URL:            "https://example.com.br/artigo1",
				Title:          "Artigo de Exemplo 1",
				Snippet:        "Resultado de busca simulado para testes.",
				SourceProvider: "mock",
				RelevanceScore: 0.9,
			},
			{
				URL:            "https://teste.org.br/artigo2",
				Title:          "Artigo de Teste 2",
				Snippet:        "Outro resultado simulado com conteúdo diferente.",
				SourceProvider: "mock",
				RelevanceScore: 0.8,
			},
			{
				URL:            "https://demo.net.br/artigo3",
				Title:          "Artigo Demo 3",
				Snippet:        "Terceiro resultado simulado para multiplicidade.",
				SourceProvider: "mock",
				RelevanceScore: 0.7,
			},
		},
	}
}

// Name returns the registry name of this provider.
func (m *MockClient) Name() string { return m.name }

// Keyless marks the mock as credential-free so the registry dispatches it
// without a key pool entry.
func (m *MockClient) Keyless() bool { return true }

// Search returns the canned results, titles suffixed with the query.
func (m *MockClient) Search(ctx context.Context, query string, limits Limits) (core.ProviderResponse, error) {
	if m.err != nil {
		return core.ProviderResponse{}, m.err
	}

	num := limits.MaxResults
	if num <= 0 || num > len(m.results) {
		num = len(m.results)
	}

	results := make([]core.SearchResult, num)
	for i := 0; i < num; i++ {
		result := m.results[i]
		result.Title = fmt.Sprintf("%s (consulta: %s)", result.Title, query)
		results[i] = result
	}
	return core.Success(m.name, results), nil
}

// SetResults replaces the canned results.
func (m *MockClient) SetResults(results []core.SearchResult) {
	m.results = results
}

// SetError makes every Search call fail.
func (m *MockClient) SetError(err error) {
	m.err = err
}

// SetName overrides the provider name.
func (m *MockClient) SetName(name string) {
	m.name = name
}
