package core

// ResponseKind classifies a provider response by behavior, not by error type.
type ResponseKind int

const (
	ResponseSuccess ResponseKind = iota
	ResponseSoftFailure
	ResponseHardFailure
)

// ProviderResponse is the tagged result every provider call resolves to.
// Soft failures carry a reason and an empty result set; hard failures mean
// the provider could not be consulted at all (no keys, breaker open).
type ProviderResponse struct {
	Kind     ResponseKind   `json:"kind"`
	Provider string         `json:"provider"`
	Results  []SearchResult `json:"results,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// Success builds a successful response.
func Success(provider string, results []SearchResult) ProviderResponse {
	return ProviderResponse{Kind: ResponseSuccess, Provider: provider, Results: results}
}

// SoftFailure builds a response for a provider that answered but contributed nothing.
func SoftFailure(provider, reason string) ProviderResponse {
	return ProviderResponse{Kind: ResponseSoftFailure, Provider: provider, Reason: reason}
}

// HardFailure builds a response for a provider that could not be consulted.
func HardFailure(provider, reason string) ProviderResponse {
	return ProviderResponse{Kind: ResponseHardFailure, Provider: provider, Reason: reason}
}

// OK reports whether the response carries usable results.
func (r ProviderResponse) OK() bool {
	return r.Kind == ResponseSuccess && len(r.Results) > 0
}
