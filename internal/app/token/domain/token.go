package domain

// Metadata is the immutable token description, fixed at deploy time and never
// mutated afterwards.
type Metadata struct {
	Name     string `json:"name" yaml:"name"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
}
