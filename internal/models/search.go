package models

// SearchEntry is one searchable destination. Score is only set on ranked results.
type SearchEntry struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	To          string `json:"to" yaml:"to"`
	Keywords    string `json:"keywords" yaml:"keywords"`
	Score       int    `json:"score,omitempty" yaml:"-"`
}
