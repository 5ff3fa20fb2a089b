package model

// SearchResultItem is one organic hit returned by a search provider.
// Only Link is required for the item to be considered for extraction.
type SearchResultItem struct {
	Link          string   `json:"link"`
	Title         string   `json:"title,omitempty"`
	Snippet       string   `json:"snippet,omitempty"`
	DisplayedLink string   `json:"displayed_link,omitempty"`
	Extensions    []string `json:"extensions,omitempty"`
}

// Parts returns the non-empty text fields of the item in display order:
// title, snippet, displayed link, then each extension.
func (i SearchResultItem) Parts() []string {
	parts := make([]string, 0, 3+len(i.Extensions))
	for _, s := range []string{i.Title, i.Snippet, i.DisplayedLink} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	for _, ext := range i.Extensions {
		if ext != "" {
			parts = append(parts, ext)
		}
	}
	return parts
}
