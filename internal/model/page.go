package model

// Page is the extracted text content of a single URL.
type Page struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	StatusCode int    `json:"status_code"`
	Source     string `json:"source"` // scraper name, e.g. "local_http", "jina"
}
