// Package document defines grant document records and the in-memory store
// that serves them to the section pipeline.
package document

// Document is one stored text snippet. Records are loaded once and never
// mutated; optional fields stay nil when absent from the source.
type Document struct {
	ID          string   `json:"id"`
	CompanyID   string   `json:"company_id"`
	SectionType string   `json:"section_type"`
	Language    string   `json:"language"`
	Text        string   `json:"text"`
	Tags        []string `json:"tags,omitempty"`
	SourceType  *string  `json:"source_type,omitempty"`
	SourceURL   *string  `json:"source_url,omitempty"`
	CreatedAt   *string  `json:"created_at,omitempty"`
}

// IDs returns the ids of docs in order.
func IDs(docs []Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}
