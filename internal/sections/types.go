// Package sections orchestrates section generation: document lookup,
// retrieval, composition, history and analytics for each request.
package sections

// GenerateRequest is the validated body of POST /generate-section.
type GenerateRequest struct {
	CompanyID   string `json:"company_id"`
	SectionType string `json:"section_type"`
	Text        string `json:"text"`
}

// GenerateResponse is returned for a successful generation.
type GenerateResponse struct {
	CompanyID     string   `json:"company_id"`
	SectionType   string   `json:"section_type"`
	GeneratedText string   `json:"generated_text"`
	Sources       []string `json:"sources"`
	RequestID     string   `json:"request_id"`
	CreatedAt     string   `json:"created_at"`
}
