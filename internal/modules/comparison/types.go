package comparison

// DocInfo identifies one side of a comparison.
type DocInfo struct {
	DocID string `json:"doc_id"`
	Title string `json:"title"`
}

// Citation points at a chunk that contributed to a section's aggregated text.
type Citation struct {
	ChunkID    string `json:"chunk_id"`
	Page       *int   `json:"page"`
	ChunkIndex int    `json:"chunk_index"`
	Heading    string `json:"heading"`
	Excerpt    string `json:"excerpt"`
}

// Image is a figure placed into a section.
type Image struct {
	ChunkID       string `json:"chunk_id"`
	Page          *int   `json:"page"`
	Caption       string `json:"caption,omitempty"`
	PictureNumber int    `json:"picture_number"`
	ImageData     string `json:"image_b64"`
}

// SectionComparison is the per-section output record.
type SectionComparison struct {
	Section         string     `json:"section"`
	PaperASummary   string     `json:"paper_a_summary"`
	PaperBSummary   string     `json:"paper_b_summary"`
	Similarities    string     `json:"similarities"`
	Differences     string     `json:"differences"`
	Notes           string     `json:"notes"`
	PaperACitations []Citation `json:"paper_a_citations"`
	PaperBCitations []Citation `json:"paper_b_citations"`
	PaperAImages    []Image    `json:"paper_a_images"`
	PaperBImages    []Image    `json:"paper_b_images"`
}

// Result is the full comparison of two documents.
type Result struct {
	DocA           DocInfo             `json:"doc_a"`
	DocB           DocInfo             `json:"doc_b"`
	Sections       []SectionComparison `json:"sections"`
	OverallSummary *string             `json:"overall_summary"`
}

// sectionFields is the strict five-field shape the model must return for
// each section.
type sectionFields struct {
	PaperASummary string `json:"paper_a_summary"`
	PaperBSummary string `json:"paper_b_summary"`
	Similarities  string `json:"similarities"`
	Differences   string `json:"differences"`
	Notes         string `json:"notes"`
}
