package models

// Modality classifies a chunk as text or image evidence.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// BoundingBox is a chunk's page region, normalized to [0,1].
//
// Normalization accuracy depends on the source page size being known at
// extraction time; when the extractor falls back to the default page size
// the coordinates are approximate.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// ChunkMetadata carries everything known about a chunk besides its text and
// embedding. Display metadata (title, authors, source URL) is denormalized
// onto every chunk; there is no separate document table.
type ChunkMetadata struct {
	DocID         string            `json:"doc_id"`
	Title         string            `json:"title,omitempty"`
	Authors       StringArray       `json:"authors,omitempty"`
	SourceURL     string            `json:"source_url,omitempty"`
	Modality      Modality          `json:"modality"`
	Page          *int              `json:"page,omitempty"`
	HeadingPath   StringArray       `json:"heading_path,omitempty"` // coarse → fine
	ChunkIndex    int               `json:"chunk_index"`
	BBox          *BoundingBox      `json:"bbox,omitempty"`
	Preview       string            `json:"preview,omitempty"`        // text chunks
	Caption       string            `json:"caption,omitempty"`        // image chunks
	ImageData     string            `json:"image_data,omitempty"`     // image chunks, base64 PNG
	PictureNumber int               `json:"picture_number,omitempty"` // image chunks
	Additional    map[string]string `json:"additional,omitempty"`
}

// Chunk is the minimal retrievable unit of extracted document content.
type Chunk struct {
	ID        string        `json:"id"`
	Text      string        `json:"text,omitempty"`
	Embedding []float32     `json:"-"`
	Meta      ChunkMetadata `json:"metadata"`
}

// RankedChunk bundles a chunk with its retrieval distance. Lower means a
// closer match; the numeric range is collaborator-defined.
type RankedChunk struct {
	Chunk
	Distance float64 `json:"distance"`
}
