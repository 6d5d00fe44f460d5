package models

// DocumentStatus tracks an ingestion's lifecycle.
type DocumentStatus string

const (
	DocumentPending DocumentStatus = "pending"
	DocumentReady   DocumentStatus = "ready"
	DocumentFailed  DocumentStatus = "failed"
)

// Document is one ingested paper. The heavy content lives in the vector
// store; this row carries catalog metadata and ingestion state.
type Document struct {
	Base
	DocID      string         `json:"doc_id"     gorm:"uniqueIndex;size:191;not null"`
	Title      string         `json:"title"      gorm:"type:text"`
	Summary    string         `json:"summary"    gorm:"type:text"`
	Authors    StringArray    `json:"authors"    gorm:"type:text;serializer:json"`
	ArxivID    string         `json:"arxiv_id"   gorm:"size:64;index"`
	SourceURL  string         `json:"source_url" gorm:"type:text"`
	Status     DocumentStatus `json:"status"     gorm:"type:varchar(16);default:pending"`
	ChunkCount int            `json:"chunk_count"`
	ImageCount int            `json:"image_count"`
	ArchiveKey string         `json:"archive_key,omitempty" gorm:"type:text"`
	Error      string         `json:"error,omitempty"       gorm:"type:text"`
}

func (Document) TableName() string { return "documents" }
