package models

import "time"

// ExemplarCaption is one row of the read-only exemplar corpus, populated by an
// offline ingestion job. The Embedding column is a pgvector `vector(1536)`;
// GORM cannot serialize it, so reads and writes go through raw SQL
// (`embedding <=> ?::vector`) and the field is excluded from mapping.
type ExemplarCaption struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Category   string    `gorm:"size:100;not null;index:idx_exemplar_category_tone" json:"category"`
	Tone       *string   `gorm:"size:20;index:idx_exemplar_category_tone" json:"tone,omitempty"`
	Caption    string    `gorm:"type:text;not null" json:"caption"`
	Popularity int       `gorm:"default:0" json:"popularity"`
	SourceID   string    `gorm:"size:128;uniqueIndex;not null" json:"source_id"`

	Embedding []float32 `gorm:"-" json:"-"`

	// Populated only on query results (SELECT alias), never stored.
	Similarity float64 `gorm:"-:migration" json:"similarity,omitempty"`
}

func (ExemplarCaption) TableName() string {
	return "exemplar_captions"
}
