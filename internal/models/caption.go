package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CaptionRecord is the persisted result of one accepted generation request.
// It is written exactly once by the pipeline; bookmark/delete mutations happen
// through the surrounding product, not this service.
type CaptionRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID   string `gorm:"index" json:"user_id"`
	Category string `gorm:"not null;index" json:"category"`
	Tone     string `gorm:"not null" json:"tone"`
	Purpose  string `json:"purpose"`
	Content  string `gorm:"type:text;not null" json:"content"`

	Caption            string         `gorm:"type:text;not null" json:"caption"`
	Hashtags           datatypes.JSON `json:"hashtags"`
	StoryPhrases       datatypes.JSON `json:"story_phrases"`
	EngagementQuestion string         `gorm:"type:text" json:"engagement_question"`

	Model      string `json:"model"`
	RequestID  string `gorm:"index" json:"request_id"`
	Bookmarked bool   `gorm:"default:false" json:"bookmarked"`
}

func (r *CaptionRecord) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// UsageLog tracks model usage per pipeline run
type UsageLog struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UserID        string    `gorm:"index" json:"user_id"`
	Model         string    `gorm:"not null" json:"model"`
	Tone          string    `json:"tone"`
	TotalTokens   int       `gorm:"not null" json:"total_tokens"`
	InputTokens   int       `gorm:"not null" json:"input_tokens"`
	OutputTokens  int       `gorm:"not null" json:"output_tokens"`
	RewriteStages int       `gorm:"default:0" json:"rewrite_stages"`
	DurationMS    int       `gorm:"not null" json:"duration_ms"`
	RequestID     string    `gorm:"index" json:"request_id"`
}
