package services

import (
	"encoding/json"
	"fmt"

	"github.com/sajangpost/caption-api/internal/caption"
	"github.com/sajangpost/caption-api/internal/models"
	"gorm.io/gorm"
)

// CaptionService persists accepted pipeline results
type CaptionService struct {
	db *gorm.DB
}

func NewCaptionService(db *gorm.DB) *CaptionService {
	return &CaptionService{db: db}
}

// Save writes one caption record. The pipeline only hands over results that
// already passed the empty-caption gate, so Save does not re-validate content.
func (s *CaptionService) Save(userID, requestID, model string, req *caption.Request, res *caption.Result) (*models.CaptionRecord, error) {
	hashtags, err := json.Marshal(res.Hashtags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode hashtags: %w", err)
	}
	phrases, err := json.Marshal(res.StoryPhrases)
	if err != nil {
		return nil, fmt.Errorf("failed to encode story phrases: %w", err)
	}

	record := &models.CaptionRecord{
		UserID:             userID,
		Category:           req.Category,
		Tone:               string(req.Tone),
		Purpose:            req.Purpose,
		Content:            req.Content,
		Caption:            res.Caption,
		Hashtags:           hashtags,
		StoryPhrases:       phrases,
		EngagementQuestion: res.EngagementQuestion,
		Model:              model,
		RequestID:          requestID,
	}

	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to save caption: %w", err)
	}
	return record, nil
}
