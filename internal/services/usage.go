package services

import (
	"time"

	"github.com/sajangpost/caption-api/internal/caption"
	"github.com/sajangpost/caption-api/internal/logger"
	"github.com/sajangpost/caption-api/internal/models"
	"gorm.io/gorm"
)

// UsageService records per-run token consumption for cost accounting
type UsageService struct {
	db *gorm.DB
}

func NewUsageService(db *gorm.DB) *UsageService {
	return &UsageService{db: db}
}

// Log writes one usage row. Failures are logged and swallowed; accounting
// must never fail a request that already produced a caption.
func (s *UsageService) Log(userID, requestID, model string, res *caption.Result, duration time.Duration) {
	entry := &models.UsageLog{
		UserID:        userID,
		Model:         model,
		Tone:          string(res.DetectedTone),
		TotalTokens:   res.Usage.TotalTokens,
		InputTokens:   res.Usage.InputTokens,
		OutputTokens:  res.Usage.OutputTokens,
		RewriteStages: res.RewriteStages,
		DurationMS:    int(duration.Milliseconds()),
		RequestID:     requestID,
	}
	if err := s.db.Create(entry).Error; err != nil {
		logger.Warn("Failed to record usage log", logger.Fields{
			"error":      err.Error(),
			"user_id":    userID,
			"request_id": requestID,
		})
	}
}
