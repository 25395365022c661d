package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sajangpost/caption-api/internal/api/middleware"
	"github.com/sajangpost/caption-api/internal/caption"
	"github.com/sajangpost/caption-api/internal/config"
	"github.com/sajangpost/caption-api/internal/llm"
	"github.com/sajangpost/caption-api/internal/logger"
	"github.com/sajangpost/caption-api/internal/metrics"
	"github.com/sajangpost/caption-api/internal/services"
	"gorm.io/gorm"
)

const defaultCaptionModel = "gpt-4o-mini"

// allowedModels are the routing targets the gateway's plans map onto
var allowedModels = map[string]bool{
	"gpt-4o-mini":      true,
	"gpt-4o":           true,
	"gemini-2.5-flash": true,
}

type CaptionHandler struct {
	cfg            *config.Config
	db             *gorm.DB
	captionService *services.CaptionService
	usageService   *services.UsageService
	cloudwatch     *metrics.Client
	sentryMetrics  *metrics.SentryMetrics

	// newPipeline exists so tests can substitute a stub pipeline
	newPipeline func(c *gin.Context, model string) captionRunner
}

type captionRunner interface {
	Generate(ctx *gin.Context, req *caption.Request) (*caption.Result, error)
}

type pipelineRunner struct {
	p *caption.Pipeline
}

func (r pipelineRunner) Generate(c *gin.Context, req *caption.Request) (*caption.Result, error) {
	return r.p.Generate(c.Request.Context(), req)
}

func NewCaptionHandler(cfg *config.Config, db *gorm.DB, cw *metrics.Client) *CaptionHandler {
	factory := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey)
	h := &CaptionHandler{
		cfg:            cfg,
		db:             db,
		captionService: services.NewCaptionService(db),
		usageService:   services.NewUsageService(db),
		cloudwatch:     cw,
		sentryMetrics:  metrics.NewSentryMetrics(),
	}
	h.newPipeline = func(c *gin.Context, model string) captionRunner {
		provider, err := factory.GetProvider(c.Request.Context(), model, "")
		if err != nil {
			return nil
		}
		// Exemplar embeddings live in the OpenAI space regardless of the
		// generation model.
		embedder, err := factory.GetProvider(c.Request.Context(), "", "openai")
		if err != nil {
			embedder = provider
		}
		return pipelineRunner{p: caption.NewPipeline(db, provider, embedder, model)}
	}
	return h
}

type CaptionRequest struct {
	Category     string                `json:"category" binding:"required"`
	Content      string                `json:"content" binding:"required"`
	Tone         string                `json:"tone" binding:"required"`
	Purpose      string                `json:"purpose"`
	Model        string                `json:"model"`
	TodayContext *caption.TodayContext `json:"today_context"`
}

// Generate runs a single request through the caption pipeline and persists
// the accepted result.
func (h *CaptionHandler) Generate(c *gin.Context) {
	var req CaptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tone, ok := caption.ParseTone(req.Tone)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid tone. Allowed: EMOTIONAL, CASUAL, PROFESSIONAL",
		})
		return
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = h.cfg.DefaultModel
	}
	if model == "" {
		model = defaultCaptionModel
	}
	if !allowedModels[model] {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid model. Allowed: gpt-4o-mini, gpt-4o, gemini-2.5-flash",
		})
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := services.Allowed(middleware.QuotaExceeded(c), middleware.GetUserRole(c)); err != nil {
		if errors.Is(err, services.ErrQuotaExceeded) {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":            "quota_exceeded",
				"upgrade_required": true,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Entitlement check failed"})
		return
	}

	runner := h.newPipeline(c, model)
	if runner == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Model provider unavailable"})
		return
	}

	genReq := &caption.Request{
		Category: req.Category,
		Content:  req.Content,
		Tone:     tone,
		Purpose:  req.Purpose,
		Today:    req.TodayContext,
	}

	requestID := c.GetString("request_id")
	start := time.Now()

	result, err := runner.Generate(c, genReq)
	duration := time.Since(start)

	h.sentryMetrics.RecordPipelineRun(c.Request.Context(), model, string(tone), resultStages(result), duration, err == nil)
	if h.cloudwatch != nil {
		h.cloudwatch.RecordPipelineDuration(duration, resultStages(result), err == nil)
	}

	if err != nil {
		logger.Error("Caption generation failed", err, logger.Fields{
			"request_id": requestID,
			"user_id":    userID,
			"model":      model,
			"tone":       string(tone),
		})
		status := http.StatusInternalServerError
		if errors.Is(err, caption.ErrEmptyOutput) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"error":      "Caption generation failed",
			"request_id": requestID,
		})
		return
	}

	record, err := h.captionService.Save(userID, requestID, model, genReq, result)
	if err != nil {
		logger.Error("Failed to persist caption", err, logger.Fields{
			"request_id": requestID,
			"user_id":    userID,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Failed to save caption",
			"request_id": requestID,
		})
		return
	}

	h.usageService.Log(userID, requestID, model, result, duration)
	logger.LogPipelineRun(model, string(result.DetectedTone), duration, map[string]interface{}{
		"total_tokens":  result.Usage.TotalTokens,
		"input_tokens":  result.Usage.InputTokens,
		"output_tokens": result.Usage.OutputTokens,
	}, logger.Fields{
		"request_id": requestID,
		"user_id":    userID,
	})
	if h.cloudwatch != nil {
		h.cloudwatch.RecordTokenUsage(model, result.Usage.TotalTokens, result.Usage.InputTokens, result.Usage.OutputTokens)
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                  record.ID,
		"request_id":          requestID,
		"caption":             result.Caption,
		"hashtags":            result.Hashtags,
		"story_phrases":       result.StoryPhrases,
		"engagement_question": result.EngagementQuestion,
		"detected_tone":       result.DetectedTone,
		"score":               result.Score,
		"model":               model,
		"rewrite_stages":      result.RewriteStages,
		"usage":               result.Usage,
	})
}

func resultStages(res *caption.Result) int {
	if res == nil {
		return 0
	}
	return res.RewriteStages
}
