package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sajangpost/caption-api/internal/caption"
	"github.com/sajangpost/caption-api/internal/config"
	"github.com/sajangpost/caption-api/internal/metrics"
	"github.com/stretchr/testify/assert"
)

type stubRunner struct {
	result *caption.Result
	err    error
}

func (s stubRunner) Generate(_ *gin.Context, _ *caption.Request) (*caption.Result, error) {
	return s.result, s.err
}

func newTestCaptionHandler(runner captionRunner) *CaptionHandler {
	h := &CaptionHandler{
		cfg:           &config.Config{DefaultModel: "gpt-4o-mini"},
		sentryMetrics: metrics.NewSentryMetrics(),
	}
	h.newPipeline = func(_ *gin.Context, _ string) captionRunner {
		return runner
	}
	return h
}

func performGenerate(h *CaptionHandler, body string, setup func(c *gin.Context)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/captions/generations", func(c *gin.Context) {
		if setup != nil {
			setup(c)
		}
		h.Generate(c)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/captions/generations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func asUser(c *gin.Context) {
	c.Set("user_id", "user-1")
	c.Set("user_role", "user")
}

func TestCaptionHandler_Generate_InvalidBody(t *testing.T) {
	h := newTestCaptionHandler(stubRunner{})

	w := performGenerate(h, `{"category":"카페"}`, asUser)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCaptionHandler_Generate_InvalidTone(t *testing.T) {
	h := newTestCaptionHandler(stubRunner{})

	body := `{"category":"카페","content":"신메뉴 출시","tone":"SARCASTIC"}`
	w := performGenerate(h, body, asUser)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid tone")
}

func TestCaptionHandler_Generate_InvalidModel(t *testing.T) {
	h := newTestCaptionHandler(stubRunner{})

	body := `{"category":"카페","content":"신메뉴 출시","tone":"CASUAL","model":"gpt-3.5-turbo"}`
	w := performGenerate(h, body, asUser)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid model")
}

func TestCaptionHandler_Generate_MissingUser(t *testing.T) {
	h := newTestCaptionHandler(stubRunner{})

	body := `{"category":"카페","content":"신메뉴 출시","tone":"CASUAL"}`
	w := performGenerate(h, body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCaptionHandler_Generate_QuotaExceeded(t *testing.T) {
	h := newTestCaptionHandler(stubRunner{})

	body := `{"category":"카페","content":"신메뉴 출시","tone":"CASUAL"}`
	w := performGenerate(h, body, func(c *gin.Context) {
		asUser(c)
		c.Set("quota_exceeded", true)
	})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "quota_exceeded")
	assert.Contains(t, w.Body.String(), `"upgrade_required":true`)
}

func TestCaptionHandler_Generate_AdminBypassesQuota(t *testing.T) {
	h := newTestCaptionHandler(stubRunner{err: caption.ErrEmptyOutput})

	body := `{"category":"카페","content":"신메뉴 출시","tone":"CASUAL"}`
	w := performGenerate(h, body, func(c *gin.Context) {
		c.Set("user_id", "admin-1")
		c.Set("user_role", "admin")
		c.Set("quota_exceeded", true)
	})

	// Past the quota gate; the stubbed pipeline then fails with empty output.
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCaptionHandler_Generate_EmptyOutputIsBadGateway(t *testing.T) {
	h := newTestCaptionHandler(stubRunner{err: caption.ErrEmptyOutput})

	body := `{"category":"카페","content":"신메뉴 출시","tone":"CASUAL"}`
	w := performGenerate(h, body, asUser)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
