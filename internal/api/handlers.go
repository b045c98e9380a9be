package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seika-studio/scriptforge/internal/engine"
	"github.com/seika-studio/scriptforge/internal/telemetry"
	"github.com/seika-studio/scriptforge/internal/template"
)

type handler struct {
	engine   *engine.Engine
	registry *template.Registry
	store    *telemetry.Store
	logger   *zap.Logger
}

type storyPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

type optionsPayload struct {
	TemplateID        string           `json:"templateId"`
	TargetDurationSec *int             `json:"targetDurationSec"`
	StylePreference   string           `json:"stylePreference"`
	Language          string           `json:"language"`
	BeatCount         *int             `json:"beatCount"`
	MaxRetries        *int             `json:"maxRetries"`
	EnableCaptions    bool             `json:"enableCaptions"`
	CaptionStyles     []string         `json:"captionStyles"`
	FixedScenes       []template.Scene `json:"fixedScenes"`
}

type generateRequest struct {
	Story   storyPayload   `json:"story"`
	Options optionsPayload `json:"options"`
}

type generateResponse struct {
	GeneratedByService bool            `json:"generatedByService"`
	Script             any             `json:"script"`
	Metadata           engine.Metadata `json:"metadata"`
	Error              string          `json:"error,omitempty"`
}

func (h *handler) generateScript(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Story.Title) == "" || strings.TrimSpace(req.Story.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "story title and text are required"})
		return
	}

	opts := engine.DefaultOptions()
	opts.TemplateID = req.Options.TemplateID
	opts.Style = req.Options.StylePreference
	if req.Options.Language != "" {
		opts.Language = req.Options.Language
	}
	if req.Options.TargetDurationSec != nil {
		opts.TargetDurationSec = *req.Options.TargetDurationSec
	}
	if req.Options.BeatCount != nil {
		opts.BeatCount = *req.Options.BeatCount
	}
	if req.Options.MaxRetries != nil {
		opts.MaxRetries = *req.Options.MaxRetries
	}
	opts.EnableCaptions = req.Options.EnableCaptions
	opts.CaptionStyles = req.Options.CaptionStyles
	opts.FixedScenes = req.Options.FixedScenes

	story := engine.Story(req.Story)

	res, err := h.engine.GenerateScript(c.Request.Context(), story, opts)
	if err == nil && res.Success {
		c.JSON(http.StatusOK, generateResponse{
			GeneratedByService: true,
			Script:             res.Script,
			Metadata:           res.Metadata,
		})
		return
	}

	h.logger.Warn("service generation failed, serving fallback",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("story_id", story.ID),
		zap.Error(err))

	resp := generateResponse{
		GeneratedByService: false,
		Script:             engine.Fallback(story, opts),
	}
	if res != nil {
		resp.Metadata = res.Metadata
		resp.Error = res.ErrorMessage
	} else if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) listTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": h.registry.List()})
}

func (h *handler) stats(c *gin.Context) {
	perTemplate := make(map[string]telemetry.Stats)
	for _, id := range h.store.TemplateIDs() {
		if s, ok := h.store.TemplateStats(id); ok {
			perTemplate[id] = s
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"global":    h.store.Stats(),
		"templates": perTemplate,
	})
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
