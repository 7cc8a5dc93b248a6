package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
)

// LanguageInfo describes a selectable editor language.
type LanguageInfo struct {
	Name     domain.Language `json:"name"`
	Label    string          `json:"label"`
	Template string          `json:"template"`
}

// LanguageHandler handles language listing requests.
type LanguageHandler struct{}

// NewLanguageHandler creates a new LanguageHandler.
func NewLanguageHandler() *LanguageHandler {
	return &LanguageHandler{}
}

// List handles GET /api/v1/languages
func (h *LanguageHandler) List(c *gin.Context) {
	langs := domain.Languages()
	out := make([]LanguageInfo, 0, len(langs))
	for _, l := range langs {
		out = append(out, LanguageInfo{Name: l, Label: l.Label(), Template: l.Template()})
	}

	c.JSON(http.StatusOK, gin.H{
		"languages": out,
	})
}
