package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/pool"
)

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidLanguage),
		errors.Is(err, domain.ErrEmptySourceCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInspecting),
		errors.Is(err, domain.ErrQuestionNotLoaded),
		errors.Is(err, domain.ErrRunInFlight),
		errors.Is(err, domain.ErrSubmitInFlight),
		errors.Is(err, domain.ErrStaleRun):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, pool.ErrQueueFull):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many pending actions, try again"})
	case errors.Is(err, pool.ErrStopped),
		errors.Is(err, domain.ErrJudgeUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusGone, gin.H{"error": "Session is closed"})
	default:
		logger.Error("Request failed", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
