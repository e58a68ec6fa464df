package handlers

import (
	"context"
	"net/http"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/chain"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/job"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Submitter hands a stored job to whatever executes it: the in-process
// runner or the queue publisher.
type Submitter interface {
	Submit(ctx context.Context, j *job.Job) error
}

type Handler struct {
	Jobs   job.Store
	Runner Submitter
	Chain  chain.Gateway
	Log    *zap.Logger
}

func NewHandler(jobs job.Store, runner Submitter, gw chain.Gateway, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Jobs: jobs, Runner: runner, Chain: gw, Log: log}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"code":  code,
		"error": msg,
	})
}
