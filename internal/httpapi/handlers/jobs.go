package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/job"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/thread"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/workflow"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Mint queues a hero recruitment for the address in the query string.
func (h *Handler) Mint(c *gin.Context) {
	addr := strings.TrimSpace(c.Query("address"))
	if addr == "" {
		fail(c, http.StatusBadRequest, 40001, "address is required")
		return
	}
	if !common.IsHexAddress(addr) {
		fail(c, http.StatusBadRequest, 40002, "address is not a valid hex address")
		return
	}
	h.enqueue(c, job.KindCreateHero, workflow.HeroRequest{Address: addr}, nil)
}

func (h *Handler) CreateQuest(c *gin.Context) {
	h.enqueue(c, job.KindCreateQuest, workflow.QuestRequest{}, nil)
}

func (h *Handler) StartQuest(c *gin.Context) {
	questID, err := strconv.ParseUint(c.Query("questId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, 40003, "questId must be a non-negative integer")
		return
	}
	h.enqueue(c, job.KindStartQuest, workflow.StartRequest{QuestID: questID}, nil)
}

// StoryText continues a story thread, opening a new one when no threadId is
// given. The thread id is returned so the caller can keep going.
func (h *Handler) StoryText(c *gin.Context) {
	input := strings.TrimSpace(c.Query("input"))
	if input == "" {
		fail(c, http.StatusBadRequest, 40004, "input is required")
		return
	}
	threadID := strings.TrimSpace(c.Query("threadId"))
	if threadID == "" {
		threadID = thread.NewID()
	}
	h.enqueue(c, job.KindStoryText,
		workflow.StoryRequest{Input: input, ThreadID: threadID},
		gin.H{"threadId": threadID})
}

func (h *Handler) enqueue(c *gin.Context, kind job.Kind, payload any, extra gin.H) {
	ctx := c.Request.Context()
	j, err := h.Jobs.Create(ctx, kind, payload)
	if err != nil {
		h.Log.Error("create job", zap.String("kind", string(kind)), zap.Error(err))
		fail(c, http.StatusInternalServerError, 50001, "failed to create job")
		return
	}

	if err := h.Runner.Submit(ctx, j); err != nil {
		h.Log.Error("submit job", zap.String("job_id", j.ID), zap.Error(err))
		// nothing will pick it up; do not leave it pending forever
		if ferr := h.Jobs.Fail(ctx, j.ID, err); ferr != nil {
			h.Log.Error("fail unsubmitted job", zap.String("job_id", j.ID), zap.Error(ferr))
		}
		fail(c, http.StatusServiceUnavailable, 50301, "job could not be scheduled")
		return
	}

	body := gin.H{"jobId": j.ID}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusAccepted, body)
}

// JobStatus serves a job's current view. A non-empty kind restricts the
// lookup to jobs of that kind.
func (h *Handler) JobStatus(kind job.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		j, err := h.Jobs.Get(c.Request.Context(), c.Param("jobId"))
		if errors.Is(err, job.ErrNotFound) || (err == nil && kind != "" && j.Kind != kind) {
			fail(c, http.StatusNotFound, 40401, "Job not found")
			return
		}
		if err != nil {
			h.Log.Error("get job", zap.String("job_id", c.Param("jobId")), zap.Error(err))
			fail(c, http.StatusInternalServerError, 50002, "failed to load job")
			return
		}
		c.JSON(http.StatusOK, j.View())
	}
}
