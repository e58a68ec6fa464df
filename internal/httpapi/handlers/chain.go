package handlers

import (
	"net/http"
	"strconv"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/chain"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type heroView struct {
	HeroID uint64 `json:"heroId"`
	chain.HeroInfo
	Active bool `json:"active"`
}

func (h *Handler) GetHero(c *gin.Context) {
	heroID, ok := idParam(c, "heroId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	info, err := h.Chain.HeroInfo(ctx, heroID)
	if err != nil {
		h.chainFail(c, "hero info", err, true)
		return
	}
	active, err := h.Chain.IsActive(ctx, heroID)
	if err != nil {
		h.chainFail(c, "hero active", err, true)
		return
	}
	c.JSON(http.StatusOK, heroView{HeroID: heroID, HeroInfo: info, Active: active})
}

func (h *Handler) GetQuest(c *gin.Context) {
	questID, ok := idParam(c, "questId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	uri, err := h.Chain.QuestURL(ctx, questID)
	if err != nil {
		h.chainFail(c, "quest url", err, true)
		return
	}
	heroes, err := h.Chain.QuestHeroes(ctx, questID)
	if err != nil {
		h.chainFail(c, "quest heroes", err, true)
		return
	}
	if heroes == nil {
		heroes = []uint64{}
	}
	c.JSON(http.StatusOK, gin.H{"questId": questID, "metadataUri": uri, "heroes": heroes})
}

type joinReq struct {
	HeroID *uint64 `json:"heroId" binding:"required"`
}

func (h *Handler) JoinQuest(c *gin.Context) {
	questID, ok := idParam(c, "questId")
	if !ok {
		return
	}
	var req joinReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 40011, "heroId is required")
		return
	}
	if err := h.Chain.JoinQuest(c.Request.Context(), questID, *req.HeroID); err != nil {
		h.chainFail(c, "join quest", err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questId": questID, "heroId": *req.HeroID})
}

// StartQuestNow starts a quest synchronously; the job route does the same
// in the background.
func (h *Handler) StartQuestNow(c *gin.Context) {
	questID, ok := idParam(c, "questId")
	if !ok {
		return
	}
	if err := h.Chain.StartQuest(c.Request.Context(), questID); err != nil {
		h.chainFail(c, "start quest", err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questId": questID, "status": chain.QuestInProgress.String()})
}

type taskReq struct {
	HeroID *uint64 `json:"heroId" binding:"required"`
	Task   string  `json:"task" binding:"required"`
}

func (h *Handler) PerformTask(c *gin.Context) {
	questID, ok := idParam(c, "questId")
	if !ok {
		return
	}
	var req taskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 40012, "heroId and task are required")
		return
	}
	task, err := chain.ParseTask(req.Task)
	if err != nil {
		fail(c, http.StatusBadRequest, 40013, err.Error())
		return
	}
	if err := h.Chain.PerformTask(c.Request.Context(), questID, *req.HeroID, task); err != nil {
		h.chainFail(c, "perform task", err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questId": questID, "heroId": *req.HeroID, "task": task})
}

type resolveReq struct {
	Outcome string `json:"outcome" binding:"required"`
}

func (h *Handler) ResolveTask(c *gin.Context) {
	questID, ok := idParam(c, "questId")
	if !ok {
		return
	}
	var req resolveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 40014, "outcome is required")
		return
	}
	outcome, err := chain.ParseOutcome(req.Outcome)
	if err != nil {
		fail(c, http.StatusBadRequest, 40015, err.Error())
		return
	}
	if err := h.Chain.ResolveTask(c.Request.Context(), questID, outcome); err != nil {
		h.chainFail(c, "resolve task", err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questId": questID, "outcome": outcome})
}

func (h *Handler) FinishQuest(c *gin.Context) {
	questID, ok := idParam(c, "questId")
	if !ok {
		return
	}
	if err := h.Chain.FinishQuest(c.Request.Context(), questID); err != nil {
		h.chainFail(c, "finish quest", err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questId": questID, "status": chain.QuestFinished.String()})
}

func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, 40010, name+" must be a non-negative integer")
		return 0, false
	}
	return id, true
}

// chainFail maps a gateway error to a response. Reads treat a revert as a
// missing entity; writes report it as a conflict with the reason.
func (h *Handler) chainFail(c *gin.Context, op string, err error, read bool) {
	switch faults.KindOf(err) {
	case faults.Revert:
		if read {
			fail(c, http.StatusNotFound, 40402, err.Error())
			return
		}
		fail(c, http.StatusConflict, 40901, err.Error())
	case faults.NotFound:
		fail(c, http.StatusNotFound, 40402, err.Error())
	case faults.Validation:
		fail(c, http.StatusBadRequest, 40016, err.Error())
	case faults.Transient:
		h.Log.Warn(op, zap.Error(err))
		fail(c, http.StatusBadGateway, 50201, "chain unavailable")
	default:
		h.Log.Error(op, zap.Error(err))
		fail(c, http.StatusInternalServerError, 50003, "chain call failed")
	}
}
