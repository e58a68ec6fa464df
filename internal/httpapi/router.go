package httpapi

import (
	"net/http"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/httpapi/handlers"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/httpapi/middleware"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/job"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Options struct {
	// JWTSecret enables the operator routes when set.
	JWTSecret string
	// RateLimit and RateBurst bound job creation per client IP; a zero
	// RateLimit disables the limiter.
	RateLimit float64
	RateBurst int
	// ArtifactDir is served under /generated when set.
	ArtifactDir string
}

func NewRouter(h *handlers.Handler, opts Options, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.TraceID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "error": "route not found"})
	})

	r.GET("/health", h.Health)

	create := r.Group("/")
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		create.Use(middleware.RateLimit(rate.Limit(opts.RateLimit), burst))
	}
	create.GET("/mint", h.Mint)
	create.POST("/create-quest", h.CreateQuest)
	create.POST("/start-quest", h.StartQuest)
	create.GET("/story-text", h.StoryText)

	r.GET("/mint/status/:jobId", h.JobStatus(job.KindCreateHero))
	r.GET("/create-quest/status/:jobId", h.JobStatus(job.KindCreateQuest))
	r.GET("/start-quest/status/:jobId", h.JobStatus(job.KindStartQuest))
	r.GET("/story-text/status/:jobId", h.JobStatus(job.KindStoryText))
	r.GET("/jobs/:jobId", h.JobStatus(""))

	r.GET("/heroes/:heroId", h.GetHero)
	r.GET("/quests/:questId", h.GetQuest)

	if opts.JWTSecret != "" {
		op := r.Group("/quests/:questId")
		op.Use(middleware.OperatorAuth(opts.JWTSecret))
		op.POST("/join", h.JoinQuest)
		op.POST("/start", h.StartQuestNow)
		op.POST("/tasks", h.PerformTask)
		op.POST("/resolve", h.ResolveTask)
		op.POST("/finish", h.FinishQuest)
	}

	if opts.ArtifactDir != "" {
		r.Static("/generated", opts.ArtifactDir)
	}
	return r
}
