package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/chain"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/httpapi/handlers"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/httpapi/middleware"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/job"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	master     = "0x00000000000000000000000000000000000000aa"
)

type recordingSubmitter struct {
	mu   sync.Mutex
	jobs []*job.Job
	err  error
}

func (s *recordingSubmitter) Submit(ctx context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, j)
	return nil
}

type fixture struct {
	router *gin.Engine
	jobs   *job.MemoryStore
	sub    *recordingSubmitter
	chain  *chain.MemoryGateway
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		jobs:  job.NewMemoryStore(),
		sub:   &recordingSubmitter{},
		chain: chain.NewMemoryGateway(),
	}
	h := handlers.NewHandler(f.jobs, f.sub, f.chain, nil)
	f.router = NewRouter(h, opts, nil)
	return f
}

func (f *fixture) do(method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestMintValidation(t *testing.T) {
	f := newFixture(t, Options{})

	w := f.do(http.MethodGet, "/mint", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "address is required", decode(t, w)["error"])

	w = f.do(http.MethodGet, "/mint?address=not-an-address", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, f.sub.jobs)
}

func TestMintCreatesPendingJob(t *testing.T) {
	f := newFixture(t, Options{})

	w := f.do(http.MethodGet, "/mint?address="+master, "", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	jobID, _ := decode(t, w)["jobId"].(string)
	require.NotEmpty(t, jobID)

	require.Len(t, f.sub.jobs, 1)
	var req workflow.HeroRequest
	require.NoError(t, f.sub.jobs[0].Decode(&req))
	assert.Equal(t, master, req.Address)

	w = f.do(http.MethodGet, "/mint/status/"+jobID, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)
	assert.Equal(t, "pending", view["status"])
	assert.Equal(t, "create_hero", view["kind"])
	assert.NotContains(t, view, "result")

	// status routes are scoped to their kind; /jobs is not
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/create-quest/status/"+jobID, "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/jobs/"+jobID, "", "").Code)
}

func TestJobStatusShowsResult(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	j, err := f.jobs.Create(ctx, job.KindCreateQuest, workflow.QuestRequest{})
	require.NoError(t, err)
	require.NoError(t, f.jobs.Complete(ctx, j.ID, workflow.QuestResult{QuestID: 3, MetadataURI: "ipfs://q"}))

	w := f.do(http.MethodGet, "/create-quest/status/"+j.ID, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)
	assert.Equal(t, "completed", view["status"])
	assert.Equal(t, map[string]any{"questId": float64(3), "metadataUri": "ipfs://q"}, view["result"])
}

func TestUnknownJob(t *testing.T) {
	f := newFixture(t, Options{})
	w := f.do(http.MethodGet, "/mint/status/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Job not found", decode(t, w)["error"])
}

func TestSubmitFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.sub.err = errors.New("queue down")

	w := f.do(http.MethodPost, "/create-quest", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, decode(t, w), "jobId")
}

func TestStartQuestRequiresID(t *testing.T) {
	f := newFixture(t, Options{})
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/start-quest", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/start-quest?questId=-1", "", "").Code)

	w := f.do(http.MethodPost, "/start-quest?questId=4", "", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	var req workflow.StartRequest
	require.NoError(t, f.sub.jobs[0].Decode(&req))
	assert.Equal(t, uint64(4), req.QuestID)
}

func TestStoryTextThreads(t *testing.T) {
	f := newFixture(t, Options{})

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/story-text", "", "").Code)

	w := f.do(http.MethodGet, "/story-text?input=a+dragon+wakes", "", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	threadID, _ := body["threadId"].(string)
	assert.NotEmpty(t, threadID)
	assert.NotEmpty(t, body["jobId"])

	w = f.do(http.MethodGet, "/story-text?input=it+flies&threadId="+threadID, "", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, threadID, decode(t, w)["threadId"])

	var req workflow.StoryRequest
	require.NoError(t, f.sub.jobs[1].Decode(&req))
	assert.Equal(t, workflow.StoryRequest{Input: "it flies", ThreadID: threadID}, req)
}

func TestCORSAndFallbacks(t *testing.T) {
	f := newFixture(t, Options{})

	w := f.do(http.MethodOptions, "/mint", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = f.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get(middleware.TraceIDHeader))

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/nowhere", "", "").Code)
}

func TestWrongMethodIsNotFound(t *testing.T) {
	f := newFixture(t, Options{})

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/create-quest", "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/mint", "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/health", "", "").Code)
	assert.Empty(t, f.sub.jobs)
}

func TestCrossOriginPreflight(t *testing.T) {
	f := newFixture(t, Options{})

	req := httptest.NewRequest(http.MethodOptions, "/create-quest", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Empty(t, f.sub.jobs)
}

func TestRateLimitOnJobRoutes(t *testing.T) {
	f := newFixture(t, Options{RateLimit: 0.001, RateBurst: 1})

	assert.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/create-quest", "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "/create-quest", "", "").Code)
	// reads are not limited
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "", "").Code)
}

func TestChainViews(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	stats := chain.HeroStats{Strength: 10, Dexterity: 11, WillPower: 12, Intelligence: 13, Charisma: 14, Constitution: 15}
	heroID, err := f.chain.RecruitHero(ctx, master, "Ember", "ipfs://h", stats)
	require.NoError(t, err)
	questID, err := f.chain.CreateQuest(ctx, "ipfs://q")
	require.NoError(t, err)
	require.NoError(t, f.chain.JoinQuest(ctx, questID, heroID))

	w := f.do(http.MethodGet, "/heroes/0", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	hero := decode(t, w)
	assert.Equal(t, "Ember", hero["name"])
	assert.Equal(t, float64(1), hero["level"])
	assert.Equal(t, false, hero["active"])

	w = f.do(http.MethodGet, "/quests/0", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"questId": float64(0), "metadataUri": "ipfs://q", "heroes": []any{float64(0)}}, decode(t, w))

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/heroes/9", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/quests/x", "", "").Code)
}

func TestOperatorRoutes(t *testing.T) {
	f := newFixture(t, Options{JWTSecret: testSecret})
	ctx := context.Background()
	stats := chain.HeroStats{Strength: 8, Dexterity: 8, WillPower: 8, Intelligence: 8, Charisma: 8, Constitution: 8}
	_, err := f.chain.RecruitHero(ctx, master, "Ash", "ipfs://h", stats)
	require.NoError(t, err)
	_, err = f.chain.CreateQuest(ctx, "ipfs://q")
	require.NoError(t, err)

	token, err := middleware.GenerateToken("ops", testSecret, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/quests/0/start", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/quests/0/start", "", "bogus").Code)

	// no heroes yet
	w := f.do(http.MethodPost, "/quests/0/start", "", token)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode(t, w)["error"], "no heroes enrolled")

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/quests/0/join", `{}`, token).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/quests/0/join", `{"heroId":0}`, token).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/quests/0/start", "", token).Code)

	w = f.do(http.MethodPost, "/quests/0/join", `{"heroId":0}`, token)
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/quests/0/tasks", `{"heroId":0,"task":"DANCE"}`, token).Code)
	w = f.do(http.MethodPost, "/quests/0/tasks", `{"heroId":0,"task":"FIGHT"}`, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FIGHT", decode(t, w)["task"])

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/quests/0/resolve", `{"outcome":"MAYBE"}`, token).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/quests/0/resolve", `{"outcome":"PASS"}`, token).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/quests/0/finish", "", token).Code)

	info, err := f.chain.HeroInfo(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.Level)
	status, err := f.chain.QuestStatus(0)
	require.NoError(t, err)
	assert.Equal(t, chain.QuestFinished, status)
}

func TestOperatorRoutesDisabledWithoutSecret(t *testing.T) {
	f := newFixture(t, Options{})
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/quests/0/finish", "", "").Code)
}

func TestArtifactsServed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(dir+"/hero.json", `{"name":"Ember"}`))
	f := newFixture(t, Options{ArtifactDir: dir})

	w := f.do(http.MethodGet, "/generated/hero.json", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"Ember"}`, w.Body.String())
}

func writeFile(name, content string) error {
	return os.WriteFile(name, []byte(content), 0o644)
}
