package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"decision-engine/internal/ai"
	"decision-engine/internal/config"
	"decision-engine/internal/engine"
	"decision-engine/internal/knowledge"
	"decision-engine/internal/quick"
	"decision-engine/internal/scoring"
	"decision-engine/internal/store"
)

// Config defines server dependencies.
type Config struct {
	Settings config.Config
	SilentDB bool
	// Remote replaces the provider built from Settings.AI when set.
	Remote ai.Provider
	// Random seeds the quick deciders; nil seeds from the runtime.
	Random *rand.Rand
}

// Server wires HTTP handlers with the engine and persistence.
type Server struct {
	db             *store.Database
	engine         *engine.Engine
	base           *knowledge.Base
	quick          *quick.Decider
	allowedOrigins []string
	defaultMode    engine.Mode
	parallelism    int
	providerName   string
	notifier       *AnalysisNotifier
	metrics        *Metrics
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	settings := cfg.Settings
	if settings.Server.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(settings.Server.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	base, err := knowledge.Default()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("knowledge base: %w", err)
	}

	remote := cfg.Remote
	if remote == nil {
		remote, err = config.RemoteProvider(settings, base, db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ai provider: %w", err)
		}
	}
	providerName := ai.HeuristicName
	if remote != nil && remote.Enabled() {
		providerName = remote.Name()
		logrus.WithFields(logrus.Fields{
			"provider": providerName,
			"timeout":  settings.AI.Timeout,
		}).Info("remote inference enabled")
	}

	server := &Server{
		db:             db,
		engine:         engine.New(ai.NewHeuristic(base), remote, settings.AI.Timeout),
		base:           base,
		quick:          quick.New(cfg.Random),
		allowedOrigins: settings.Server.AllowedOrigins,
		defaultMode:    engine.ParseMode(settings.Engine.DefaultMode),
		parallelism:    settings.Engine.BatchParallelism,
		providerName:   providerName,
		notifier:       NewAnalysisNotifier(),
	}
	server.metrics = NewMetrics(server.notifier.Clients)
	return server, nil
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// DB exposes the store for maintenance tasks.
func (s *Server) DB() *store.Database {
	return s.db
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))
	r.Use(s.metrics.Middleware())

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/domains", s.handleDomains)
		api.POST("/context", s.handleContext)
		api.POST("/options", s.handleOptions)
		api.POST("/score", s.handleScore)
		api.POST("/explain", s.handleExplain)
		api.POST("/analyze", s.handleAnalyze)
		api.POST("/analyze/batch", s.handleAnalyzeBatch)
		api.GET("/analyze/stream", s.handleAnalyzeStream)
		api.GET("/analyses", s.handleListAnalyses)
		api.GET("/analyses/:id", s.handleGetAnalysis)
		api.DELETE("/analyses/:id", s.handleDeleteAnalysis)

		quickGroup := api.Group("/quick")
		quickGroup.POST("/coin", s.handleCoin)
		quickGroup.POST("/yesno", s.handleYesNo)
		quickGroup.POST("/number", s.handleNumber)
		quickGroup.POST("/pick", s.handlePick)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	domains := make([]string, 0, len(s.base.Domains))
	for _, d := range s.base.Domains {
		domains = append(domains, d.Name)
	}
	c.JSON(http.StatusOK, gin.H{
		"provider":                   s.providerName,
		"remote_enabled":             s.engine.RemoteEnabled(),
		"default_mode":               s.defaultMode,
		"actionable_threshold":       scoring.ActionableThreshold,
		"context_override_threshold": scoring.ContextOverrideThreshold,
		"domains":                    domains,
	})
}

func (s *Server) handleDomains(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": s.base.Domains})
}

func (s *Server) handleContext(c *gin.Context) {
	var req ContextRequest
	if !s.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("text is required"))
		return
	}
	cfg := engine.Config{Mode: s.mode(req.Mode), Override: override(req.Importance, req.Timeframe)}
	stage, err := s.engine.InferContext(c.Request.Context(), req.Text, cfg)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, stage)
}

func (s *Server) handleOptions(c *gin.Context) {
	var req OptionsRequest
	if !s.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("text is required"))
		return
	}
	set, err := s.engine.GenerateOptions(c.Request.Context(), req.Text, engine.Config{Mode: s.mode(req.Mode)})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) handleScore(c *gin.Context) {
	var req ScoreRequest
	if !s.bind(c, &req) {
		return
	}
	if err := scoring.ValidateOptions(req.Options); err != nil {
		s.renderError(c, http.StatusUnprocessableEntity, err)
		return
	}
	signal := scoring.ContextSignal{
		Importance: scoring.ParseImportance(req.Importance),
		Timeframe:  scoring.ParseTimeframe(req.Timeframe),
		Confidence: scoring.MaxConfidence,
	}
	ranked := engine.Rank(req.Options, signal, engine.Config{Jitter: req.Jitter})
	resp := ScoreResponse{Ranked: ranked, RecommendedIndex: scoring.RecommendedIndex(ranked)}
	if len(ranked) > 0 {
		resp.Recommended = ranked[0].Option.Name
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExplain(c *gin.Context) {
	var req ExplainRequest
	if !s.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("text is required"))
		return
	}
	if err := scoring.ValidateOptions(req.Options); err != nil {
		s.renderError(c, http.StatusUnprocessableEntity, err)
		return
	}
	signal := scoring.ContextSignal{
		Importance: scoring.ParseImportance(req.Importance),
		Timeframe:  scoring.ParseTimeframe(req.Timeframe),
		Confidence: scoring.MaxConfidence,
	}
	cfg := engine.Config{Mode: s.mode(req.Mode)}
	explanation := s.engine.Explain(c.Request.Context(), ai.ExplanationInput{
		Decision: strings.TrimSpace(req.Text),
		Options:  req.Options,
		Ranked:   engine.Rank(req.Options, signal, cfg),
		Context:  signal,
	}, cfg)
	c.JSON(http.StatusOK, explanation)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if !s.bind(c, &req) {
		return
	}
	if err := validateAnalyze(req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	ctx := c.Request.Context()
	mode := s.mode(req.Mode)
	result, err := s.engine.Analyze(ctx, s.engineRequest(req, mode))
	resp, err := s.record(ctx, req, mode, result, err)
	if err != nil {
		s.renderError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAnalyzeBatch(c *gin.Context) {
	var req BatchAnalyzeRequest
	if !s.bind(c, &req) {
		return
	}
	if len(req.Items) == 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("items are required"))
		return
	}
	if len(req.Items) > maxBatchItems {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("at most %d items per batch", maxBatchItems))
		return
	}

	out := BatchAnalyzeResponse{Items: make([]BatchItemDTO, len(req.Items))}
	reqs := make([]engine.Request, 0, len(req.Items))
	positions := make([]int, 0, len(req.Items))
	modes := make([]engine.Mode, len(req.Items))
	for i, item := range req.Items {
		if err := validateAnalyze(item); err != nil {
			out.Items[i] = BatchItemDTO{Error: err.Error()}
			continue
		}
		modes[i] = s.mode(item.Mode)
		reqs = append(reqs, s.engineRequest(item, modes[i]))
		positions = append(positions, i)
	}
	ctx := c.Request.Context()
	items, err := s.engine.AnalyzeBatch(ctx, reqs, s.parallelism)
	if err != nil {
		s.renderError(c, http.StatusServiceUnavailable, err)
		return
	}

	for j, item := range items {
		i := positions[j]
		resp, err := s.record(ctx, req.Items[i], modes[i], item.Result, item.Err)
		if err != nil {
			out.Items[i] = BatchItemDTO{Error: err.Error()}
			continue
		}
		out.Items[i] = BatchItemDTO{Result: resp}
	}
	logrus.WithFields(logrus.Fields{
		"items":       len(items),
		"parallelism": s.parallelism,
	}).Info("batch analysis complete")
	c.JSON(http.StatusOK, out)
}

func (s *Server) engineRequest(req AnalyzeRequest, mode engine.Mode) engine.Request {
	return engine.Request{
		Text:    req.Text,
		Options: req.Options,
		Config: engine.Config{
			Mode:     mode,
			Override: override(req.Importance, req.Timeframe),
			Jitter:   req.Jitter,
		},
	}
}

// record persists and broadcasts an engine outcome. A statement that fails the
// gate is still recorded so the history shows what needed clarification.
func (s *Server) record(ctx context.Context, req AnalyzeRequest, mode engine.Mode, result engine.Result, err error) (*AnalyzeResponse, error) {
	outcome := "recommended"
	switch {
	case errors.Is(err, engine.ErrNotActionable):
		outcome = string(result.Verdict.Reason)
	case errors.Is(err, scoring.ErrInsufficientOptions):
		s.metrics.ObserveAnalysis(string(mode), "invalid_options", false)
		return nil, err
	case err != nil:
		s.metrics.ObserveAnalysis(string(mode), "error", false)
		return nil, err
	}

	if req.SelectedIndex != nil && err == nil && *req.SelectedIndex >= len(result.Options) {
		s.metrics.ObserveAnalysis(string(mode), "invalid_selection", false)
		return nil, fmt.Errorf("%w: %d of %d options", errSelectedIndex, *req.SelectedIndex, len(result.Options))
	}

	row := store.NewAnalysis(result, mode, req.SelectedIndex)
	if err := s.db.SaveAnalysis(ctx, row); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	dto := FromModel(*row)
	s.metrics.ObserveAnalysis(string(mode), outcome, result.Degraded)
	s.notifier.Broadcast(AnalysisEvent{Type: EventAnalysis, ID: row.ID, Analysis: &dto})

	fields := logrus.Fields{
		"id":          row.ID,
		"mode":        mode,
		"outcome":     outcome,
		"recommended": result.RecommendedIndex,
		"degraded":    result.Degraded,
	}
	if req.SelectedIndex != nil && result.Verdict.Valid {
		fields["agrees"] = engine.Agrees(*req.SelectedIndex, result)
	}
	logrus.WithFields(fields).Info("analysis recorded")

	return &AnalyzeResponse{AnalysisDTO: dto, Extraction: result.Extraction, Rationale: result.Rationale}, nil
}

var errSelectedIndex = errors.New("selected_index out of range")

func validateAnalyze(req AnalyzeRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return errors.New("text is required")
	}
	if req.SelectedIndex == nil {
		return nil
	}
	idx := *req.SelectedIndex
	if idx < 0 || (len(req.Options) > 0 && idx >= len(req.Options)) {
		return fmt.Errorf("%w: %d", errSelectedIndex, idx)
	}
	return nil
}

func (s *Server) handleAnalyzeStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				return true
			}
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("analysis websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("analysis websocket closed")
			} else {
				logrus.WithError(err).Warn("analysis websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) handleListAnalyses(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 25
	}
	validOnly, _ := strconv.ParseBool(c.Query("valid"))

	rows, total, err := s.db.ListAnalyses(c.Request.Context(), store.AnalysisQuery{
		Query:      strings.TrimSpace(c.Query("q")),
		Importance: strings.TrimSpace(c.Query("importance")),
		Timeframe:  strings.TrimSpace(c.Query("timeframe")),
		ValidOnly:  validOnly,
		Sort:       c.Query("sort"),
		Offset:     page * pageSize,
		Limit:      pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]AnalysisDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	c.JSON(http.StatusOK, AnalysesResponse{Items: dtos, Total: total})
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	row, err := s.db.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("analysis %s not found", id))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.JSON(http.StatusOK, FromModel(*row))
}

func (s *Server) handleDeleteAnalysis(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.db.DeleteAnalysis(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("analysis %s not found", id))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	s.notifier.Broadcast(AnalysisEvent{Type: EventDeleted, ID: id})
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCoin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"result": s.quick.Flip()})
}

func (s *Server) handleYesNo(c *gin.Context) {
	var req QuickRequest
	if !s.bind(c, &req) {
		return
	}
	answer, err := s.quick.YesNo(req.Question)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": strings.TrimSpace(req.Question), "answer": answer})
}

func (s *Server) handleNumber(c *gin.Context) {
	var req QuickRequest
	if !s.bind(c, &req) {
		return
	}
	n, err := s.quick.Number(req.Min, req.Max)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"min": req.Min, "max": req.Max, "result": n})
}

func (s *Server) handlePick(c *gin.Context) {
	var req QuickRequest
	if !s.bind(c, &req) {
		return
	}
	choice, idx, err := s.quick.Pick(req.Options)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": choice, "index": idx})
}

func (s *Server) mode(value string) engine.Mode {
	if strings.TrimSpace(value) == "" {
		return s.defaultMode
	}
	return engine.ParseMode(value)
}

// bind decodes a JSON body, treating an empty body as the zero request.
func (s *Server) bind(c *gin.Context, dst interface{}) bool {
	if c.Request.Body == nil {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		s.renderError(c, http.StatusBadRequest, err)
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, scoring.ErrInsufficientOptions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errSelectedIndex):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
