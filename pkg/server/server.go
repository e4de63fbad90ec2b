package server

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/andrew/topic-rag/pkg/config"
	"github.com/andrew/topic-rag/pkg/index"
	"github.com/andrew/topic-rag/pkg/query"
)

// Server wires the pipeline stages into the HTTP API. Every stage endpoint is
// exposed individually so deployments can split them across processes, and
// /api/classifier doubles as the orchestrated entry point in inclusive mode.
type Server struct {
	engine       *gin.Engine
	orchestrator *query.Orchestrator
	retriever    query.RetrieverStage
	synthesizer  query.SynthesizerStage
	params       config.ParamStore
	pipeline     *index.Pipeline
	logger       *logrus.Logger
}

// Config collects the server's dependencies.
type Config struct {
	Orchestrator *query.Orchestrator
	Retriever    query.RetrieverStage
	Synthesizer  query.SynthesizerStage
	Params       config.ParamStore
	Pipeline     *index.Pipeline
	Logger       *logrus.Logger
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	s := &Server{
		orchestrator: cfg.Orchestrator,
		retriever:    cfg.Retriever,
		synthesizer:  cfg.Synthesizer,
		params:       cfg.Params,
		pipeline:     cfg.Pipeline,
		logger:       cfg.Logger,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestID())

	engine.GET("/healthz", s.health)
	api := engine.Group("/api")
	api.POST("/classifier", s.classify)
	api.POST("/retriever", s.retrieve)
	api.POST("/response", s.respond)
	api.POST("/configuration", s.configure)
	api.POST("/events", s.events)

	s.engine = engine
	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() *gin.Engine {
	return s.engine
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
