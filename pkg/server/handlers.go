package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/andrew/topic-rag/pkg/models"
	"github.com/andrew/topic-rag/pkg/query"
)

type classifyRequest struct {
	Message       string `json:"message" binding:"required"`
	OperationMode string `json:"operation_mode"`
}

// classify is the orchestrated entry point. In the default classify-only mode
// it returns the question and its topic; in inclusive mode it runs the full
// chain and returns the orchestrator's result.
func (s *Server) classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	mode := models.ParseMode(req.OperationMode)
	result, err := s.orchestrator.Answer(c.Request.Context(), req.Message, mode)
	if err != nil {
		s.log(c).WithError(err).Error("classification failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
		return
	}

	if mode != models.ModeInclusive {
		c.JSON(http.StatusOK, gin.H{"message": result.Question, "index": result.Topic})
		return
	}
	if result.Status == query.StatusFailed {
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

type retrieveRequest struct {
	Message string `json:"message" binding:"required"`
	Index   string `json:"index" binding:"required"`
}

func (s *Server) retrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	chunks, err := s.retriever.Retrieve(c.Request.Context(), req.Message, req.Index)
	if err != nil {
		s.log(c).WithError(err).WithField("index", req.Index).Error("retrieval failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
		return
	}
	if chunks == nil {
		chunks = []models.RetrievedChunk{}
	}
	c.JSON(http.StatusOK, gin.H{"response": chunks})
}

type respondRequest struct {
	Message  string                  `json:"message" binding:"required"`
	Response []models.RetrievedChunk `json:"response"`
}

func (s *Server) respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	result, err := s.synthesizer.Synthesize(c.Request.Context(), req.Message, req.Response)
	if err != nil {
		s.log(c).WithError(err).Error("synthesis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, result)
}

type configureRequest struct {
	Parameters map[string]any `json:"parameters"`
}

// configure writes pipeline parameters to the store. Running processes read
// their settings once at startup, so changes take effect on the next start.
func (s *Server) configure(c *gin.Context) {
	var req configureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if len(req.Parameters) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No parameters found in the request body"})
		return
	}

	for key, value := range req.Parameters {
		if err := s.params.Put(c.Request.Context(), key, fmt.Sprint(value)); err != nil {
			s.log(c).WithError(err).WithField("parameter", key).Error("storing parameter failed")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Parameters stored successfully"})
}

// events accepts a storage notification batch and feeds it through the
// indexing pipeline, returning one outcome per document event.
func (s *Server) events(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	batch, err := models.DecodeStorageEvents(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	outcomes := s.pipeline.ProcessBatch(c.Request.Context(), batch)
	c.JSON(http.StatusOK, outcomes)
}

func (s *Server) log(c *gin.Context) *logrus.Entry {
	return s.logger.WithField("request_id", c.GetString("request_id"))
}
