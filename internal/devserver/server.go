// Package devserver is a development stand-in for the hosted backend.
//
// It serves the same collection-insert API the sync engine's HTTP client
// speaks, backed by in-memory collections. Useful for local development and
// integration tests; it is not a production datastore.
package devserver

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Server holds the in-memory collections and auth configuration.
type Server struct {
	authToken string

	mu          sync.Mutex
	collections map[string][]map[string]any
}

// New creates a Server. An empty authToken disables auth, which is the
// common local-development setup.
func New(authToken string) *Server {
	return &Server{
		authToken:   authToken,
		collections: make(map[string][]map[string]any),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.Use(s.auth())
	{
		v1.POST("/collections/:collection/records", s.insertRecord)
		v1.GET("/collections/:collection/records", s.listRecords)
	}

	return r
}

// Run serves the API on addr until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

// auth enforces the bearer token when one is configured.
func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authToken == "" {
			c.Next()
			return
		}
		h := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(strings.ToLower(h), "bearer ") || strings.TrimSpace(h[7:]) != s.authToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) insertRecord(c *gin.Context) {
	collection := c.Param("collection")

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	record := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		record[k] = v
	}
	record["id"] = uuid.NewString()

	s.mu.Lock()
	s.collections[collection] = append(s.collections[collection], record)
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"data": record})
}

func (s *Server) listRecords(c *gin.Context) {
	collection := c.Param("collection")

	s.mu.Lock()
	stored := s.collections[collection]
	records := make([]map[string]any, len(stored))
	copy(records, stored)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"data": records})
}
