package admin

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetbook/resilience/pkg/config"
	"github.com/fleetbook/resilience/pkg/resilience"
)

// ConnectivitySource is the view of the connectivity monitor the admin
// surface needs
type ConnectivitySource interface {
	State() resilience.ConnState
}

// Server exposes the operational/debug surface of the resilience layer:
// breaker stats, manual reset, connectivity state and metrics.
type Server struct {
	registry *resilience.Registry
	monitor  ConnectivitySource
	gatherer prometheus.Gatherer
}

// NewServer creates an admin server over the given registry and monitor.
// gatherer may be nil, in which case the default prometheus gatherer is
// used for /metrics.
func NewServer(registry *resilience.Registry, monitor ConnectivitySource, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		registry: registry,
		monitor:  monitor,
		gatherer: gatherer,
	}
}

// NewRouter creates and configures the admin router
func (s *Server) NewRouter(cfg *config.Config) *gin.Engine {
	if cfg != nil && cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware())
	router.Use(cors.Default())

	router.GET("/health", s.getHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	{
		breakers := v1.Group("/circuit-breakers")
		{
			breakers.GET("", s.listBreakers)
			breakers.GET("/:name", s.getBreaker)
			breakers.POST("/:name/reset", s.resetBreaker)
		}
		v1.GET("/connectivity", s.getConnectivity)
	}

	return router
}

// getHealth reports connectivity and a breaker summary
func (s *Server) getHealth(c *gin.Context) {
	connState := s.monitor.State()

	openBreakers := 0
	stats := s.registry.Stats()
	for _, st := range stats {
		if st.State == resilience.StateOpen {
			openBreakers++
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !connState.Online {
		status = "offline"
		code = http.StatusServiceUnavailable
	} else if openBreakers > 0 {
		status = "degraded"
	}

	c.JSON(code, gin.H{
		"status":        status,
		"online":        connState.Online,
		"transport":     connState.Transport.String(),
		"breakers":      len(stats),
		"open_breakers": openBreakers,
		"timestamp":     time.Now().UTC(),
	})
}

// listBreakers returns stats for every registered breaker
func (s *Server) listBreakers(c *gin.Context) {
	SuccessResponse(c, s.registry.Stats())
}

// getBreaker returns stats for a single breaker
func (s *Server) getBreaker(c *gin.Context) {
	name := c.Param("name")
	cb, ok := s.registry.Lookup(name)
	if !ok {
		NotFoundResponse(c, "circuit breaker not found")
		return
	}
	SuccessResponse(c, cb.Stats())
}

// resetBreaker forces a breaker closed. Manual recovery only.
func (s *Server) resetBreaker(c *gin.Context) {
	name := c.Param("name")
	cb, ok := s.registry.Lookup(name)
	if !ok {
		NotFoundResponse(c, "circuit breaker not found")
		return
	}

	cb.Reset()
	SuccessResponse(c, cb.Stats())
}

// getConnectivity returns the current reachability snapshot
func (s *Server) getConnectivity(c *gin.Context) {
	state := s.monitor.State()
	SuccessResponse(c, gin.H{
		"online":    state.Online,
		"transport": state.Transport.String(),
	})
}
