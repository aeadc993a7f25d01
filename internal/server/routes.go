package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/dgtctl/internal/auth"
	"github.com/danmuck/dgtctl/internal/dgt"
	"github.com/danmuck/dgtctl/internal/protocol/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const component = "dgtctl-status"

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.started).String(),
			"component": component,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		state := s.src.State()
		status := http.StatusOK
		if state != dgt.StateConnected {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready": state == dgt.StateConnected,
			"state": state.String(),
			"port":  s.src.Port(),
		})
	})

	guarded := s.router.Group("/")
	if s.cfg.Token != "" {
		guarded.Use(requireToken(auth.StaticToken{Token: s.cfg.Token}))
	}

	guarded.GET("/metrics", gin.WrapH(promhttp.Handler()))

	guarded.GET("/board", func(c *gin.Context) {
		if s.src.State() != dgt.StateConnected {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": dgt.ErrNotConnected.Error()})
			return
		}
		b := s.src.Board()
		body := gin.H{
			"port":  s.src.Port(),
			"fen":   b.FEN(),
			"board": b.String(),
		}
		if clk, ok := s.src.Clock(); ok {
			body["clock"] = gin.H{
				"left":    clk.LeftTime.String(),
				"right":   clk.RightTime.String(),
				"left_up": clk.LeftUp,
			}
		}
		c.JSON(http.StatusOK, body)
	})

	guarded.GET("/version", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.QueryTimeout)
		defer cancel()
		v, err := s.src.GetVersion(ctx)
		if err != nil {
			c.JSON(queryStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"port":    s.src.Port(),
			"version": v.String(),
		})
	})
}

func queryStatus(err error) int {
	switch {
	case errors.Is(err, dgt.ErrNotConnected),
		errors.Is(err, dgt.ErrClosed),
		errors.Is(err, session.ErrDisconnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrQueryTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, session.ErrBusy):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}
