package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the worker's operational endpoints. There is no
// interactive API; externally visible behavior lives in the broker and the
// audit store.
type Server struct{ e *echo.Echo }

func NewServer() *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	return &Server{e: e}
}

func (s *Server) Start(addr string) error            { return s.e.Start(addr) }
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
