// Package http provides the HTTP server for the claims API.
package http

import (
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/config"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/service"
	v1 "github.com/yassinsws/microsoft-agent-hackathon/internal/transport/http/v1"
)

var devOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// NewServer creates and configures the HTTP server.
func NewServer(svc *service.Service, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(corsConfig(cfg)))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: cfg.RequestTimeout,
			// Streams run as long as the client stays connected.
			Skipper: func(c echo.Context) bool {
				return c.Path() == v1.StreamPath
			},
		}))
	}

	v1.NewHandler(svc, allowOrigin(cfg)).RegisterRoutes(e)
	return e
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	c := middleware.CORSConfig{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
	}
	switch {
	case cfg.AllowAllCORS:
		c.AllowOrigins = []string{"*"}
		c.AllowCredentials = false
	case cfg.FrontendOrigin != "":
		c.AllowOrigins = []string{cfg.FrontendOrigin}
	default:
		c.AllowOriginFunc = allowDevOrigin
	}
	return c
}

// allowOrigin applies the CORS origin rule to websocket handshakes, which
// browsers do not subject to CORS.
func allowOrigin(cfg *config.Config) func(origin string) bool {
	switch {
	case cfg.AllowAllCORS:
		return func(string) bool { return true }
	case cfg.FrontendOrigin != "":
		return func(origin string) bool { return origin == cfg.FrontendOrigin }
	default:
		return func(origin string) bool {
			ok, _ := allowDevOrigin(origin)
			return ok
		}
	}
}

// allowDevOrigin accepts local development servers and Azure Container Apps
// hosts.
func allowDevOrigin(origin string) (bool, error) {
	for _, o := range devOrigins {
		if origin == o {
			return true, nil
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false, nil
	}
	return u.Scheme == "https" && strings.HasSuffix(u.Hostname(), ".azurecontainerapps.io"), nil
}
