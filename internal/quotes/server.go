package quotes

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// ServerOpts configures the quote HTTP API.
type ServerOpts struct {
	// Latency is added to every quotes request so clients can exercise
	// cancellation against a real network call.
	Latency time.Duration
	Logger  logrus.FieldLogger
}

// NewServer returns an Echo instance serving GET /api/quotes/top and /healthz.
func NewServer(src Source, opts ServerOpts) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	Register(e, src, opts)
	return e
}

// Register wires the quote routes on an existing Echo instance.
func Register(e *echo.Echo, src Source, opts ServerOpts) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	e.GET(topQuotesPath, getTopQuotes(src, opts.Latency, log))
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
}

func getTopQuotes(src Source, latency time.Duration, log logrus.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		start := time.Now()

		qs, err := Slow{Source: src, Delay: latency}.TopQuotes(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Client went away; nobody is listening for a response.
				log.WithField("elapsed", time.Since(start)).Info("quotes request aborted by client")
				return nil
			}
			log.WithError(err).Error("fetch top quotes")
			return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
		}
		log.WithFields(logrus.Fields{
			"count":   len(qs),
			"elapsed": time.Since(start),
		}).Debug("served top quotes")
		return c.JSON(http.StatusOK, topQuotesResponse{Data: qs})
	}
}
