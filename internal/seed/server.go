package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/postconfctl/internal/auth"
	"github.com/danmuck/postconfctl/internal/observability"
	"github.com/danmuck/postconfctl/internal/postconf"
	"github.com/danmuck/postconfctl/internal/seeds"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

var ErrSeedNotFound = errors.New("seed not found")

// Agent serves registered seeds over HTTP. A non-nil Auth guards the action
// route.
type Agent struct {
	ID       string          `json:"id"`
	Addr     string          `json:"addr"`
	Appeared time.Time       `json:"appeared"`
	Registry *seeds.Registry `json:"-"`
	Auth     auth.Validator  `json:"-"`

	router *gin.Engine
}

func Appear(id, addr string, corsOrigins []string, registry *seeds.Registry) *Agent {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetrics())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	if registry == nil {
		registry = seeds.NewRegistry()
	}
	return &Agent{
		ID:       id,
		Addr:     addr,
		Appeared: time.Now(),
		Registry: registry,
		router:   r,
	}
}

func (a *Agent) HTTPRouter() *gin.Engine {
	return a.router
}

func (a *Agent) RegisterRoutes() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(a.Appeared).String(),
			"service": a.ID,
			"version": version,
		})
	})

	a.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"seeds":   a.Registry.Len(),
			"service": a.ID,
			"version": version,
		})
	})

	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router.GET("/seeds", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"seeds": a.Registry.List()})
	})

	actions := a.router.Group("/seeds/:seed/actions")
	if a.Auth != nil {
		actions.Use(auth.RequireToken(a.Auth))
	}
	actions.POST("/:action", func(c *gin.Context) {
		seedID := c.Param("seed")
		action := c.Param("action")

		args, err := bindArgs(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "msg": err.Error()})
			return
		}

		res, err := a.ExecuteAction(c.Request.Context(), seedID, action, args)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"status": "error", "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	})
}

// ExecuteAction resolves a seed and runs one action on it.
func (a *Agent) ExecuteAction(ctx context.Context, seedID, action string, args map[string]string) (seeds.SeedResult, error) {
	s, ok := a.Registry.Resolve(seedID)
	if !ok || s == nil {
		return seeds.SeedResult{}, fmt.Errorf("%w: %s", ErrSeedNotFound, seedID)
	}

	res, err := s.Execute(ctx, action, args)
	if err != nil {
		log.Error().
			Str("agent", a.ID).
			Str("seed", seedID).
			Str("action", action).
			Str("param", args["name"]).
			Err(err).
			Msg("seed action failed")
		return res, err
	}

	log.Info().
		Str("agent", a.ID).
		Str("seed", seedID).
		Str("action", action).
		Str("param", args["name"]).
		Bool("changed", res.Changed).
		Msg("seed action executed")
	return res, nil
}

// Serve listens on Addr until ctx is cancelled.
func (a *Agent) Serve(ctx context.Context) error {
	a.RegisterRoutes()
	srv := &http.Server{
		Addr:              a.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("agent", a.ID).Str("addr", a.Addr).Msg("agent listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// bindArgs accepts a flat JSON object. Scalars are stringified so
// {"check_mode": true} equals {"check_mode": "true"}; numbers keep their
// literal JSON text, so 51200000 stays "51200000".
func bindArgs(c *gin.Context) (map[string]string, error) {
	args := make(map[string]string)
	body, err := c.GetRawData()
	if err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return args, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			args[k] = ""
		case string:
			args[k] = val
		case json.Number:
			args[k] = val.String()
		case bool:
			args[k] = strconv.FormatBool(val)
		default:
			return nil, fmt.Errorf("invalid request body: %q must be a scalar", k)
		}
	}
	return args, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSeedNotFound), errors.Is(err, seeds.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, seeds.ErrInvalidArgs),
		errors.Is(err, postconf.ErrUnknownParameter),
		errors.Is(err, postconf.ErrInvalidIntent):
		return http.StatusBadRequest
	case errors.Is(err, postconf.ErrQuery), errors.Is(err, postconf.ErrMutationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
