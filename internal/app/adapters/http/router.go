package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/acme/autocert"

	"streambot/internal/app/adapters/http/handlers"
	"streambot/internal/app/adapters/http/middlewares"
	"streambot/internal/app/infrastructure/config"
	"streambot/pkg/logger"
)

const (
	shutdownTimeout = 5 * time.Second
	certCacheDir    = "certs"
)

type Router struct {
	router      *gin.Engine
	handlers    *handlers.Handlers
	middlewares *middlewares.Middlewares

	log logger.Logger
	app config.App
}

func NewRouter(log logger.Logger, app config.App, h *handlers.Handlers) *Router {
	r := &Router{
		router:      gin.New(),
		handlers:    h,
		middlewares: middlewares.New(),
		log:         log,
		app:         app,
	}
	r.router.Use(gin.Recovery())

	r.router.GET("/healthz", r.handlers.HealthHandler)

	// Without a token only the health check is exposed.
	if app.AuthToken == "" {
		log.Warn("app.auth_token is empty, /metrics, /activity and pprof are disabled")
		return r
	}

	basic := gin.BasicAuth(gin.Accounts{"admin": app.AuthToken})
	pprof.Register(r.router.Group("/", basic))
	r.router.GET("/metrics", basic, gin.WrapH(promhttp.Handler()))
	r.router.GET("/activity", r.middlewares.Auth(app.AuthToken), r.handlers.ActivityHandler)

	return r
}

func (r *Router) Handler() http.Handler {
	return r.router
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
// With app.cert_domains set the server speaks TLS with certificates from ACME.
func (r *Router) Run(ctx context.Context) error {
	srv := r.newServer(r.app.HTTPAddr, r.router)

	listen := srv.ListenAndServe
	if len(r.app.CertDomains) > 0 {
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(r.app.CertDomains...),
			Cache:      autocert.DirCache(certCacheDir),
		}
		srv.TLSConfig = m.TLSConfig()
		listen = func() error { return srv.ListenAndServeTLS("", "") }
	}

	errCh := make(chan error, 1)
	go func() {
		r.log.Info("HTTP server listening", slog.String("addr", srv.Addr), slog.Bool("tls", srv.TLSConfig != nil))
		errCh <- listen()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (r *Router) newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}
