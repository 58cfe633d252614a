package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/zoravur/scorecast/db"
	"github.com/zoravur/scorecast/internal/api"
	"github.com/zoravur/scorecast/internal/config"
	"github.com/zoravur/scorecast/internal/live"
	"github.com/zoravur/scorecast/internal/service"
	"github.com/zoravur/scorecast/internal/store"
)

type Server struct {
	httpServer *http.Server
	Registry   *live.Registry
	Router     *live.Router
	DB         *sql.DB
}

func NewServer(cfg *config.Config) (*Server, error) {
	pool, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	reg := live.NewRegistry()
	router := live.NewRouter(reg, zap.L().Named("broadcast"))
	svc := service.New(store.New(pool), router, zap.L().Named("service"))

	mux := api.SetupRoutes(svc, reg)

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.Addr,
			Handler: mux,
		},
		Registry: reg,
		Router:   router,
		DB:       pool,
	}, nil
}

func (s *Server) Run() error {
	if err := db.Migrate(s.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	go func() {
		zap.L().Info("listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("shutting down")
	return s.Shutdown()
}

// Shutdown closes every live connection, drains the HTTP server, and closes
// the DB pool.
func (s *Server) Shutdown() error {
	for _, c := range s.Registry.Drain() {
		_ = c.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)

	if cerr := s.DB.Close(); err == nil {
		err = cerr
	}
	return err
}
