package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/equity-research-cli/internal/model"
	"github.com/sells-group/equity-research-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for research requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(ctx, env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the HTTP API. Research runs execute asynchronously
// against baseCtx so they survive the submitting request.
func newRouter(baseCtx context.Context, env *pipelineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/runs", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Ticker string `json:"ticker"`
			Name   string `json:"name"`
			Focus  string `json:"focus"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Ticker == "" {
			writeError(w, http.StatusBadRequest, "ticker is required")
			return
		}

		request := model.Request{Ticker: body.Ticker, Name: body.Name, Focus: body.Focus}

		// Run research asynchronously
		go func() {
			if env.Pipeline == nil {
				return
			}
			result, err := env.Pipeline.Run(baseCtx, request)
			if err != nil {
				zap.L().Error("async research run failed",
					zap.String("ticker", request.Ticker),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("async research run complete",
				zap.String("ticker", request.Ticker),
				zap.String("run_id", result.RunID),
				zap.Int64("total_tokens", result.TotalTokens),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"ticker": body.Ticker,
		})
	})

	r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
		filter := store.RunFilter{
			Stage:  model.Stage(req.URL.Query().Get("stage")),
			Ticker: req.URL.Query().Get("ticker"),
			Limit:  50,
		}
		if limit, err := strconv.Atoi(req.URL.Query().Get("limit")); err == nil && limit > 0 {
			filter.Limit = limit
		}

		runs, err := env.Store.ListRuns(req.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list runs failed")
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		detail, err := loadRunDetail(req.Context(), env.Store, chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, detail)
	})

	r.Get("/runs/{id}/report", func(w http.ResponseWriter, req *http.Request) {
		result, err := env.Store.GetRunResult(req.Context(), chi.URLParam(req, "id"))
		if err != nil || result == nil {
			writeError(w, http.StatusNotFound, "report not available")
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(result.Report))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
