package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stardustx8/legalchat/internal/model"
)

// asker is the handler's view of the pipeline, narrowed for testability.
type asker interface {
	Ask(ctx context.Context, question string) (*model.Answer, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		orch, err := initOrchestrator(store)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(orch),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("http server listening", zap.String("addr", srv.Addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			zap.L().Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newRouter(pipeline asker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/ask", handleAsk(pipeline))
	r.Post("/api/ask", handleAsk(pipeline))
	return r
}

func handleAsk(pipeline asker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Liveness probe bypasses the pipeline entirely.
		if r.URL.Query().Has("ping") {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}

		question := r.URL.Query().Get("question")
		if question == "" && r.Body != nil {
			var body struct {
				Question string `json:"question"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				question = body.Question
			}
		}
		if question == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "pass a question via the 'question' query parameter or JSON body field",
			})
			return
		}

		ans, err := pipeline.Ask(r.Context(), question)
		if err != nil {
			errorID := uuid.New().String()
			zap.L().Error("ask failed",
				zap.String("error_id", errorID),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":    "internal error answering the question",
				"error_id": errorID,
			})
			return
		}
		writeJSON(w, http.StatusOK, ans)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
