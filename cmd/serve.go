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
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/config"
	"github.com/sells-group/spatial-cli/internal/export"
	"github.com/sells-group/spatial-cli/internal/layer"
	"github.com/sells-group/spatial-cli/internal/spatial"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve analyses over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(cfg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// analysisRequest is the body of POST /v1/analyses. Config fields left out
// keep the server's configured analysis settings.
type analysisRequest struct {
	IDField     string          `json:"id_field"`
	ValueField  string          `json:"value_field"`
	Projected   bool            `json:"projected"`
	WebMercator bool            `json:"web_mercator"`
	Config      analysis.Config `json:"config"`
	Features    json.RawMessage `json:"features"`
}

func buildRouter(c *config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: c.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/analyses", func(w http.ResponseWriter, r *http.Request) {
		maxBody := int64(c.Server.MaxBodyMB) << 20
		if maxBody <= 0 {
			maxBody = 32 << 20
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)

		req := analysisRequest{Config: c.Analysis}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ValueField == "" {
			writeError(w, http.StatusBadRequest, "value_field is required")
			return
		}
		if len(req.Features) == 0 {
			writeError(w, http.StatusBadRequest, "features is required")
			return
		}

		l, err := layer.DecodeFeatureCollection(req.Features, "request", req.IDField, req.ValueField, req.Projected)
		if err == nil && req.WebMercator {
			l, err = layer.ToWebMercator(l)
		}
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}

		log := zap.L().With(zap.String("request_id", middleware.GetReqID(r.Context())))
		report, err := analysis.Run(r.Context(), l, req.Config)
		if err != nil {
			log.Warn("analysis request failed", zap.Error(err))
			writeError(w, statusFor(err), err.Error())
			return
		}
		log.Info("analysis request complete", zap.String("run_id", report.RunID), zap.Int("entities", l.Len()))

		switch r.URL.Query().Get("format") {
		case "html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_ = export.WriteReportHTML(w, report)
		case "text":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_ = export.WriteReportText(w, report)
		default:
			w.Header().Set("Content-Type", "application/json")
			_ = export.WriteJSON(w, report)
		}
	})

	return r
}

// statusFor maps analysis error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, spatial.ErrInvalidParameter), errors.Is(err, spatial.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, spatial.ErrInsufficientData), errors.Is(err, spatial.ErrDegenerateGraph):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
