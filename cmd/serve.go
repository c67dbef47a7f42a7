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

	"github.com/mfg-analytics/oee-cli/internal/aggregate"
	"github.com/mfg-analytics/oee-cli/internal/model"
	"github.com/mfg-analytics/oee-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard-facing metrics API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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

// metricsRequest is the dashboard's date-range payload. Dates are
// YYYY-MM-DD with an inclusive end.
type metricsRequest struct {
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Units     []string `json:"units,omitempty"`
}

// newRouter builds the HTTP API over the given store.
func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Read-only: metrics are recomputed per request and never written back.
	r.Post("/api/metrics", func(w http.ResponseWriter, req *http.Request) {
		window, mr, ok := decodeWindow(w, req)
		if !ok {
			return
		}

		outcome, err := runAnalysis(req.Context(), st, analysisRequest{
			Window: window,
			Step:   24 * time.Hour,
			Units:  mr.Units,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		rows := make([]model.MetricRow, 0, len(outcome.Results))
		for _, res := range outcome.Results {
			rows = append(rows, res.Row())
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"metrics": rows,
			"gaps":    outcome.Gaps,
			"trend":   outcome.Summary.Trend,
		})
	})

	r.Post("/api/bottlenecks", func(w http.ResponseWriter, req *http.Request) {
		window, _, ok := decodeWindow(w, req)
		if !ok {
			return
		}

		records, err := st.ListRecords(req.Context(), store.RecordFilter{Window: &window})
		if err != nil {
			writeError(w, err)
			return
		}

		stats := aggregate.CollectUnitStats(records)
		scores := aggregate.BottleneckScores(stats)

		type bottleneckRow struct {
			UnitID string  `json:"unit_id"`
			Score  float64 `json:"bottleneck_score"`
			Level  string  `json:"bottleneck_level"`
		}
		rows := make([]bottleneckRow, 0, len(stats))
		for _, s := range stats {
			score := scores[s.UnitID]
			rows = append(rows, bottleneckRow{
				UnitID: s.UnitID,
				Score:  score,
				Level:  string(model.ClassifyBottleneck(score)),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"bottlenecks": rows})
	})

	return r
}

// decodeWindow parses the shared date-range payload, writing the error
// response itself when the payload is unusable.
func decodeWindow(w http.ResponseWriter, req *http.Request) (model.Window, metricsRequest, bool) {
	var mr metricsRequest
	if err := json.NewDecoder(req.Body).Decode(&mr); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return model.Window{}, mr, false
	}
	if mr.StartTime == "" || mr.EndTime == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_time and end_time are required"})
		return model.Window{}, mr, false
	}
	window, err := model.ParseWindow(mr.StartTime, mr.EndTime)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return model.Window{}, mr, false
	}
	return window, mr, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps pipeline errors to HTTP statuses. Insufficient data is a
// client-visible condition, not a server fault.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, model.ErrInsufficientData) {
		status = http.StatusUnprocessableEntity
	}
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
