// Package router configures HTTP routes for the predictor's HTTP API.
//
// Routes configured:
//   - POST /predict - Predict traffic volume for one set of conditions
//   - GET /model - Metadata of the current model
//   - GET /dataset/summary - Value ranges and labels of the loaded dataset
//   - GET /traffic/day?year=&month=&day= - Observed rows of one calendar day
//   - GET /healthz - Liveness (always 200 OK)
//   - GET /readyz - Readiness (200 once a model is available)
//   - GET /metrics - Prometheus metrics endpoint
//
// /predict takes the ten schema fields as a flat JSON object. Schema
// mismatches answer 400 and a missing model answers 503.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/trafficcast/cmd/predictor/metrics"
	"github.com/HatiCode/trafficcast/pkg/dataset"
	"github.com/HatiCode/trafficcast/pkg/features"
	"github.com/HatiCode/trafficcast/pkg/httpx"
	"github.com/HatiCode/trafficcast/pkg/models"
	"github.com/HatiCode/trafficcast/pkg/session"
)

const maxBodyBytes = 1 << 16

// PredictResponse is the body of a successful POST /predict.
type PredictResponse struct {
	TrafficVolume float64                          `json:"trafficVolume"`
	ModelID       string                           `json:"modelId"`
	Unseen        []features.UnseenCategoryWarning `json:"unseen,omitempty"`
}

// ModelResponse is the body of GET /model.
type ModelResponse struct {
	ID         string              `json:"id"`
	TrainedAt  string              `json:"trainedAt"`
	Regressor  string              `json:"regressor"`
	Params     models.Params       `json:"params"`
	Schema     features.Schema     `json:"schema"`
	Target     models.TargetStats  `json:"target"`
	Categories map[string][]string `json:"categories"`
}

// DayPoint is one observed hour in GET /traffic/day.
type DayPoint struct {
	Time          string  `json:"time"`
	Hour          int     `json:"hour"`
	TrafficVolume *int64  `json:"trafficVolume"`
	Temp          float64 `json:"temp"`
	WeatherMain   string  `json:"weatherMain"`
	Holiday       string  `json:"holiday"`
}

// DayResponse is the body of GET /traffic/day.
type DayResponse struct {
	Date      string     `json:"date"`
	DayOfWeek int        `json:"dayofweek"`
	Points    []DayPoint `json:"points"`
}

// SetupRoutes configures HTTP endpoints for the predictor.
func SetupRoutes(sess *session.Session, m *metrics.Metrics, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", httpx.HealthHandler())
	mux.Handle("GET /readyz", httpx.HealthHandlerWithCheck(func() error {
		if !sess.Ready() {
			return models.ErrModelUnavailable
		}
		return nil
	}))

	mux.HandleFunc("POST /predict", handlePredict(sess, m, logger))
	mux.HandleFunc("GET /model", handleModel(sess))
	mux.HandleFunc("GET /dataset/summary", handleSummary(sess))
	mux.HandleFunc("GET /traffic/day", handleDay(sess))

	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func handlePredict(sess *session.Session, m *metrics.Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var raw map[string]any
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
			m.RecordPredict(time.Since(start).Seconds(), metrics.OutcomeBadInput)
			httpx.WriteErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
			return
		}

		in, err := features.DecodeInput(raw)
		if err != nil {
			m.RecordPredict(time.Since(start).Seconds(), metrics.OutcomeBadInput)
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		model, err := sess.Model()
		if err != nil {
			m.RecordPredict(time.Since(start).Seconds(), metrics.OutcomeUnavailable)
			httpx.WriteError(w, http.StatusServiceUnavailable, err)
			return
		}

		pred, err := model.PredictDetailed(in)
		switch {
		case errors.Is(err, features.ErrSchemaMismatch):
			m.RecordPredict(time.Since(start).Seconds(), metrics.OutcomeBadInput)
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		case err != nil:
			logger.Error("prediction failed", "model_id", model.ID(), "error", err)
			m.RecordError("model", "predict_failed")
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		for _, u := range pred.Unseen {
			logger.Warn("unseen category", "feature", u.Feature, "value", u.Value, "model_id", model.ID())
			m.RecordUnseen(u.Feature)
		}
		m.RecordPredict(time.Since(start).Seconds(), metrics.OutcomeOK)

		_ = httpx.WriteJSON(w, http.StatusOK, PredictResponse{
			TrafficVolume: pred.Value,
			ModelID:       model.ID(),
			Unseen:        pred.Unseen,
		})
	}
}

func handleModel(sess *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		model, err := sess.Model()
		if err != nil {
			httpx.WriteError(w, http.StatusServiceUnavailable, err)
			return
		}

		schema := model.Schema()
		cats := make(map[string][]string, len(schema.Categorical))
		for _, name := range schema.Categorical {
			cats[name] = model.Encoder().Categories(name)
		}

		_ = httpx.WriteJSON(w, http.StatusOK, ModelResponse{
			ID:         model.ID(),
			TrainedAt:  model.TrainedAt().UTC().Format(time.RFC3339),
			Regressor:  model.RegressorName(),
			Params:     model.Params(),
			Schema:     schema,
			Target:     model.Target(),
			Categories: cats,
		})
	}
}

func handleSummary(sess *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		table, ok := sess.Table()
		if !ok {
			httpx.WriteErrorMessage(w, http.StatusServiceUnavailable, "dataset not loaded")
			return
		}
		_ = httpx.WriteJSON(w, http.StatusOK, dataset.Summarize(table))
	}
}

func handleDay(sess *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		year, err := intParam(q.Get("year"), "year", 1, 9999)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}
		month, err := intParam(q.Get("month"), "month", 1, 12)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}
		day, err := intParam(q.Get("day"), "day", 1, 31)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		table, ok := sess.Table()
		if !ok {
			httpx.WriteErrorMessage(w, http.StatusServiceUnavailable, "dataset not loaded")
			return
		}

		rows := dataset.Day(table, year, time.Month(month), day)
		points := make([]DayPoint, 0, len(rows))
		for _, rec := range rows {
			p := DayPoint{
				Time:        rec.Timestamp.Time.Format(time.RFC3339),
				Hour:        rec.Timestamp.Time.Hour(),
				Temp:        rec.Temp,
				WeatherMain: rec.WeatherMain.String,
				Holiday:     rec.Holiday.String,
			}
			if rec.TrafficVolume.Valid {
				v := rec.TrafficVolume.Int64
				p.TrafficVolume = &v
			}
			points = append(points, p)
		}

		_ = httpx.WriteJSON(w, http.StatusOK, DayResponse{
			Date:      time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format(time.DateOnly),
			DayOfWeek: features.DayOfWeekOf(year, time.Month(month), day),
			Points:    points,
		})
	}
}

func intParam(s, name string, lo, hi int) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("%s parameter required", name)
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be an integer in [%d, %d]", name, lo, hi)
	}
	return v, nil
}
