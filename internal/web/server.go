// Package web exposes the analysis service over HTTP. Every analysis
// endpoint takes the output format as the final path segment and relays the
// rendered payload with its content type and a suggested filename.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jrysztv/binance-endpoints/internal/domain"
	"github.com/jrysztv/binance-endpoints/internal/render"
)

const serviceVersion = "1.0.0"

// analysisProvider is the slice of the analyzer the server needs.
type analysisProvider interface {
	MarketStatistics(ctx context.Context, symbols []string, includeVolume bool) (domain.Value, error)
	TechnicalAnalysis(ctx context.Context, symbol, interval string, limit int) (domain.Value, error)
	CorrelationAnalysis(ctx context.Context, symbols []string, days int, includeClusters bool) (domain.Value, error)
	LiquidityAnalysis(ctx context.Context, symbol string, depthLimit int, includeLevels bool) (domain.Value, error)
}

// Server routes analysis requests to the analyzer and renders the result
// trees in the requested format.
type Server struct {
	addr     string
	analyzer analysisProvider
	engine   *render.Engine
	logger   *zap.Logger
}

// NewServer creates a server listening on addr once started.
func NewServer(addr string, analyzer analysisProvider, engine *render.Engine, logger *zap.Logger) *Server {
	return &Server{addr: addr, analyzer: analyzer, engine: engine, logger: logger}
}

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleOverview).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/market/statistics/{format}", s.handleMarketStatistics).Methods(http.MethodGet)
	api.HandleFunc("/analysis/technical/{symbol}/{format}", s.handleTechnicalAnalysis).Methods(http.MethodGet)
	api.HandleFunc("/analysis/correlation/{format}", s.handleCorrelationAnalysis).Methods(http.MethodGet)
	api.HandleFunc("/market/liquidity/{symbol}/{format}", s.handleLiquidityAnalysis).Methods(http.MethodGet)
	api.HandleFunc("/charts/{analysis_type}", s.handleChart).Methods(http.MethodGet)
	return r
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("web server listening", zap.String("addr", s.addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "binance-endpoints",
		"version":   serviceVersion,
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Binance market analysis service",
		"version": serviceVersion,
		"formats": []string{"json", "csv", "html", "xml", "chart"},
		"endpoints": map[string]string{
			"statistics":  "/api/v1/market/statistics/{format}",
			"technical":   "/api/v1/analysis/technical/{symbol}/{format}",
			"correlation": "/api/v1/analysis/correlation/{format}",
			"liquidity":   "/api/v1/market/liquidity/{symbol}/{format}",
			"charts":      "/api/v1/charts/{analysis_type}",
		},
		"health": "/health",
	})
}

func (s *Server) handleMarketStatistics(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(mux.Vars(r)["format"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	symbols := querySymbols(r)
	includeVolume := queryBool(r, "include_volume", true)

	tree, err := s.analyzer.MarketStatistics(r.Context(), symbols, includeVolume)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.renderTree(w, tree, format, "market_statistics")
}

func (s *Server) handleTechnicalAnalysis(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	format, err := render.ParseFormat(vars["format"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	symbol := strings.ToUpper(vars["symbol"])
	interval := queryString(r, "interval", "1h")
	limit := queryInt(r, "limit", 100)

	tree, err := s.analyzer.TechnicalAnalysis(r.Context(), symbol, interval, limit)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.renderTree(w, tree, format, symbol+"_technical_analysis")
}

func (s *Server) handleCorrelationAnalysis(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(mux.Vars(r)["format"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	symbols := querySymbols(r)
	days := queryInt(r, "days", 30)
	includeClusters := queryBool(r, "include_clusters", true)

	tree, err := s.analyzer.CorrelationAnalysis(r.Context(), symbols, days, includeClusters)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.renderTree(w, tree, format, "correlation_analysis")
}

func (s *Server) handleLiquidityAnalysis(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	format, err := render.ParseFormat(vars["format"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	symbol := strings.ToUpper(vars["symbol"])
	depthLimit := queryInt(r, "depth_limit", 100)
	includeLevels := queryBool(r, "include_levels", true)

	tree, err := s.analyzer.LiquidityAnalysis(r.Context(), symbol, depthLimit, includeLevels)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.renderTree(w, tree, format, symbol+"_liquidity_analysis")
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	analysisType := mux.Vars(r)["analysis_type"]
	symbol := strings.ToUpper(queryString(r, "symbol", ""))

	var (
		tree domain.Value
		err  error
	)
	switch analysisType {
	case "market":
		tree, err = s.analyzer.MarketStatistics(r.Context(), querySymbols(r), true)
	case "technical":
		if symbol == "" {
			s.writeError(w, http.StatusBadRequest, errors.New("symbol required for technical analysis"))
			return
		}
		tree, err = s.analyzer.TechnicalAnalysis(r.Context(), symbol, queryString(r, "interval", "1h"), queryInt(r, "limit", 100))
	case "correlation":
		tree, err = s.analyzer.CorrelationAnalysis(r.Context(), querySymbols(r), queryInt(r, "days", 30), true)
	case "liquidity":
		if symbol == "" {
			s.writeError(w, http.StatusBadRequest, errors.New("symbol required for liquidity analysis"))
			return
		}
		tree, err = s.analyzer.LiquidityAnalysis(r.Context(), symbol, queryInt(r, "depth_limit", 100), true)
	default:
		s.writeError(w, http.StatusBadRequest,
			errors.Errorf("invalid analysis type %q, use: market, technical, correlation, liquidity", analysisType))
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.renderTree(w, tree, render.FormatChart, analysisType+"_chart")
}

func (s *Server) renderTree(w http.ResponseWriter, tree domain.Value, format render.Format, baseName string) {
	out, err := s.engine.Render(tree, format)
	if err != nil {
		if errors.Is(err, render.ErrUnsupportedFormat) {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%s.%s",
		disposition(format), baseName, extension(format)))
	if _, err := w.Write(out.Payload); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func disposition(format render.Format) string {
	switch format {
	case render.FormatCSV, render.FormatXML:
		return "attachment"
	default:
		return "inline"
	}
}

func extension(format render.Format) string {
	if format == render.FormatChart {
		return "png"
	}
	return string(format)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func querySymbols(r *http.Request) []string {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			symbols = append(symbols, strings.ToUpper(p))
		}
	}
	return symbols
}

func queryString(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func queryBool(r *http.Request, key string, fallback bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
