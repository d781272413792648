package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"eve-importer/internal/config"
	"eve-importer/internal/db"
	"eve-importer/internal/engine"
	"eve-importer/internal/esi"
	"eve-importer/internal/refine"
)

// Server is the HTTP API that connects the ESI client, the import scanner,
// and the compression solver. It owns no rendering: results go out as
// tabular JSON for whatever front end is attached.
type Server struct {
	mu       sync.RWMutex
	cfg      *config.Config
	esi      *esi.Client
	db       *db.DB
	importer *engine.Importer
}

// NewServer creates a Server with the given config, ESI client, and database.
func NewServer(cfg *config.Config, esiClient *esi.Client, database *db.DB) *Server {
	importer := engine.NewImporter(esiClient)
	if database != nil {
		importer.History = database
	}
	return &Server{cfg: cfg, esi: esiClient, db: database, importer: importer}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/import", s.handleImport)
	mux.HandleFunc("/api/refine", s.handleRefine)
	mux.HandleFunc("/api/refine/prices", s.handleRefinePrices)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// statusFor maps the error taxonomy to HTTP codes: caller-fixable input
// errors, upstream outages, and infeasible solves each get their own class.
func statusFor(err error) int {
	switch {
	case errors.Is(err, esi.ErrInvalidIdentifier), errors.Is(err, refine.ErrInvalidInput):
		return 400
	case errors.Is(err, refine.ErrInfeasibleBasket):
		return 422
	case errors.Is(err, esi.ErrUpstreamUnavailable):
		return 502
	default:
		return 500
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":   "ok",
		"esi":      s.esi.HealthCheck(r.Context()),
		"variants": refine.Variants(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.mu.RLock()
		defer s.mu.RUnlock()
		writeJSON(w, s.cfg)
	case "POST":
		var cfg config.Config
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, 400, "invalid json")
			return
		}
		s.mu.Lock()
		s.cfg = &cfg
		s.mu.Unlock()
		if s.db != nil {
			if err := s.db.SaveConfig(&cfg); err != nil {
				writeError(w, 500, "save config: "+err.Error())
				return
			}
		}
		writeJSON(w, map[string]string{"status": "saved"})
	default:
		writeError(w, 405, "method not allowed")
	}
}

// handleImport runs an import scan and streams progress as NDJSON, ending
// with the result table. Closing the connection cancels the run.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		writeError(w, 405, "method not allowed")
		return
	}

	s.mu.RLock()
	params := s.cfg.ImportParams()
	s.mu.RUnlock()
	// Body is optional; when present it overrides the stored settings.
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, 400, "invalid json")
			return
		}
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming not supported")
		return
	}

	log.Printf("[API] Import starting: sellRegion=%s buyRegion=%s station=%s toRegion=%v",
		params.SellRegionID, params.BuyRegionID, params.SellStationID, params.SellToRegion)
	startTime := time.Now()

	results, err := s.importer.Run(r.Context(), params, func(msg string) {
		line, _ := json.Marshal(map[string]string{"type": "progress", "message": msg})
		fmt.Fprintf(w, "%s\n", line)
		flusher.Flush()
	})
	if err != nil {
		log.Printf("[API] Import error: %v", err)
		line, _ := json.Marshal(map[string]string{"type": "error", "message": err.Error()})
		fmt.Fprintf(w, "%s\n", line)
		flusher.Flush()
		return
	}

	log.Printf("[API] Import complete: %d results in %dms",
		len(results), time.Since(startTime).Milliseconds())
	line, _ := json.Marshal(map[string]interface{}{"type": "result", "data": results, "count": len(results)})
	fmt.Fprintf(w, "%s\n", line)
	flusher.Flush()
}

// refineRequest carries one solver invocation. Costs may be supplied
// directly or fetched from the market when FetchCosts is set.
type refineRequest struct {
	Basket           map[string]int64 `json:"basket"`
	Variant          string           `json:"variant"`
	RefineRate       float64          `json:"refine_rate"`
	Costs            []float64        `json:"costs"`
	FetchCosts       bool             `json:"fetch_costs"`
	OreRegionID      string           `json:"ore_region_id"`
	OreFromBuyOrders bool             `json:"ore_from_buy_orders"`
	CostMultiplier   float64          `json:"cost_multiplier"`
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		writeError(w, 405, "method not allowed")
		return
	}
	var req refineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid json")
		return
	}

	s.mu.RLock()
	cfg := *s.cfg
	s.mu.RUnlock()
	if req.Variant == "" {
		req.Variant = cfg.OreVariant
	}
	if req.RefineRate == 0 {
		req.RefineRate = cfg.RefineRate
	}
	if req.OreRegionID == "" {
		req.OreRegionID = cfg.OreRegionID
	}
	if req.CostMultiplier == 0 {
		req.CostMultiplier = cfg.CostMultiplier
	}

	table, err := refine.LoadYieldTable(req.Variant)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}

	basket := refine.DefaultBasket(table)
	if err := basket.Merge(table, req.Basket); err != nil {
		writeError(w, 400, err.Error())
		return
	}

	costs := req.Costs
	if req.FetchCosts || len(costs) == 0 {
		costs, err = refine.SourceCosts(r.Context(), s.esi, req.OreRegionID,
			req.OreFromBuyOrders, req.CostMultiplier, table)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
	}

	result, err := refine.Solve(basket, req.RefineRate, costs, table)
	if err != nil {
		log.Printf("[API] Refine error: %v", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleRefinePrices(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		writeError(w, 405, "method not allowed")
		return
	}
	var req refineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid json")
		return
	}

	s.mu.RLock()
	cfg := *s.cfg
	s.mu.RUnlock()
	if req.Variant == "" {
		req.Variant = cfg.OreVariant
	}
	if req.OreRegionID == "" {
		req.OreRegionID = cfg.OreRegionID
	}
	if req.CostMultiplier == 0 {
		req.CostMultiplier = cfg.CostMultiplier
	}

	table, err := refine.LoadYieldTable(req.Variant)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	costs, err := refine.SourceCosts(r.Context(), s.esi, req.OreRegionID,
		req.OreFromBuyOrders, req.CostMultiplier, table)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	out := make([]map[string]interface{}, len(table.Sources))
	for i, src := range table.Sources {
		out[i] = map[string]interface{}{"name": src.Name, "type_id": src.TypeID, "price": costs[i]}
	}
	writeJSON(w, out)
}
