package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Faultbox/vmap/internal/collision"
	"github.com/Faultbox/vmap/internal/config"
	"github.com/Faultbox/vmap/internal/logger"
	"github.com/Faultbox/vmap/internal/modelcache"
	"github.com/Faultbox/vmap/pkg/math"
)

const requestIDHeader = "X-Request-ID"

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
		fileCfg.JSON = cfg.Logging.JSON
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	log := logger.Named("serve")
	log.Info("=== VMap query service ===", zap.String("vmaps", cfg.Data.VMapsDir))

	sc := loadScene(cfg, log)
	defer sc.release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go rebalance(ctx, sc.tree, cfg.Collision.RebalanceInterval)

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      newServer(cfg, sc.tree, sc.cache, log).router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
		return err
	}
	log.Info("stopped")
	return nil
}

// rebalance drives the tree's rebuild timer until ctx is done.
func rebalance(ctx context.Context, tree *collision.Tree, period time.Duration) {
	if period <= 0 {
		period = collision.DefaultRebalancePeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			tree.Update(now.Sub(last))
			last = now
		}
	}
}

// server answers collision queries over HTTP.
type server struct {
	cfg   *config.Config
	tree  *collision.Tree
	cache *modelcache.Cache
	log   *zap.Logger
}

func newServer(cfg *config.Config, tree *collision.Tree, cache *modelcache.Cache, log *zap.Logger) *server {
	return &server{cfg: cfg, tree: tree, cache: cache, log: log}
}

func (s *server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID)

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/los", s.handleLOS).Methods(http.MethodGet)
	api.HandleFunc("/height", s.handleHeight).Methods(http.MethodGet)
	api.HandleFunc("/area", s.handleArea).Methods(http.MethodGet)
	api.HandleFunc("/liquid", s.handleLiquid).Methods(http.MethodGet)
	api.HandleFunc("/models", s.handleModels).Methods(http.MethodGet)
	return r
}

// requestID tags the request and its log line with an id, reusing the
// caller's id when present.
func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Duration("took", time.Since(start)))
	})
}

type losResponse struct {
	Visible bool `json:"visible"`
}

type heightResponse struct {
	// Height is null when no ground was found.
	Height *float32 `json:"height"`
}

type areaResponse struct {
	GroundZ   float32 `json:"ground_z"`
	RootID    uint32  `json:"root_id"`
	GroupID   uint32  `json:"group_id"`
	MogpFlags uint32  `json:"mogp_flags"`
	AdtID     uint16  `json:"adt_id"`
	NameSetID uint32  `json:"name_set_id"`
}

type liquidResponse struct {
	Level   float32 `json:"level"`
	Type    uint32  `json:"type"`
	GroundZ float32 `json:"ground_z"`
}

type modelsResponse struct {
	Placements int                `json:"placements"`
	Loads      uint64             `json:"loads"`
	Models     []modelcache.Entry `json:"models"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleLOS(w http.ResponseWriter, r *http.Request) {
	q := queryParams{r: r}
	a := q.vec("x1", "y1", "z1")
	b := q.vec("x2", "y2", "z2")
	f := q.filter()
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err)
		return
	}

	visible := true
	if s.cfg.Collision.EnableLineOfSight {
		visible = s.tree.IsInLineOfSight(a, b, f)
	}
	writeJSON(w, http.StatusOK, losResponse{Visible: visible})
}

func (s *server) handleHeight(w http.ResponseWriter, r *http.Request) {
	q := queryParams{r: r}
	pos := q.vec("x", "y", "z")
	maxDist := q.float("max", s.cfg.Collision.MaxSearchDistance)
	f := q.filter()
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err)
		return
	}

	var resp heightResponse
	if s.cfg.Collision.EnableHeight {
		if h := s.tree.GetHeight(pos, maxDist, f); h > math.NegInf() {
			resp.Height = &h
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleArea(w http.ResponseWriter, r *http.Request) {
	q := queryParams{r: r}
	pos := q.vec("x", "y", "z")
	f := q.filter()
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err)
		return
	}

	info, ok := s.tree.GetAreaInfo(pos, f)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no area"))
		return
	}
	writeJSON(w, http.StatusOK, areaResponse{
		GroundZ:   info.GroundZ,
		RootID:    info.RootID,
		GroupID:   info.GroupID,
		MogpFlags: info.MogpFlags,
		AdtID:     info.AdtID,
		NameSetID: info.NameSetID,
	})
}

func (s *server) handleLiquid(w http.ResponseWriter, r *http.Request) {
	q := queryParams{r: r}
	pos := q.vec("x", "y", "z")
	f := q.filter()
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err)
		return
	}

	liquid, ok := s.tree.GetLiquidLevel(pos, f)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no liquid"))
		return
	}
	writeJSON(w, http.StatusOK, liquidResponse(liquid))
}

func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, modelsResponse{
		Placements: s.tree.Size(),
		Loads:      s.cache.Loads(),
		Models:     s.cache.Entries(),
	})
}

// queryParams parses numeric query parameters, keeping the first error.
type queryParams struct {
	r   *http.Request
	err error
}

func (q *queryParams) parse(name string, required bool, def float64, bits int) float64 {
	if q.err != nil {
		return def
	}
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		if required {
			q.err = fmt.Errorf("missing parameter %q", name)
		}
		return def
	}
	var v float64
	var err error
	if bits == 0 {
		var u uint64
		u, err = strconv.ParseUint(raw, 0, 32)
		v = float64(u)
	} else {
		v, err = strconv.ParseFloat(raw, bits)
	}
	if err != nil {
		q.err = fmt.Errorf("bad parameter %q: %q", name, raw)
		return def
	}
	return v
}

func (q *queryParams) float(name string, def float32) float32 {
	return float32(q.parse(name, false, float64(def), 32))
}

func (q *queryParams) vec(x, y, z string) math.Vec3 {
	v := math.Vec3{
		X: float32(q.parse(x, true, 0, 32)),
		Y: float32(q.parse(y, true, 0, 32)),
		Z: float32(q.parse(z, true, 0, 32)),
	}
	if q.err == nil && !v.IsFinite() {
		q.err = fmt.Errorf("position %s,%s,%s is not finite", x, y, z)
	}
	return v
}

// filter reads the optional phase mask; all phases by default.
func (q *queryParams) filter() collision.Filter {
	f := collision.DefaultFilter
	f.PhaseMask = uint32(q.parse("phase", false, float64(collision.PhaseAll), 0))
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
