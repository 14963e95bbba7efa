package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aetherforge/gacha-engine/internal/config"
	"github.com/aetherforge/gacha-engine/internal/engine"
	"github.com/aetherforge/gacha-engine/internal/pool"
	"github.com/aetherforge/gacha-engine/internal/pricing"
	"github.com/aetherforge/gacha-engine/internal/storage/postgres"
	"github.com/aetherforge/gacha-engine/internal/storage/sqlite"
)

type pullReq struct {
	UserID string `json:"user_id"`
	PoolID string `json:"pool_id"`
	Count  int    `json:"count"`
}

type pullItem struct {
	RewardID   string `json:"reward_id"`
	Rarity     string `json:"rarity"`
	PullNumber int    `json:"pull_number"`
	IsPity     bool   `json:"is_pity"`
	CostPaid   int64  `json:"cost_paid"`
}

type pullResp struct {
	Pulls       []pullItem `json:"pulls,omitempty"`
	AmountSpent int64      `json:"amount_spent,omitempty"`
	PityTop     int        `json:"pity_top,omitempty"`
	PityRare    int        `json:"pity_rare,omitempty"`
	Err         string     `json:"err,omitempty"`
}

type historyResp struct {
	Records []historyItem `json:"records"`
	HasMore bool          `json:"has_more"`
	Err     string        `json:"err,omitempty"`
}

type historyItem struct {
	ID         string    `json:"id"`
	PoolID     string    `json:"pool_id"`
	RewardID   string    `json:"reward_id"`
	Rarity     string    `json:"rarity"`
	PullNumber int       `json:"pull_number"`
	IsPity     bool      `json:"is_pity"`
	CostPaid   int64     `json:"cost_paid"`
	PulledAt   time.Time `json:"pulled_at"`
}

type walletReq struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
}

type errResp struct {
	Err string `json:"err"`
}

type server struct {
	engine          *engine.Engine
	store           engine.Store
	catalog         *pool.Catalog
	startingBalance int64
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	var ve *engine.ValidationError
	var ibe *engine.InsufficientBalanceError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ibe):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrPoolNotFound), errors.Is(err, engine.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func parseIntParam(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func (s *server) handlePull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errResp{Err: "POST only"})
		return
	}
	var req pullReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{Err: "invalid JSON body"})
		return
	}

	res, err := s.engine.Pull(r.Context(), req.UserID, req.PoolID, req.Count)
	if err != nil {
		writeJSON(w, statusFor(err), pullResp{Err: err.Error()})
		return
	}

	resp := pullResp{
		AmountSpent: res.AmountSpent,
		PityTop:     res.Pity.PullsSinceTop,
		PityRare:    res.Pity.PullsSinceRareOrBetter,
		Pulls:       make([]pullItem, 0, len(res.Pulls)),
	}
	for _, rec := range res.Pulls {
		resp.Pulls = append(resp.Pulls, pullItem{
			RewardID:   rec.RewardID,
			Rarity:     rec.Rarity.String(),
			PullNumber: rec.PullNumber,
			IsPity:     rec.IsPity,
			CostPaid:   rec.CostPaid,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	poolID := r.URL.Query().Get("pool_id")
	limit := parseIntParam(r, "limit", 50)
	offset := parseIntParam(r, "offset", 0)

	page, err := s.engine.History(r.Context(), userID, poolID, limit, offset)
	if err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}

	resp := historyResp{
		Records: make([]historyItem, 0, len(page.Records)),
		HasMore: page.HasMore,
	}
	for _, rec := range page.Records {
		resp.Records = append(resp.Records, historyItem{
			ID:         rec.ID,
			PoolID:     rec.PoolID,
			RewardID:   rec.RewardID,
			Rarity:     rec.Rarity.String(),
			PullNumber: rec.PullNumber,
			IsPity:     rec.IsPity,
			CostPaid:   rec.CostPaid,
			PulledAt:   rec.PulledAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_pulls":    stats.TotalPulls,
		"total_spent":    stats.TotalSpent,
		"counts_by_tier": stats.CountsByTier,
		"rates_by_tier":  stats.RatesByTier,
	})
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := s.engine.Quote(r.URL.Query().Get("pool_id"))
	if err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *server) handlePityStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.PityStatus(r.Context(), r.URL.Query().Get("user_id"), r.URL.Query().Get("pool_id"))
	if err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pulls_since_top":      status.Pity.PullsSinceTop,
		"pulls_since_rare":     status.Pity.PullsSinceRareOrBetter,
		"total_pulls":          status.Pity.TotalPulls,
		"until_top_guarantee":  status.UntilTopGuarantee,
		"until_rare_guarantee": status.UntilRareGuarantee,
	})
}

func (s *server) handlePools(w http.ResponseWriter, r *http.Request) {
	ids := s.catalog.IDs()
	pools := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		p, ok := s.catalog.Pool(id)
		if !ok {
			continue
		}
		pools = append(pools, map[string]any{
			"id":    p.ID,
			"name":  p.Name,
			"quote": pricing.QuoteFor(pricing.Cost{Single: p.CostSingle, Multi: p.CostMulti}),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"pools": pools})
}

func (s *server) handleWalletCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errResp{Err: "POST only"})
		return
	}
	var req walletReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{Err: "invalid JSON body"})
		return
	}
	balance := req.Balance
	if balance == 0 {
		balance = s.startingBalance
	}
	if err := s.store.CreateWallet(r.Context(), req.UserID, balance); err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": req.UserID, "balance": balance})
}

func (s *server) handleWalletCredit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errResp{Err: "POST only"})
		return
	}
	var req walletReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{Err: "invalid JSON body"})
		return
	}
	if err := s.store.Credit(r.Context(), req.UserID, req.Amount); err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": req.UserID})
}

func (s *server) handleWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.store.GetWallet(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      wallet.UserID,
		"balance":      wallet.Balance,
		"total_earned": wallet.TotalEarned,
		"total_spent":  wallet.TotalSpent,
	})
}

func openStore(ctx context.Context, cfg *config.Config) (engine.Store, error) {
	if cfg.Backend == "postgres" {
		return postgres.Open(ctx, cfg.DatabaseDSN(), cfg.DBMaxConns)
	}
	return sqlite.Open(cfg.SQLitePath)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	level, err := log.ParseLevel(cfg.AppLogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.AppEnv == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := pool.NewCatalog(pool.NewLoader(cfg.PoolsPath))
	if err != nil {
		log.Fatalf("load pools: %v", err)
	}
	log.WithField("pools", catalog.IDs()).Info("pool catalog loaded")

	var watcher *pool.DirWatcher
	if cfg.PoolsWatch {
		watcher = pool.NewDirWatcher(
			pool.Paths{BaseDir: cfg.PoolsPath}.PoolsDir(),
			time.Duration(cfg.PoolsWatchSec)*time.Second,
			func() {
				if err := catalog.Reload(); err != nil {
					log.WithError(err).Warn("pool reload failed, keeping previous catalog")
					return
				}
				log.WithField("pools", catalog.IDs()).Info("pool catalog reloaded")
			},
		)
		watcher.Start()
		defer watcher.Stop()
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	srv := &server{
		engine:          engine.New(catalog, store, nil),
		store:           store,
		catalog:         catalog,
		startingBalance: cfg.StartingBalance,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/pull", srv.handlePull)
	mux.HandleFunc("/history", srv.handleHistory)
	mux.HandleFunc("/stats", srv.handleStats)
	mux.HandleFunc("/quote", srv.handleQuote)
	mux.HandleFunc("/pity", srv.handlePityStatus)
	mux.HandleFunc("/pools", srv.handlePools)
	mux.HandleFunc("/wallet", srv.handleWallet)
	mux.HandleFunc("/wallet/create", srv.handleWalletCreate)
	mux.HandleFunc("/wallet/credit", srv.handleWalletCredit)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", cfg.ListenAddr).Info("listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	log.Info("shut down")
}
