package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	"go.uber.org/zap"

	"github.com/radieske/p2p-bet-platform-poc/internal/shared/config"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/logger"
)

func rp(to string) *httputil.ReverseProxy {
	u, _ := url.Parse(to)
	return httputil.NewSingleHostReverseProxy(u)
}

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// targets
	wagerURL := os.Getenv("WAGER_URL")
	if wagerURL == "" {
		wagerURL = "http://localhost:8082"
	}
	settlementURL := os.Getenv("SETTLEMENT_URL")
	if settlementURL == "" {
		settlementURL = "http://localhost:8083"
	}
	wager := rp(wagerURL)
	settlement := rp(settlementURL)

	mux := http.NewServeMux()

	// apostas, desafios e carteira (ex.: /api/wager/v1/bets -> wager-service)
	mux.Handle("/api/wager/", http.StripPrefix("/api/wager", wager))

	// liquidação administrativa (ex.: /api/settlement/v1/settlements -> settlement-service)
	mux.Handle("/api/settlement/", http.StripPrefix("/api/settlement", settlement))

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, withCORS(mux)); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
