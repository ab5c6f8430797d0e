package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/p2p-bet-platform-poc/internal/shared/config"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/db"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/kafka"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/logger"
	"github.com/radieske/p2p-bet-platform-poc/pkg/contracts/events"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	// Catálogo fixo de partidas simuladas; semeado no banco na subida
	eventCatalog = []catalogEvent{
		{ID: "MATCH_001", Home: "Olimpia", Away: "Motagua", League: "Liga Nacional"},
		{ID: "MATCH_002", Home: "Real España", Away: "Marathón", League: "Liga Nacional"},
		{ID: "MATCH_003", Home: "Flamengo", Away: "Palmeiras", League: "Brasileirão"},
		{ID: "MATCH_004", Home: "Grêmio", Away: "Internacional", League: "Brasileirão"},
	}

	outcomes = []string{"HOME", "AWAY", "DRAW"}

	// Métricas Prometheus para conexões e resultados publicados
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "results_ws_connections",
		Help: "Clientes WebSocket conectados",
	})
	resultsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "results_published_total",
		Help: "Total de resultados de eventos publicados",
	})
)

type catalogEvent struct {
	ID     string
	Home   string
	Away   string
	League string
}

// Representa uma conexão de cliente WebSocket
type clientConn struct {
	id   string
	conn *websocket.Conn
}

// hub gerencia os clientes do feed ao vivo de resultados e faz broadcast
// de cada resultado publicado.
type hub struct {
	mu      sync.RWMutex
	clients map[string]*clientConn
	log     *zap.Logger
}

func newHub(log *zap.Logger) *hub {
	return &hub{
		clients: make(map[string]*clientConn),
		log:     log,
	}
}

func (h *hub) add(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	wsConnections.Inc()
	h.log.Info("ws client connected", zap.String("client_id", c.id))
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		wsConnections.Dec()
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

// Envia uma mensagem para todos os clientes conectados
func (h *hub) broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg, _ := json.Marshal(v)
	for id, c := range h.clients {
		c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			_ = c.conn.Close()
		}
	}
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	rand.Seed(time.Now().UnixNano())

	prometheus.MustRegister(wsConnections, resultsPublished)

	// Semeia o catálogo de eventos para os serviços de aposta referenciarem
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()
	for _, e := range eventCatalog {
		if _, err := pg.ExecContext(context.Background(), `
			INSERT INTO sport_events(id, home_team, away_team, league_name, start_time, status)
			VALUES($1,$2,$3,$4,$5,'SCHEDULED')
			ON CONFLICT (id) DO NOTHING`,
			e.ID, e.Home, e.Away, e.League, time.Now().UTC().Add(time.Hour)); err != nil {
			log.Warn("seed event", zap.String("event_id", e.ID), zap.Error(err))
		}
	}

	resultsWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicEventResults)
	defer resultsWriter.Close()

	h := newHub(log)

	// Publica um resultado aleatório do catálogo a cada 30 segundos e
	// replica no feed WebSocket
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		ctx := context.Background()
		for range ticker.C {
			e := eventCatalog[rand.Intn(len(eventCatalog))]
			res := events.EventResult{
				EventID: e.ID,
				Result:  outcomes[rand.Intn(len(outcomes))],
				Source:  cfg.ServiceName,
				Ts:      time.Now().UTC(),
			}
			payload, _ := json.Marshal(res)
			if err := kafka.WriteJSON(ctx, resultsWriter, res.EventID, payload); err != nil {
				log.Warn("publish event_result", zap.String("event_id", res.EventID), zap.Error(err))
				continue
			}
			resultsPublished.Inc()
			h.broadcast(res)
			log.Info("result published",
				zap.String("event_id", res.EventID),
				zap.String("result", res.Result),
			)
		}
	}()

	// ==== MUX PÚBLICO (HTTP principal): /ws (feed ao vivo de resultados)
	appMux := http.NewServeMux()
	appMux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("ws upgrade failed", zap.Error(err))
			return
		}
		id := fmt.Sprintf("%d", time.Now().UnixNano())
		c := &clientConn{id: id, conn: conn}
		h.add(c)

		// Goroutine para manter a conexão viva e remover cliente ao desconectar
		go func() {
			defer func() {
				h.remove(id)
				_ = conn.Close()
			}()
			_ = conn.SetReadDeadline(time.Time{})
			for {
				// Lê e descarta mensagens do cliente para manter o socket limpo
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	// ==== MUX DE MÉTRICAS (/healthz, /metrics)
	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsMux.Handle("/metrics", promhttp.Handler())

	go func() {
		metricsAddr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("results simulator (metrics) running",
			zap.String("addr", metricsAddr),
			zap.String("paths", "/healthz,/metrics"),
		)
		if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
			log.Fatal("metrics server error", zap.Error(err))
		}
	}()

	publicAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("results simulator (public) running",
		zap.String("addr", publicAddr),
		zap.String("paths", "/ws"),
	)
	if err := http.ListenAndServe(publicAddr, appMux); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}
