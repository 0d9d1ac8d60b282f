package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/ringdrop/internal/config"
	"github.com/relabs-tech/ringdrop/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard is served on the lab network only
	},
}

// LiveUpdate is pushed to every websocket client.
type LiveUpdate struct {
	Type    string                    `json:"type"` // trial, summary
	Trial   *telemetry.TrialMessage   `json:"trial,omitempty"`
	Summary *telemetry.SummaryMessage `json:"summary,omitempty"`
}

// Dashboard keeps the latest acquisition state for the web front-end.
type Dashboard struct {
	mu      sync.RWMutex
	trials  []telemetry.TrialMessage
	summary *telemetry.SummaryMessage

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool
}

func NewDashboard() *Dashboard {
	return &Dashboard{clients: make(map[*websocket.Conn]bool)}
}

// AddTrial records a trial. Run 1 starts a new acquisition, and so does a
// continuation run, which shows up as a new total or follows a summary.
func (d *Dashboard) AddTrial(m telemetry.TrialMessage) {
	d.mu.Lock()
	if d.startsAcquisition(m) {
		d.trials = nil
		d.summary = nil
	}
	d.trials = append(d.trials, m)
	d.mu.Unlock()

	d.broadcast(LiveUpdate{Type: "trial", Trial: &m})
}

func (d *Dashboard) startsAcquisition(m telemetry.TrialMessage) bool {
	if m.Run == 1 || d.summary != nil {
		return true
	}
	n := len(d.trials)
	return n > 0 && d.trials[n-1].Total != m.Total
}

// SetSummary records the result of an analysis.
func (d *Dashboard) SetSummary(m telemetry.SummaryMessage) {
	d.mu.Lock()
	d.summary = &m
	d.mu.Unlock()

	d.broadcast(LiveUpdate{Type: "summary", Summary: &m})
}

func (d *Dashboard) broadcast(u LiveUpdate) {
	d.clientsMu.Lock()
	defer d.clientsMu.Unlock()
	for conn := range d.clients {
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := conn.WriteJSON(u); err != nil {
			log.Printf("web: websocket write error: %v", err)
			conn.Close()
			delete(d.clients, conn)
		}
	}
}

// Handler serves the JSON API, the websocket feed and the static files in
// staticDir ("" disables static files).
func (d *Dashboard) Handler(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/summary", d.handleSummary)
	mux.HandleFunc("/api/trials", d.handleTrials)
	mux.HandleFunc("/ws", d.handleWS)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func (d *Dashboard) handleSummary(w http.ResponseWriter, r *http.Request) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.summary == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, d.summary)
}

func (d *Dashboard) handleTrials(w http.ResponseWriter, r *http.Request) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	trials := d.trials
	if trials == nil {
		trials = []telemetry.TrialMessage{}
	}
	writeJSON(w, trials)
}

func (d *Dashboard) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	d.clientsMu.Lock()
	d.clients[conn] = true
	d.clientsMu.Unlock()
	log.Printf("web: websocket client connected from %s", r.RemoteAddr)

	// Drain until the client goes away; the feed is one-way.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	d.clientsMu.Lock()
	delete(d.clients, conn)
	d.clientsMu.Unlock()
	conn.Close()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func RunWeb() error {
	cfg := config.Get()
	dash := NewDashboard()

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Follow trials and summaries
	token := client.Subscribe(cfg.TopicTrial, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var m telemetry.TrialMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("web: trial unmarshal error: %v", err)
			return
		}
		dash.AddTrial(m)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicTrial)

	token = client.Subscribe(cfg.TopicSummary, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var m telemetry.SummaryMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("web: summary unmarshal error: %v", err)
			return
		}
		dash.SetSummary(m)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicSummary)

	// 3) Serve API, websocket and ./web
	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, dash.Handler("web"))
}
