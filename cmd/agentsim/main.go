// agentsim is a local stand-in for the conversational-agent platform. It
// serves a websocket that walks a scripted interview: ping, mode flips,
// agent questions, simulated user answers and interleaved audio frames, so
// the orchestrator can be exercised end to end with no external account.
package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lucamori/intervox/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type turn struct {
	question string
	answer   string
}

var script = []turn{
	{"Tell me about a system you designed recently.", "I built an ingestion pipeline that fans out to workers over a queue."},
	{"How did you handle backpressure?", "Bounded buffers, and the producers block instead of dropping."},
	{"What would you change with hindsight?", "I would add per-tenant rate limits much earlier."},
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	interval := flag.Duration("interval", 400*time.Millisecond, "delay between scripted frames")
	flag.Parse()

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade failed: %v", err)
			return
		}
		log.Printf("session connected from %s", r.RemoteAddr)
		runScript(conn, *interval)
	})

	log.Printf("agent simulator listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

func runScript(conn *websocket.Conn, interval time.Duration) {
	defer conn.Close()

	// Answer pongs in the background; the scripted side only writes.
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if _, err := protocol.ParseClientMessage(data); err != nil {
				log.Printf("unexpected client frame: %v", err)
			}
		}
	}()

	write := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(v); err != nil {
			log.Printf("session dropped: %v", err)
			return false
		}
		time.Sleep(interval)
		return true
	}

	if !write(protocol.Ping{Type: protocol.TypePing, EventID: 1}) {
		return
	}
	for _, t := range script {
		if !write(protocol.NewModeChange(true)) {
			return
		}
		if !write(protocol.NewAudioChunk("UklGRiQAAABXQVZF")) {
			return
		}
		if !write(protocol.NewAgentResponse(t.question)) {
			return
		}
		if !write(protocol.NewModeChange(false)) {
			return
		}
		if !write(protocol.NewUserTranscript(t.answer)) {
			return
		}
	}
	if !write(protocol.NewAgentResponse("That covers everything I wanted to ask. Thanks for your time.")) {
		return
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "script complete"),
		time.Now().Add(time.Second))
	log.Printf("script complete")
}
