package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelforge.ai/internal/protocol"
)

func testServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	srv := NewServer(hub, func(ctx context.Context) (protocol.WelcomeMsg, error) {
		return protocol.WelcomeMsg{
			WorldID:     "overworld",
			Tick:        9,
			WorldParams: protocol.WorldParams{TickRateHz: 20, ChunkSize: 16, Seed: 1},
		}, nil
	}, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observer/ws", srv.WSHandler())
	mux.HandleFunc("/v1/observer/bootstrap", srv.BootstrapHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return hub, ts
}

func dial(t *testing.T, ts *httptest.Server, hello protocol.HelloMsg) (*websocket.Conn, protocol.WelcomeMsg) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var w protocol.WelcomeMsg
	if err := conn.ReadJSON(&w); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	return conn, w
}

func TestObserver_WelcomeAndUpdate(t *testing.T) {
	hub, ts := testServer(t)
	conn, w := dial(t, ts, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version})
	if w.Type != protocol.TypeWelcome || w.SessionID == "" || w.WorldID != "overworld" || w.Tick != 9 {
		t.Fatalf("welcome=%+v", w)
	}
	if hub.Sessions() != 1 {
		t.Fatalf("sessions=%d want=1", hub.Sessions())
	}

	hub.Publish(protocol.MachineUpdate{Type: protocol.TypeMachineUpdate, Machine: "press", State: "on", Status: "crafting 10%"})
	var u protocol.MachineUpdate
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if u.Machine != "press" || u.Status != "crafting 10%" {
		t.Fatalf("update=%+v", u)
	}
}

func TestObserver_MachineFilter(t *testing.T) {
	hub, ts := testServer(t)
	conn, _ := dial(t, ts, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Machines:        []string{"furnace"},
	})

	hub.Publish(protocol.MachineUpdate{Machine: "press"})
	hub.Publish(protocol.MachineUpdate{Machine: "furnace", Status: "idle"})

	var u protocol.MachineUpdate
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if u.Machine != "furnace" {
		t.Fatalf("machine=%q want=furnace", u.Machine)
	}
}

func TestObserver_RejectsBadVersion(t *testing.T) {
	_, ts := testServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1"})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e protocol.ErrorMsg
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read error: %v", err)
	}
	if e.Type != protocol.TypeError || e.Code != protocol.ErrProtoVersion {
		t.Fatalf("error=%+v", e)
	}
}

func TestObserver_Bootstrap(t *testing.T) {
	_, ts := testServer(t)
	resp, err := http.Get(ts.URL + "/v1/observer/bootstrap")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var w protocol.WelcomeMsg
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.WorldID != "overworld" || w.ProtocolVersion != protocol.Version {
		t.Fatalf("bootstrap=%+v", w)
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	s := &session{id: "s", out: make(chan []byte, 1)}
	hub.add(s)
	hub.Publish(protocol.MachineUpdate{Machine: "a"})
	hub.Publish(protocol.MachineUpdate{Machine: "a"})
	if hub.Dropped() != 1 {
		t.Fatalf("dropped=%d want=1", hub.Dropped())
	}
	hub.remove("s")
	if hub.Sessions() != 0 {
		t.Fatalf("sessions=%d want=0", hub.Sessions())
	}
}
