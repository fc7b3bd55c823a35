package observer

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voxelforge.ai/internal/protocol"
)

// WelcomeSource fills the world-specific part of a WELCOME. It runs on the
// handler goroutine, so it must fetch world state through the world loop.
type WelcomeSource func(ctx context.Context) (protocol.WelcomeMsg, error)

type Server struct {
	hub     *Hub
	welcome WelcomeSource
	log     *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, welcome WelcomeSource, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		hub:     hub,
		welcome: welcome,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// BootstrapHandler serves the WELCOME payload over plain HTTP for panels
// that want world parameters before opening a socket.
func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp, err := s.welcome(ctx)
		if err != nil {
			http.Error(rw, "world busy", http.StatusServiceUnavailable)
			return
		}
		resp.Type = protocol.TypeWelcome
		resp.ProtocolVersion = protocol.Version
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send HELLO first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var hello protocol.HelloMsg
		if err := json.Unmarshal(msg, &hello); err != nil || hello.Type != protocol.TypeHello {
			s.reject(conn, protocol.ErrProtoBadRequest, "expected HELLO")
			return
		}
		if hello.ProtocolVersion != protocol.Version {
			s.reject(conn, protocol.ErrProtoVersion, "unsupported protocol version "+hello.ProtocolVersion)
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		wctx, wcancel := context.WithTimeout(ctx, 2*time.Second)
		welcome, err := s.welcome(wctx)
		wcancel()
		if err != nil {
			s.reject(conn, protocol.ErrWorldBusy, "world busy")
			return
		}

		sess := &session{id: uuid.NewString(), out: make(chan []byte, 1024)}
		sess.setFilter(hello.Machines)
		welcome.Type = protocol.TypeWelcome
		welcome.ProtocolVersion = protocol.Version
		welcome.SessionID = sess.id
		b, _ := json.Marshal(welcome)

		// Register before WELCOME goes out so no update published after the
		// client sees WELCOME is lost.
		s.hub.add(sess)
		defer s.hub.remove(sess.id)
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
		s.log.Printf("observer %s attached (%s)", sess.id, hello.ClientName)

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: a later HELLO replaces the machine filter.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeHello {
				continue
			}
			var upd protocol.HelloMsg
			if err := json.Unmarshal(msg, &upd); err != nil {
				continue
			}
			sess.setFilter(upd.Machines)
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		s.log.Printf("observer %s detached", sess.id)
	}
}

func (s *Server) reject(conn *websocket.Conn, code, message string) {
	b, _ := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, b)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), time.Now().Add(time.Second))
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
