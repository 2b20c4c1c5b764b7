// Package server is the reference backend: a websocket hub over the SQLite
// storage that scopes every entity to the authenticated user.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/auth"
	"github.com/lotas/lesezeichen/internal/protocol"
	"github.com/lotas/lesezeichen/internal/storage"
)

// client is one websocket connection of a user.
type client struct {
	conn *websocket.Conn
	ctx  context.Context
}

func (c *client) send(msg protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.conn.Write(c.ctx, websocket.MessageText, data)
}

// userHub holds the connections of one user. mu serializes the user's
// mutations so every subscriber sees feeds in commit order, and every
// requester sees the feeds before its ack.
type userHub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// Server accepts authenticated websocket connections and serves the
// bookmark backend contract.
type Server struct {
	port   int
	db     *sql.DB
	secret []byte

	mu    sync.Mutex
	users map[string]*userHub
}

// New creates a new Server. Port 0 means the caller manages the listener.
func New(db *sql.DB, secret []byte, port int) *Server {
	return &Server{
		port:   port,
		db:     db,
		secret: secret,
		users:  make(map[string]*userHub),
	}
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Connections reports how many connections user has open.
func (s *Server) Connections(user string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.users[user]; ok {
		return len(h.clients)
	}
	return 0
}

func (s *Server) hub(user string) *userHub {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.users[user]
	if !ok {
		h = &userHub{clients: make(map[*client]struct{})}
		s.users[user] = h
	}
	return h
}

func (s *Server) register(user string, c *client) *userHub {
	h := s.hub(user)
	s.mu.Lock()
	h.clients[c] = struct{}{}
	s.mu.Unlock()
	return h
}

func (s *Server) unregister(user string, c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.users[user]; ok {
		delete(h.clients, c)
	}
}

func (s *Server) subscribers(h *userHub) []*client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Handler returns an http.Handler that authenticates the request and
// accepts the websocket upgrade.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.FromRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		user, err := auth.Verify(s.secret, token)
		if err != nil {
			applog.Error("ws.auth", err, "remote", r.RemoteAddr)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Printf("websocket accept: %v", err)
			applog.Error("ws.accept", err)
			return
		}
		conn.SetReadLimit(4 << 20)

		c := &client{conn: conn, ctx: r.Context()}
		h := s.register(user, c)
		applog.Info("ws.connected", "user", user, "remote", r.RemoteAddr)

		defer func() {
			s.unregister(user, c)
			conn.CloseNow()
			applog.Info("ws.disconnected", "user", user)
		}()

		// A new subscriber gets the current state of every feed.
		h.mu.Lock()
		err = s.sendFeeds(user, []*client{c})
		h.mu.Unlock()
		if err != nil {
			applog.Error("ws.subscribe", err, "user", user)
			return
		}

		for {
			_, data, err := conn.Read(c.ctx)
			if err != nil {
				return
			}
			s.handle(user, h, c, data)
		}
	})
}

// handle applies one request and replies. On success the user's
// subscribers receive fresh feeds before the requester receives its ack.
func (s *Server) handle(user string, h *userHub, c *client, data []byte) {
	req, err := parseRequest(data)
	if err != nil {
		applog.Error("ws.parse", err, "user", user)
		if sendErr := c.send(protocol.Ack(req.ID, err, errorCode(err), 0)); sendErr != nil {
			applog.Error("ws.send", sendErr)
		}
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	rev, changed, err := apply(s.db, user, req)
	if err != nil {
		applog.Error("ws.apply", err, "user", user, "action", req.Action, "id", req.ID)
	} else {
		applog.Info("ws.apply", "user", user, "action", req.Action, "id", req.ID, "rev", rev)
	}
	if changed {
		if err := s.sendFeeds(user, s.subscribers(h)); err != nil {
			applog.Error("ws.broadcast", err, "user", user)
		}
	}
	if err := c.send(protocol.Ack(req.ID, err, errorCode(err), rev)); err != nil {
		applog.Error("ws.send", err, "user", user)
	}
}

// sendFeeds writes all four feeds to each of the given clients. A failing
// client is logged and skipped; its read loop will notice the broken
// connection.
func (s *Server) sendFeeds(user string, clients []*client) error {
	rev, err := storage.Revision(s.db, user)
	if err != nil {
		return err
	}
	msgs, err := feeds(s.db, user, rev)
	if err != nil {
		return err
	}
	for _, c := range clients {
		for _, m := range msgs {
			if err := c.send(m); err != nil {
				applog.Error("ws.send", err, "user", user, "type", m.Type)
				break
			}
		}
	}
	return nil
}

// ListenAndServe starts the websocket server on the configured port.
func (s *Server) ListenAndServe(ctx context.Context, host string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.Handler())

	addr := fmt.Sprintf("%s:%d", host, s.port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	return srv.ListenAndServe()
}
