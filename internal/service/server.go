package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"folio/internal/audit"
	"folio/internal/config"
	"folio/internal/ledger"
	"folio/internal/logging"
)

// Request headers carrying the state labels for a lease.
const (
	HeaderGetState = "X-GET-STATE"
	HeaderSetState = "X-SET-STATE"
)

// Commands understood after the ledger name in the URL path.
const (
	commandNext   = "next"
	commandUpdate = "update"
)

// exhaustedPrefix opens every records-exhausted response body. Clients
// match on it to tell "nothing left to do" from real errors.
const exhaustedPrefix = "no records "

// Info keys the server stamps onto every leased record.
const (
	infoKeyClient = "client"
	infoKeyLease  = "lease"
)

// Server leases records over HTTP. Ledgers are addressed by file stem
// relative to the configured ledger directory; open handlers are kept in
// an LRU cache. A single mutex serializes all ledger access, which makes
// a lease atomic: no two clients ever receive the same record.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	journal *audit.Journal

	mu       sync.Mutex
	handlers *lru.Cache[string, *ledger.Handler]

	listener net.Listener
	server   *http.Server
}

// NewServer builds a coordination server from the given configuration.
// The journal may be nil when auditing is disabled.
func NewServer(cfg *config.Config, journal *audit.Journal, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("service: nil config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	handlers, err := lru.New[string, *ledger.Handler](cfg.Service.HandlerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("handler cache: %w", err)
	}
	srv := &Server{
		cfg:      cfg,
		logger:   logger,
		journal:  journal,
		handlers: handlers,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.route)
	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Start binds the configured address and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Paths.Bind)
	if err != nil {
		return fmt.Errorf("service listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("record service error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("record service listening",
		logging.String("address", listener.Addr().String()),
		logging.String("ledger_dir", s.cfg.Paths.LedgerDir))
	return nil
}

// Stop shuts the server down and releases the listener.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the bound address, empty before Start.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	client := clientHost(r.RemoteAddr)
	if !s.clientAllowed(client) {
		s.logger.Warn("request rejected", logging.String("client", client))
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		s.writeText(w, http.StatusBadRequest,
			"provide ledger name and command, e.g.: /<ledger>/<command>")
		return
	}
	name, command := parts[0], parts[1]
	switch command {
	case commandNext:
		if r.Method != http.MethodGet {
			s.writeText(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleNext(w, r, name, client)
	case commandUpdate:
		if r.Method != http.MethodPost {
			s.writeText(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleUpdate(w, r, name, client)
	default:
		s.writeText(w, http.StatusBadRequest, fmt.Sprintf("unknown command %q", command))
	}
}

func (s *Server) clientAllowed(host string) bool {
	allowed := s.cfg.Service.AllowedClients
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == host {
			return true
		}
	}
	return false
}

// handleNext leases the first record in the requested state: it stamps
// the client address and a fresh lease token into the record's info,
// flips the ledger entry to the set-state and returns the record as
// delivered, state still showing the requested one.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request, name, client string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.openLedger(name)
	if err != nil {
		if errors.Is(err, errNoLedger) {
			s.writeText(w, http.StatusNotFound,
				fmt.Sprintf("no '%s' in %s", name, s.cfg.Paths.LedgerDir))
			return
		}
		s.writeText(w, http.StatusInternalServerError, err.Error())
		return
	}

	getState := strings.TrimSpace(r.Header.Get(HeaderGetState))
	if getState == "" {
		getState = h.Marks().Open
	}
	setState := strings.TrimSpace(r.Header.Get(HeaderSetState))

	record := h.Next(getState)
	if record == nil {
		s.writeText(w, http.StatusNotFound,
			fmt.Sprintf("%s%s in %s", exhaustedPrefix, getState, h.Path()))
		return
	}

	token := uuid.NewString()
	record.AmendInfo(ledger.Info{infoKeyClient: client, infoKeyLease: token})
	extra := map[string]string{}
	if _, ok := h.Schema().Index(ledger.FieldInfo); ok {
		extra[ledger.FieldInfo] = record.Info
	}
	if err := h.SaveState(record.Identifier, setState, extra); err != nil {
		s.logger.Error("lease failed",
			logging.String("ledger", name),
			logging.String("identifier", record.Identifier),
			logging.Error(err))
		s.writeText(w, http.StatusInternalServerError, err.Error())
		return
	}
	leasedState := setState
	if leasedState == "" {
		leasedState = h.Marks().Lock
	}
	if s.journal != nil {
		if err := s.journal.RecordLease(r.Context(), name, record.Identifier, leasedState, client, token); err != nil {
			s.logger.Warn("journal lease failed", logging.Error(err))
		}
	}
	s.logger.Info("record leased",
		logging.String("ledger", name),
		logging.String("identifier", record.Identifier),
		logging.String("client", client),
		logging.String("position", h.Position()))
	s.writeJSON(w, http.StatusOK, record.AsMap())
}

// handleUpdate applies a client's state report: it merges the posted
// info payload into the stored record and rewrites state and state time.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, name, client string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.openLedger(name)
	if err != nil {
		if errors.Is(err, errNoLedger) {
			s.writeText(w, http.StatusNotFound,
				fmt.Sprintf("no '%s' in %s", name, s.cfg.Paths.LedgerDir))
			return
		}
		s.writeText(w, http.StatusInternalServerError, err.Error())
		return
	}

	var payload map[string]string
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeText(w, http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
		return
	}
	incoming, err := ledger.RecordFromMap(payload)
	if err != nil {
		s.writeText(w, http.StatusBadRequest, err.Error())
		return
	}

	prev := h.Get(incoming.Identifier, true)
	if prev == nil {
		s.writeText(w, http.StatusNotFound,
			fmt.Sprintf("no record for %s in %s", incoming.Identifier, h.Path()))
		return
	}
	amendRaw(prev, incoming.Info)

	extra := map[string]string{}
	if _, ok := h.Schema().Index(ledger.FieldInfo); ok {
		extra[ledger.FieldInfo] = prev.Info
	}
	if err := h.SaveState(incoming.Identifier, incoming.State, extra); err != nil {
		s.writeText(w, http.StatusInternalServerError,
			fmt.Sprintf("set %s to %s in %s failed: %v",
				incoming.Identifier, incoming.State, h.Path(), err))
		return
	}
	if s.journal != nil {
		if err := s.journal.RecordUpdate(r.Context(), name, incoming.Identifier, incoming.State, client); err != nil {
			s.logger.Warn("journal update failed", logging.Error(err))
		}
	}
	msg := fmt.Sprintf("set %s to %s in %s", incoming.Identifier, incoming.State, h.Path())
	s.logger.Info("record updated",
		logging.String("ledger", name),
		logging.String("identifier", incoming.Identifier),
		logging.String("state", incoming.State),
		logging.String("client", client))
	s.writeText(w, http.StatusOK, msg)
}

// amendRaw merges an incoming raw info payload into the record. Payloads
// that decode as a mapping are shallow-merged; anything else replaces the
// stored payload verbatim.
func amendRaw(record *ledger.Record, payload string) {
	payload = strings.TrimSpace(payload)
	if payload == "" || payload == ledger.UnsetLabel {
		return
	}
	extra, err := ledger.DecodeInfo(payload)
	if err != nil {
		record.Info = payload
		return
	}
	record.AmendInfo(extra)
}

var errNoLedger = errors.New("no such ledger")

// openLedger resolves a ledger name to a file in the ledger directory by
// stem and returns a cached handler for it. Names carrying an extension
// are reduced to their stem first.
func (s *Server) openLedger(name string) (*ledger.Handler, error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	entries, err := os.ReadDir(s.cfg.Paths.LedgerDir)
	if err != nil {
		return nil, fmt.Errorf("read ledger directory: %w", err)
	}
	var path string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base := entry.Name()
		if strings.TrimSuffix(base, filepath.Ext(base)) == stem {
			path = filepath.Join(s.cfg.Paths.LedgerDir, base)
			break
		}
	}
	if path == "" {
		return nil, fmt.Errorf("%w: %s", errNoLedger, name)
	}
	if h, ok := s.handlers.Get(path); ok {
		return h, nil
	}
	h, err := ledger.Open(path, ledger.Options{Marks: ledger.Marks{
		Open:       s.cfg.Ledger.OpenState,
		Lock:       s.cfg.Ledger.LockState,
		TimeLayout: s.cfg.Ledger.TimeFormat,
	}})
	if err != nil {
		return nil, err
	}
	s.handlers.Add(path, h)
	return h, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write response failed", logging.Error(err))
	}
}

func (s *Server) writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, msg); err != nil {
		s.logger.Error("write response failed", logging.Error(err))
	}
}

func clientHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
