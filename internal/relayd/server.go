package relayd

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/relayctl/internal/observability"
	"github.com/danmuck/relayctl/internal/protocol"
	"github.com/danmuck/relayctl/internal/protocol/frame"
	"github.com/danmuck/relayctl/internal/relay"
)

// Statuses a relay answers with besides relay.StatusOK.
const (
	StatusBadRequest uint32 = 400
	StatusForbidden  uint32 = 403
)

// ServerConfig tunes the wire listener.
type ServerConfig struct {
	// IdleTimeout bounds how long a connection may sit between frames.
	IdleTimeout time.Duration
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
	return c
}

// Server answers index requests over the framed wire protocol. One goroutine
// per connection; connections carry any number of request/response exchanges.
type Server struct {
	node   string
	store  *Store
	cfg    ServerConfig
	limits frame.Limits

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

func NewServer(node string, store *Store, cfg ServerConfig) *Server {
	return &Server{
		node:   node,
		store:  store,
		cfg:    cfg.withDefaults(),
		limits: frame.DefaultLimits(),
	}
}

// Listen binds the wire listener without accepting yet, so callers can learn
// the bound address before Serve blocks.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("relayd: listen %s: %w", addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound wire address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("relayd: serve before listen")
	}

	log.Info().Str("node", s.node).Str("addr", ln.Addr().String()).Msg("relay listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("relayd: accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// ListenAndServe binds addr and serves until Close.
func (s *Server) ListenAndServe(addr string) error {
	if err := s.Listen(addr); err != nil {
		return err
	}
	return s.Serve()
}

// Close stops accepting and waits for in-flight connections to drain.
func (s *Server) Close() error {
	s.mu.Lock()
	ln := s.ln
	s.ln = nil
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	remote := conn.RemoteAddr().String()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		f, err := frame.ReadFrame(reader, s.limits)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && !errors.Is(err, frame.ErrShortHeader) {
				log.Debug().Str("remote", remote).Err(err).Msg("connection done")
			}
			return
		}

		start := time.Now()
		resp, status := s.answer(f)
		if resp == nil {
			return
		}
		if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if _, err := conn.Write(resp); err != nil {
			log.Warn().Str("remote", remote).Err(err).Msg("write response failed")
			return
		}
		observability.RecordIndexRequest(s.node, status, time.Since(start))
	}
}

// answer maps one request frame to a response frame. Malformed or refused
// requests still get a well-formed error frame carrying the request's
// correlation id.
func (s *Server) answer(f frame.Frame) ([]byte, uint32) {
	id := f.Header.MessageID

	raw, err := protocol.DecodeIndexRequest(f)
	if err != nil {
		return s.errorFrame(id, StatusBadRequest, err.Error())
	}
	fqdn, err := relay.ParseFQDN(raw)
	if err != nil {
		return s.errorFrame(id, StatusBadRequest, err.Error())
	}

	if status, denied := s.store.DeniedStatus(fqdn); denied {
		log.Info().Str("node", s.node).Str("fqdn", fqdn.String()).Uint32("status", status).Msg("index refused")
		return s.errorFrame(id, status, "index refused")
	}

	records := s.store.Lookup(fqdn)
	resp, err := protocol.EncodeIndexResponse(id, fqdn.String(), relay.StatusOK, records)
	if err != nil {
		log.Error().Str("fqdn", fqdn.String()).Err(err).Msg("encode response failed")
		return s.errorFrame(id, StatusBadRequest, "encode failed")
	}
	log.Debug().Str("node", s.node).Str("fqdn", fqdn.String()).Int("records", len(records)).Msg("index served")
	return resp, relay.StatusOK
}

func (s *Server) errorFrame(id uint64, status uint32, reason string) ([]byte, uint32) {
	resp, err := protocol.EncodeErrorResponse(id, status, reason)
	if err != nil {
		// Error frames are built from validated constants; this cannot fail
		// on a healthy build.
		log.Error().Err(err).Msg("encode error frame failed")
		return nil, status
	}
	return resp, status
}
