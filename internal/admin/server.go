package admin

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tsaubergine/acomms/internal/queue"
	"github.com/tsaubergine/acomms/internal/queuemgr"
)

// Server exposes the acommsd control surface over one JSON-lines TCP
// endpoint, grounded on mirage.Service.serveAdminControl/handleAdminConn:
// one accept loop, one goroutine per connection, one JSON request/response
// object per line.
type Server struct {
	manager *queuemgr.QueueManager
}

// NewServer constructs an admin server bound to manager.
func NewServer(manager *queuemgr.QueueManager) *Server {
	return &Server{manager: manager}
}

// Serve accepts control connections on addr until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", strings.TrimSpace(addr))
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Info().Str("addr", ln.Addr().String()).Msg("admin control listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Msg("admin: read failed")
			}
			return
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = writeResponse(conn, Response{OK: false, Error: err.Error()})
			continue
		}
		resp := s.handle(req)
		if err := writeResponse(conn, resp); err != nil {
			log.Warn().Err(err).Msg("admin: write failed")
			return
		}
	}
}

func (s *Server) handle(req Request) Response {
	switch req.Action {
	case ActionPush:
		return s.handlePush(req)
	case ActionSnapshot:
		return Response{ID: req.ID, OK: true, Data: s.manager.Snapshot()}
	case ActionFlush:
		return s.handleFlush(req)
	case ActionInjectAck:
		return s.handleInjectAck(req)
	default:
		return Response{ID: req.ID, OK: false, Error: fmt.Sprintf("unknown action: %s", req.Action)}
	}
}

func (s *Server) handlePush(req Request) Response {
	var p PushRequest
	if err := decodeData(req.Data, &p); err != nil {
		return Response{ID: req.ID, OK: false, Error: err.Error()}
	}
	key, err := parseKey(p.Kind, p.ID)
	if err != nil {
		return Response{ID: req.ID, OK: false, Error: err.Error()}
	}
	if key.Kind == queue.KindCCL {
		if err := s.manager.PushRaw(key, p.Frame, p.Dest); err != nil {
			return Response{ID: req.ID, OK: false, Error: err.Error()}
		}
		return Response{ID: req.ID, OK: true}
	}
	return Response{ID: req.ID, OK: false, Error: "push of an already-encoded frame requires kind=ccl; dccl queues take a Record via the library API"}
}

func (s *Server) handleFlush(req Request) Response {
	var f FlushRequest
	if err := decodeData(req.Data, &f); err != nil {
		return Response{ID: req.ID, OK: false, Error: err.Error()}
	}
	key, err := parseKey(f.Kind, f.ID)
	if err != nil {
		return Response{ID: req.ID, OK: false, Error: err.Error()}
	}
	if err := s.manager.FlushQueue(key); err != nil {
		return Response{ID: req.ID, OK: false, Error: err.Error()}
	}
	return Response{ID: req.ID, OK: true}
}

func (s *Server) handleInjectAck(req Request) Response {
	var a InjectAckRequest
	if err := decodeData(req.Data, &a); err != nil {
		return Response{ID: req.ID, OK: false, Error: err.Error()}
	}
	if err := s.manager.HandleAck(a.Frame, a.Dest); err != nil {
		return Response{ID: req.ID, OK: false, Error: err.Error()}
	}
	return Response{ID: req.ID, OK: true}
}

func parseKey(kind string, id int) (queue.Key, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "dccl":
		return queue.Key{Kind: queue.KindDCCL, ID: id}, nil
	case "ccl":
		return queue.Key{Kind: queue.KindCCL, ID: id}, nil
	default:
		return queue.Key{}, fmt.Errorf("admin: unknown queue kind %q", kind)
	}
}

func decodeData(data any, out any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func writeResponse(w io.Writer, resp Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	payload = append(payload, '\n')
	_, err = w.Write(payload)
	return err
}
