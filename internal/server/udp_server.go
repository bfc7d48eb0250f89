package server

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/domainwalk/recudns/internal/pool"
)

// recvBufferSize matches the 512-byte DNS-over-UDP datagram limit this
// resolver operates under.
const recvBufferSize = 512

// UDPServer is the client-facing listener: a single bound socket, one
// goroutine per inbound datagram, no worker pool and no per-client
// affinity. The listener loop returns to recv immediately after spawning a
// handler goroutine.
type UDPServer struct {
	Logger  *slog.Logger
	Handler *QueryHandler

	conn *net.UDPConn
	bufs *pool.Pool[*[recvBufferSize]byte]
}

// ListenAndServe binds addr and runs the receive loop until ctx is
// cancelled. A panic inside one query's goroutine is recovered there and
// logged; it never reaches the listener.
func (s *UDPServer) ListenAndServe(ctx context.Context, addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.conn = conn
	s.bufs = pool.New(func() *[recvBufferSize]byte { return new([recvBufferSize]byte) })

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	s.logger().Info("udp listener started", "addr", conn.LocalAddr().String())

	for {
		buf := s.bufs.Get()
		n, src, err := conn.ReadFromUDP(buf[:])
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			s.logger().Info("dropping malformed read", "err", err)
			s.bufs.Put(buf)
			continue
		}

		reqBytes := append([]byte(nil), buf[:n]...)
		s.bufs.Put(buf)

		go s.handleDatagram(ctx, src, reqBytes)
	}
}

func (s *UDPServer) handleDatagram(ctx context.Context, src *net.UDPAddr, reqBytes []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger().Error("panic handling datagram, dropping", "src", src.String(), "panic", r)
		}
	}()

	resp := s.Handler.Handle(ctx, src.String(), reqBytes)
	if resp == nil {
		return
	}
	if _, err := s.conn.WriteToUDP(resp, src); err != nil {
		s.logger().Info("failed to send response", "src", src.String(), "err", err)
	}
}

func (s *UDPServer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
