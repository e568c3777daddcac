/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package transport owns the three sockets the command and monitoring
// namespace listens on: an IPv4 UDP socket, a v6-only IPv6 UDP socket,
// and a Unix datagram socket rooted in the filesystem. Socket setup
// follows the raw unix.Socket/unix.Bind style of facebook/time's
// ptp/sptp/client/connection.go listenUDP, rather than
// net.ListenUDP, so SO_REUSEADDR and IP_FREEBIND can be applied
// before bind.
package transport

import (
	"fmt"
	"net"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Origin identifies which socket a packet arrived on.
type Origin int

// Origin values.
const (
	OriginInet4 Origin = iota
	OriginInet6
	OriginUnix
)

func (o Origin) String() string {
	switch o {
	case OriginInet4:
		return "inet4"
	case OriginInet6:
		return "inet6"
	case OriginUnix:
		return "unix"
	default:
		return "unknown"
	}
}

// IsFilesystem reports whether packets on this origin carry
// filesystem trust, per the access package's trust classification.
func (o Origin) IsFilesystem() bool {
	return o == OriginUnix
}

// Packet is one datagram read off any of the three sockets.
type Packet struct {
	Origin Origin
	Remote net.IP // nil for Unix-socket origin
	Data   []byte
	// ReplyAddr is the sockaddr a reply should be sent to: the peer's
	// IP/port for the UDP sockets, or the client's own bound socket
	// path for the Unix socket.
	ReplyAddr unix.Sockaddr
}

// Socket is one of the three listening sockets.
type Socket struct {
	fd     int
	origin Origin
}

// Fd returns the raw file descriptor, for registration with a
// scheduler.
func (s *Socket) Fd() int {
	return s.fd
}

// Origin returns which transport this socket represents.
func (s *Socket) Origin() Origin {
	return s.origin
}

// Close closes the underlying file descriptor.
func (s *Socket) Close() error {
	return unix.Close(s.fd)
}

const maxDatagramSize = 1024

// Recv reads one datagram, non-blocking; ok is false if nothing was
// available (EAGAIN/EWOULDBLOCK), which is not an error.
func (s *Socket) Recv() (pkt Packet, ok bool, err error) {
	buf := make([]byte, maxDatagramSize)
	n, from, err := unix.Recvfrom(s.fd, buf, unix.MSG_DONTWAIT)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return Packet{}, false, nil
		}
		return Packet{}, false, fmt.Errorf("transport: recvfrom: %w", err)
	}
	pkt = Packet{Origin: s.origin, Data: buf[:n], ReplyAddr: from}
	switch sa := from.(type) {
	case *unix.SockaddrInet4:
		pkt.Remote = net.IP(sa.Addr[:])
	case *unix.SockaddrInet6:
		pkt.Remote = net.IP(sa.Addr[:])
	}
	return pkt, true, nil
}

// SendTo writes data, non-blocking, to the sockaddr to: for the Unix
// socket that is the client's own bound socket path (a Packet's
// ReplyAddr), for the UDP sockets the peer's IP and port.
func (s *Socket) SendTo(data []byte, to unix.Sockaddr) error {
	if err := unix.Sendto(s.fd, data, unix.MSG_DONTWAIT, to); err != nil {
		return fmt.Errorf("transport: sendto: %w", err)
	}
	return nil
}

func listenInet(family int, ip net.IP, port int) (*Socket, error) {
	fd, err := unix.Socket(family, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("transport: socket: %w", err)
	}
	// Best-effort: a daemon that can't set SO_REUSEADDR should still
	// come up, just without fast restart across a TIME_WAIT socket.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		log.WithError(err).Warn("transport: failed to set SO_REUSEADDR")
	}
	if family == unix.AF_INET6 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("transport: IPV6_V6ONLY: %w", err)
		}
	}
	// Best-effort: allow binding to an address that is not yet (or no
	// longer) configured on any local interface, matching chronyd's
	// tolerance of binding before the network is fully up.
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_FREEBIND, 1)

	var sa unix.Sockaddr
	if family == unix.AF_INET {
		addr := unix.SockaddrInet4{Port: port}
		copy(addr.Addr[:], ip.To4())
		sa = &addr
	} else {
		addr := unix.SockaddrInet6{Port: port}
		copy(addr.Addr[:], ip.To16())
		sa = &addr
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: bind: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: set nonblocking: %w", err)
	}
	origin := OriginInet4
	if family == unix.AF_INET6 {
		origin = OriginInet6
	}
	return &Socket{fd: fd, origin: origin}, nil
}

// ListenInet4 opens the IPv4 UDP listener.
func ListenInet4(ip net.IP, port int) (*Socket, error) {
	return listenInet(unix.AF_INET, ip, port)
}

// ListenInet6 opens the v6-only IPv6 UDP listener.
func ListenInet6(ip net.IP, port int) (*Socket, error) {
	return listenInet(unix.AF_INET6, ip, port)
}

// OpenLocalSocket opens the filesystem Unix datagram socket at path.
// Callers defer this until after any privilege drop has completed, so
// the socket file is owned by the unprivileged daemon user.
func OpenLocalSocket(path string) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: socket: %w", err)
	}
	_ = os.Remove(path)
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: bind %s: %w", path, err)
	}
	if err := os.Chmod(path, 0666); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: chmod %s: %w", path, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: set nonblocking: %w", err)
	}
	return &Socket{fd: fd, origin: OriginUnix}, nil
}

// DropEveryNth, when non-zero, causes every Nth call to (*Manager).Reply
// to silently discard the outgoing packet instead of sending it. It
// exists for deterministic tests of client-side retry behaviour and is
// never set outside of tests.
var DropEveryNth uint

// Manager owns the set of open listening sockets and the reply
// counter DropEveryNth consults.
type Manager struct {
	Inet4 *Socket
	Inet6 *Socket
	Unix  *Socket

	replyCount uint
}

// Reply sends data to the peer addressed by to over the socket that
// originally received the request, honoring DropEveryNth.
func (m *Manager) Reply(origin Origin, to unix.Sockaddr, data []byte) error {
	m.replyCount++
	if DropEveryNth != 0 && m.replyCount%DropEveryNth == 0 {
		return nil
	}
	sock := m.socketFor(origin)
	if sock == nil {
		return fmt.Errorf("transport: no socket open for origin %s", origin)
	}
	return sock.SendTo(data, to)
}

func (m *Manager) socketFor(origin Origin) *Socket {
	switch origin {
	case OriginInet4:
		return m.Inet4
	case OriginInet6:
		return m.Inet6
	case OriginUnix:
		return m.Unix
	default:
		return nil
	}
}

// Close closes every open socket, ignoring individual errors so that
// shutdown always attempts to close them all.
func (m *Manager) Close() {
	for _, s := range []*Socket{m.Inet4, m.Inet6, m.Unix} {
		if s != nil {
			_ = s.Close()
		}
	}
}
