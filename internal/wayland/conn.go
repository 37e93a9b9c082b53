// Package wayland is a small client for the Wayland wire protocol covering
// the core objects and wlr-layer-shell. The connection is non-blocking:
// Pump never waits on the socket.
package wayland

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// DisplayID is the object id of wl_display.
const DisplayID uint32 = 1

const (
	maxReadSize      = 4096
	maxFdsPerMessage = 28
	roundtripTimeout = 5 * time.Second
)

var (
	// ErrProtocol wraps errors reported by the compositor through
	// wl_display.error. The connection is unusable afterwards.
	ErrProtocol = errors.New("wayland protocol error")
	// ErrClosed is returned once the compositor hung up.
	ErrClosed = errors.New("wayland connection closed")
	// ErrNoDisplay is returned when no compositor socket is configured.
	ErrNoDisplay = errors.New("no wayland display configured")
)

// Event is a decoded incoming message addressed to a live object.
type Event struct {
	Sender    uint32
	Interface Interface
	Opcode    uint16
	Args      *Reader
}

// Handler receives every event for client created objects, except the
// wl_display and sync callback traffic the connection handles itself.
type Handler func(Event)

type object struct {
	iface  Interface
	zombie bool
	done   *bool
}

// Conn is a client connection to a compositor.
type Conn struct {
	fd      int
	out     []byte
	outFds  []int
	in      []byte
	inFds   []int
	objects map[uint32]*object
	nextID  uint32
	freeIDs []uint32
	handler Handler
	err     error
}

// Dial connects using WAYLAND_SOCKET or XDG_RUNTIME_DIR/WAYLAND_DISPLAY.
func Dial() (*Conn, error) {
	if value := os.Getenv("WAYLAND_SOCKET"); value != "" {
		fd, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("parse WAYLAND_SOCKET: %w", err)
		}
		os.Unsetenv("WAYLAND_SOCKET")
		unix.CloseOnExec(fd)
		return NewConn(fd)
	}

	path, err := socketPath()
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("create socket: %w", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}
	return NewConn(fd)
}

func socketPath() (string, error) {
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-0"
	}
	if filepath.IsAbs(display) {
		return display, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", fmt.Errorf("%w: XDG_RUNTIME_DIR is not set", ErrNoDisplay)
	}
	return filepath.Join(runtimeDir, display), nil
}

// NewConn wraps an already connected stream socket and switches it to
// non-blocking mode. The connection owns fd.
func NewConn(fd int) (*Conn, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("set non-blocking: %w", err)
	}
	conn := &Conn{
		fd:      fd,
		objects: map[uint32]*object{DisplayID: {iface: InterfaceDisplay}},
		nextID:  DisplayID + 1,
	}
	return conn, nil
}

// SetHandler installs the event handler.
func (conn *Conn) SetHandler(handler Handler) {
	conn.handler = handler
}

// Err returns the fatal error that ended the connection, if any.
func (conn *Conn) Err() error {
	return conn.err
}

// Display returns the wl_display proxy.
func (conn *Conn) Display() Display {
	return Display{Proxy{conn: conn, id: DisplayID, version: 1}}
}

// Fd exposes the socket for polling.
func (conn *Conn) Fd() int {
	return conn.fd
}

func (conn *Conn) newObject(iface Interface) uint32 {
	var id uint32
	if n := len(conn.freeIDs); n > 0 {
		id = conn.freeIDs[n-1]
		conn.freeIDs = conn.freeIDs[:n-1]
	} else {
		id = conn.nextID
		conn.nextID++
	}
	conn.objects[id] = &object{iface: iface}
	return id
}

// forget marks an object destroyed by the client. Events still in flight
// are dropped until the compositor confirms with delete_id.
func (conn *Conn) forget(id uint32) {
	if obj, ok := conn.objects[id]; ok {
		obj.zombie = true
	}
}

func (conn *Conn) send(msg *Message) {
	if conn.err != nil {
		for _, fd := range msg.fds {
			unix.Close(fd)
		}
		return
	}
	conn.out = append(conn.out, msg.Bytes()...)
	conn.outFds = append(conn.outFds, msg.fds...)
}

// Flush writes buffered requests. A full socket is not an error: the
// remainder stays buffered for the next flush.
func (conn *Conn) Flush() error {
	if conn.err != nil {
		return conn.err
	}
	for len(conn.out) > 0 {
		var oob []byte
		fds := conn.outFds
		if len(fds) > maxFdsPerMessage {
			fds = fds[:maxFdsPerMessage]
		}
		if len(fds) > 0 {
			oob = unix.UnixRights(fds...)
		}
		n, err := unix.SendmsgN(conn.fd, conn.out, oob, nil, unix.MSG_NOSIGNAL|unix.MSG_DONTWAIT)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				return nil
			}
			return conn.fail(fmt.Errorf("write: %w", err))
		}
		for _, fd := range fds {
			unix.Close(fd)
		}
		conn.outFds = conn.outFds[len(fds):]
		conn.out = conn.out[n:]
	}
	conn.out = nil
	return nil
}

// ReadEvents performs one non-blocking read into the event buffer.
func (conn *Conn) ReadEvents() error {
	if conn.err != nil {
		return conn.err
	}
	buf := make([]byte, maxReadSize)
	oob := make([]byte, unix.CmsgSpace(maxFdsPerMessage*4))
	for {
		n, oobn, _, _, err := unix.Recvmsg(conn.fd, buf, oob, unix.MSG_DONTWAIT|unix.MSG_CMSG_CLOEXEC)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				return nil
			}
			return conn.fail(fmt.Errorf("read: %w", err))
		}
		if oobn > 0 {
			if err := conn.collectFds(oob[:oobn]); err != nil {
				return conn.fail(err)
			}
		}
		if n == 0 {
			return conn.fail(ErrClosed)
		}
		conn.in = append(conn.in, buf[:n]...)
		return nil
	}
}

func (conn *Conn) collectFds(oob []byte) error {
	messages, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return fmt.Errorf("parse control message: %w", err)
	}
	for i := range messages {
		fds, err := unix.ParseUnixRights(&messages[i])
		if err != nil {
			continue
		}
		conn.inFds = append(conn.inFds, fds...)
	}
	return nil
}

// DispatchPending delivers every complete message already read.
func (conn *Conn) DispatchPending() error {
	for conn.err == nil {
		sender, opcode, size, ok := ParseHeader(conn.in)
		if !ok {
			if size != 0 && size < headerSize {
				return conn.fail(fmt.Errorf("%w: message size %d", ErrProtocol, size))
			}
			break
		}
		body := make([]byte, size-headerSize)
		copy(body, conn.in[headerSize:size])
		conn.in = conn.in[size:]
		conn.dispatch(sender, opcode, body)
	}
	if len(conn.in) == 0 {
		conn.in = nil
	}
	return conn.err
}

func (conn *Conn) dispatch(sender uint32, opcode uint16, body []byte) {
	obj := conn.objects[sender]
	var fds []int
	if obj != nil {
		if want := eventFds(obj.iface, opcode); want > 0 {
			want = min(want, len(conn.inFds))
			fds = conn.inFds[:want:want]
			conn.inFds = conn.inFds[want:]
		}
	}
	reader := NewReader(body, fds)
	defer func() {
		for _, fd := range reader.remainingFds() {
			unix.Close(fd)
		}
	}()

	if obj == nil || obj.zombie {
		return
	}
	switch {
	case sender == DisplayID:
		conn.handleDisplay(opcode, reader)
	case obj.done != nil:
		if opcode == EventCallbackDone {
			*obj.done = true
		}
	case conn.handler != nil:
		conn.handler(Event{Sender: sender, Interface: obj.iface, Opcode: opcode, Args: reader})
	}
}

func (conn *Conn) handleDisplay(opcode uint16, reader *Reader) {
	switch opcode {
	case EventDisplayError:
		objectID := reader.Uint()
		code := reader.Uint()
		message := reader.String()
		iface := Interface("unknown")
		if obj, ok := conn.objects[objectID]; ok {
			iface = obj.iface
		}
		conn.fail(fmt.Errorf("%w: %s#%d code %d: %s", ErrProtocol, iface, objectID, code, message))
	case EventDisplayDeleteID:
		id := reader.Uint()
		if _, ok := conn.objects[id]; ok && id != DisplayID {
			delete(conn.objects, id)
			conn.freeIDs = append(conn.freeIDs, id)
		}
	}
}

// Pump runs one non-blocking I/O step: dispatch what is queued, flush,
// read whatever is available and dispatch again.
func (conn *Conn) Pump() error {
	if err := conn.DispatchPending(); err != nil {
		return err
	}
	if err := conn.Flush(); err != nil {
		return err
	}
	if err := conn.ReadEvents(); err != nil {
		return err
	}
	return conn.DispatchPending()
}

// Roundtrip blocks until the compositor has processed every request sent
// so far and all resulting events have been dispatched.
func (conn *Conn) Roundtrip() error {
	done := false
	id := conn.newObject(InterfaceCallback)
	conn.objects[id].done = &done
	conn.send(NewMessage(DisplayID, RequestDisplaySync).PutObject(id))

	deadline := time.Now().Add(roundtripTimeout)
	for !done {
		if err := conn.Flush(); err != nil {
			return err
		}
		if len(conn.out) > 0 {
			if err := conn.wait(unix.POLLOUT, deadline); err != nil {
				return err
			}
			continue
		}
		if err := conn.wait(unix.POLLIN, deadline); err != nil {
			return err
		}
		if err := conn.ReadEvents(); err != nil {
			return err
		}
		if err := conn.DispatchPending(); err != nil {
			return err
		}
	}
	return nil
}

func (conn *Conn) wait(events int16, deadline time.Time) error {
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return fmt.Errorf("roundtrip: timed out after %v", roundtripTimeout)
		}
		fds := []unix.PollFd{{Fd: int32(conn.fd), Events: events}}
		n, err := unix.Poll(fds, int(left/time.Millisecond)+1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return conn.fail(fmt.Errorf("poll: %w", err))
		}
		if n > 0 {
			return nil
		}
	}
}

func (conn *Conn) fail(err error) error {
	if conn.err == nil {
		conn.err = err
	}
	return conn.err
}

// Close releases the socket and any undelivered descriptors.
func (conn *Conn) Close() error {
	for _, fd := range conn.inFds {
		unix.Close(fd)
	}
	for _, fd := range conn.outFds {
		unix.Close(fd)
	}
	conn.inFds, conn.outFds = nil, nil
	conn.fail(ErrClosed)
	return unix.Close(conn.fd)
}
