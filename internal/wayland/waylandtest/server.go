// Package waylandtest runs an in-process fake compositor over a socket pair.
// It speaks just enough of the core protocol and wlr-layer-shell for the
// overlay client to be exercised without a display server.
package waylandtest

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sys/unix"

	"interlude/internal/wayland"
)

// Config shapes the fake compositor.
type Config struct {
	Outputs        int
	Width          uint32
	Height         uint32
	OmitLayerShell bool
}

// LayerSurface is the server-side view of one zwlr_layer_surface_v1.
type LayerSurface struct {
	ID            uint32
	Surface       uint32
	Output        uint32
	Layer         uint32
	Namespace     string
	Anchor        uint32
	ExclusiveZone int32
	Width         uint32
	Height        uint32
	Interactivity uint32
	// InputRegion is the region id last set on the surface; zero is null.
	InputRegion      uint32
	InputRegionEmpty bool
	Configured       bool
	AckedSerial      uint32
	Commits          int
	Attaches         int
	Destroyed        bool
}

type requestKey struct {
	iface  wayland.Interface
	opcode uint16
}

// Server is a fake compositor. It is safe to call its methods while the
// client is running.
type Server struct {
	config Config
	fd     int

	closeOnce sync.Once

	mu           sync.Mutex
	registry     uint32
	addedOutputs uint32
	objects      map[uint32]wayland.Interface
	regions      map[uint32]int
	layers       map[uint32]*LayerSurface
	surfaceLayer map[uint32]uint32
	outputs      []uint32
	keyboard     uint32
	pointer      uint32
	serial       uint32
	counts       map[requestKey]int
	fds          []int
	err          error

	done chan struct{}
}

var destructors = map[requestKey]bool{
	{wayland.InterfaceSurface, wayland.RequestSurfaceDestroy}:           true,
	{wayland.InterfaceRegion, wayland.RequestRegionDestroy}:             true,
	{wayland.InterfaceShmPool, wayland.RequestShmPoolDestroy}:           true,
	{wayland.InterfaceBuffer, wayland.RequestBufferDestroy}:             true,
	{wayland.InterfaceKeyboard, wayland.RequestKeyboardRelease}:         true,
	{wayland.InterfacePointer, wayland.RequestPointerRelease}:           true,
	{wayland.InterfaceOutput, wayland.RequestOutputRelease}:             true,
	{wayland.InterfaceLayerSurface, wayland.RequestLayerSurfaceDestroy}: true,
}

// New starts a fake compositor and returns it with the client end of the
// socket pair.
func New(config Config) (*Server, int, error) {
	if config.Width == 0 {
		config.Width = 320
	}
	if config.Height == 0 {
		config.Height = 200
	}
	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, -1, fmt.Errorf("socketpair: %w", err)
	}
	server := &Server{
		config:       config,
		fd:           pair[0],
		objects:      map[uint32]wayland.Interface{wayland.DisplayID: wayland.InterfaceDisplay},
		regions:      map[uint32]int{},
		layers:       map[uint32]*LayerSurface{},
		surfaceLayer: map[uint32]uint32{},
		counts:       map[requestKey]int{},
		done:         make(chan struct{}),
	}
	go server.serve()
	return server, pair[1], nil
}

// Close stops the server. Calling it again does nothing.
func (server *Server) Close() {
	server.closeOnce.Do(func() {
		unix.Shutdown(server.fd, unix.SHUT_RDWR)
		<-server.done
		unix.Close(server.fd)
		server.mu.Lock()
		for _, fd := range server.fds {
			unix.Close(fd)
		}
		server.fds = nil
		server.mu.Unlock()
	})
}

// Err returns the first protocol violation the server noticed.
func (server *Server) Err() error {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.err
}

// LayerSurfaces returns a copy of every layer surface ever created,
// ordered by id.
func (server *Server) LayerSurfaces() []LayerSurface {
	server.mu.Lock()
	defer server.mu.Unlock()
	out := make([]LayerSurface, 0, len(server.layers))
	for _, layer := range server.layers {
		out = append(out, *layer)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LiveLayerSurfaces returns layer surfaces not yet destroyed.
func (server *Server) LiveLayerSurfaces() []LayerSurface {
	var live []LayerSurface
	for _, layer := range server.LayerSurfaces() {
		if !layer.Destroyed {
			live = append(live, layer)
		}
	}
	return live
}

// Count returns how many times a request was received.
func (server *Server) Count(iface wayland.Interface, opcode uint16) int {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.counts[requestKey{iface, opcode}]
}

// HasInput reports whether the client bound a keyboard and a pointer.
func (server *Server) HasInput() bool {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.keyboard != 0 && server.pointer != 0
}

// SendKeymap delivers an XKB v1 text keymap through a memfd.
func (server *Server) SendKeymap(text string) error {
	fd, err := unix.MemfdCreate("waylandtest-keymap", unix.MFD_CLOEXEC)
	if err != nil {
		return fmt.Errorf("memfd: %w", err)
	}
	data := append([]byte(text), 0)
	if _, err := unix.Write(fd, data); err != nil {
		unix.Close(fd)
		return fmt.Errorf("write keymap: %w", err)
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	if server.keyboard == 0 {
		unix.Close(fd)
		return errors.New("client has no keyboard")
	}
	msg := wayland.NewMessage(server.keyboard, wayland.EventKeyboardKeymap).
		PutUint(wayland.KeymapFormatXKBV1).
		PutFd(fd).
		PutUint(uint32(len(data)))
	err = server.writeLocked(msg)
	unix.Close(fd)
	return err
}

// SendKey delivers a key event with an evdev key code.
func (server *Server) SendKey(key uint32, pressed bool) error {
	state := wayland.KeyStateReleased
	if pressed {
		state = wayland.KeyStatePressed
	}
	server.mu.Lock()
	defer server.mu.Unlock()
	if server.keyboard == 0 {
		return errors.New("client has no keyboard")
	}
	server.serial++
	return server.writeLocked(wayland.NewMessage(server.keyboard, wayland.EventKeyboardKey).
		PutUint(server.serial).PutUint(0).PutUint(key).PutUint(state))
}

// SendModifiers delivers a modifiers event.
func (server *Server) SendModifiers(depressed, latched, locked, group uint32) error {
	server.mu.Lock()
	defer server.mu.Unlock()
	if server.keyboard == 0 {
		return errors.New("client has no keyboard")
	}
	server.serial++
	return server.writeLocked(wayland.NewMessage(server.keyboard, wayland.EventKeyboardModifiers).
		PutUint(server.serial).PutUint(depressed).PutUint(latched).PutUint(locked).PutUint(group))
}

// SendButton delivers a left button event.
func (server *Server) SendButton(pressed bool) error {
	state := wayland.ButtonStateReleased
	if pressed {
		state = wayland.ButtonStatePressed
	}
	server.mu.Lock()
	defer server.mu.Unlock()
	if server.pointer == 0 {
		return errors.New("client has no pointer")
	}
	server.serial++
	return server.writeLocked(wayland.NewMessage(server.pointer, wayland.EventPointerButton).
		PutUint(server.serial).PutUint(0).PutUint(0x110).PutUint(state))
}

// AddOutput announces a new wl_output global and returns its name.
func (server *Server) AddOutput() (uint32, error) {
	server.mu.Lock()
	defer server.mu.Unlock()
	if server.registry == 0 {
		return 0, errors.New("no registry bound")
	}
	name := uint32(10+server.config.Outputs) + server.addedOutputs
	server.addedOutputs++
	err := server.writeLocked(wayland.NewMessage(server.registry, wayland.EventRegistryGlobal).
		PutUint(name).
		PutString(string(wayland.InterfaceOutput)).
		PutUint(4))
	return name, err
}

// RemoveGlobal withdraws the global called name.
func (server *Server) RemoveGlobal(name uint32) error {
	server.mu.Lock()
	defer server.mu.Unlock()
	if server.registry == 0 {
		return errors.New("no registry bound")
	}
	return server.writeLocked(wayland.NewMessage(server.registry, wayland.EventRegistryGlobalRemove).PutUint(name))
}

// SendConfigure resizes a layer surface.
func (server *Server) SendConfigure(layerID, width, height uint32) error {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.configureLocked(layerID, width, height)
}

// SendClosed tells the client a layer surface was closed.
func (server *Server) SendClosed(layerID uint32) error {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.writeLocked(wayland.NewMessage(layerID, wayland.EventLayerSurfaceClosed))
}

func (server *Server) serve() {
	defer close(server.done)
	buf := make([]byte, 8192)
	oob := make([]byte, unix.CmsgSpace(28*4))
	var pending []byte
	for {
		n, oobn, _, _, err := unix.Recvmsg(server.fd, buf, oob, unix.MSG_CMSG_CLOEXEC)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return
		}
		if oobn > 0 {
			server.collectFds(oob[:oobn])
		}
		if n == 0 {
			return
		}
		pending = append(pending, buf[:n]...)
		for {
			sender, opcode, size, ok := wayland.ParseHeader(pending)
			if !ok {
				break
			}
			body := append([]byte(nil), pending[8:size]...)
			pending = pending[size:]
			server.mu.Lock()
			server.handleLocked(sender, opcode, wayland.NewReader(body, nil))
			server.mu.Unlock()
		}
	}
}

func (server *Server) collectFds(oob []byte) {
	messages, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return
	}
	server.mu.Lock()
	defer server.mu.Unlock()
	for i := range messages {
		if fds, err := unix.ParseUnixRights(&messages[i]); err == nil {
			server.fds = append(server.fds, fds...)
		}
	}
}

func (server *Server) handleLocked(sender uint32, opcode uint16, args *wayland.Reader) {
	iface, ok := server.objects[sender]
	if !ok {
		server.failLocked(fmt.Errorf("request %d on unknown object %d", opcode, sender))
		return
	}
	key := requestKey{iface, opcode}
	server.counts[key]++

	switch iface {
	case wayland.InterfaceDisplay:
		server.handleDisplayLocked(opcode, args)
	case wayland.InterfaceRegistry:
		if opcode == wayland.RequestRegistryBind {
			server.handleBindLocked(args)
		}
	case wayland.InterfaceCompositor:
		id := args.Uint()
		switch opcode {
		case wayland.RequestCompositorCreateSurface:
			server.objects[id] = wayland.InterfaceSurface
		case wayland.RequestCompositorCreateRegion:
			server.objects[id] = wayland.InterfaceRegion
			server.regions[id] = 0
		}
	case wayland.InterfaceRegion:
		if opcode == wayland.RequestRegionAdd {
			server.regions[sender]++
		}
	case wayland.InterfaceSurface:
		server.handleSurfaceLocked(sender, opcode, args)
	case wayland.InterfaceShm:
		if opcode == wayland.RequestShmCreatePool {
			id := args.Uint()
			server.objects[id] = wayland.InterfaceShmPool
			if len(server.fds) == 0 {
				server.failLocked(errors.New("create_pool without file descriptor"))
			} else {
				unix.Close(server.fds[0])
				server.fds = server.fds[1:]
			}
		}
	case wayland.InterfaceShmPool:
		if opcode == wayland.RequestShmPoolCreateBuffer {
			server.objects[args.Uint()] = wayland.InterfaceBuffer
		}
	case wayland.InterfaceSeat:
		id := args.Uint()
		switch opcode {
		case wayland.RequestSeatGetKeyboard:
			server.objects[id] = wayland.InterfaceKeyboard
			server.keyboard = id
		case wayland.RequestSeatGetPointer:
			server.objects[id] = wayland.InterfacePointer
			server.pointer = id
		}
	case wayland.InterfaceLayerShell:
		if opcode == wayland.RequestLayerShellGetLayerSurface {
			layer := &LayerSurface{ID: args.Uint(), Surface: args.Uint(), Output: args.Uint(), Layer: args.Uint(), Namespace: args.String()}
			server.objects[layer.ID] = wayland.InterfaceLayerSurface
			server.layers[layer.ID] = layer
			server.surfaceLayer[layer.Surface] = layer.ID
		}
	case wayland.InterfaceLayerSurface:
		server.handleLayerSurfaceLocked(sender, opcode, args)
	}

	if err := args.Err(); err != nil {
		server.failLocked(fmt.Errorf("%s opcode %d: %w", iface, opcode, err))
	}
	if destructors[key] {
		if iface == wayland.InterfaceKeyboard {
			server.keyboard = 0
		}
		if iface == wayland.InterfacePointer {
			server.pointer = 0
		}
		delete(server.objects, sender)
		server.writeLocked(wayland.NewMessage(wayland.DisplayID, wayland.EventDisplayDeleteID).PutUint(sender))
	}
}

func (server *Server) handleDisplayLocked(opcode uint16, args *wayland.Reader) {
	id := args.Uint()
	switch opcode {
	case wayland.RequestDisplaySync:
		server.serial++
		server.writeLocked(wayland.NewMessage(id, wayland.EventCallbackDone).PutUint(server.serial))
		server.writeLocked(wayland.NewMessage(wayland.DisplayID, wayland.EventDisplayDeleteID).PutUint(id))
	case wayland.RequestDisplayGetRegistry:
		server.objects[id] = wayland.InterfaceRegistry
		server.registry = id
		for _, global := range server.globals() {
			server.writeLocked(wayland.NewMessage(id, wayland.EventRegistryGlobal).
				PutUint(global.Name).
				PutString(string(global.Interface)).
				PutUint(global.Version))
		}
	}
}

func (server *Server) globals() []wayland.Global {
	globals := []wayland.Global{
		{Name: 1, Interface: wayland.InterfaceCompositor, Version: 6},
		{Name: 2, Interface: wayland.InterfaceShm, Version: 1},
		{Name: 3, Interface: wayland.InterfaceSeat, Version: 7},
	}
	if !server.config.OmitLayerShell {
		globals = append(globals, wayland.Global{Name: 4, Interface: wayland.InterfaceLayerShell, Version: 4})
	}
	for i := 0; i < server.config.Outputs; i++ {
		globals = append(globals, wayland.Global{Name: uint32(10 + i), Interface: wayland.InterfaceOutput, Version: 4})
	}
	return globals
}

func (server *Server) handleBindLocked(args *wayland.Reader) {
	args.Uint()
	iface := wayland.Interface(args.String())
	args.Uint()
	id := args.Uint()
	server.objects[id] = iface
	switch iface {
	case wayland.InterfaceSeat:
		server.writeLocked(wayland.NewMessage(id, wayland.EventSeatCapabilities).
			PutUint(wayland.SeatCapabilityKeyboard | wayland.SeatCapabilityPointer))
	case wayland.InterfaceOutput:
		server.outputs = append(server.outputs, id)
	}
}

func (server *Server) handleSurfaceLocked(sender uint32, opcode uint16, args *wayland.Reader) {
	layer := server.layers[server.surfaceLayer[sender]]
	switch opcode {
	case wayland.RequestSurfaceAttach:
		if buffer := args.Uint(); buffer != 0 && layer != nil {
			layer.Attaches++
		}
	case wayland.RequestSurfaceSetInputRegion:
		region := args.Uint()
		if layer != nil {
			layer.InputRegion = region
			layer.InputRegionEmpty = region != 0 && server.regions[region] == 0
		}
	case wayland.RequestSurfaceCommit:
		if layer == nil || layer.Destroyed {
			return
		}
		layer.Commits++
		if !layer.Configured {
			layer.Configured = true
			server.configureLocked(layer.ID, server.config.Width, server.config.Height)
		}
	}
}

func (server *Server) handleLayerSurfaceLocked(sender uint32, opcode uint16, args *wayland.Reader) {
	layer := server.layers[sender]
	switch opcode {
	case wayland.RequestLayerSurfaceSetSize:
		layer.Width, layer.Height = args.Uint(), args.Uint()
	case wayland.RequestLayerSurfaceSetAnchor:
		layer.Anchor = args.Uint()
	case wayland.RequestLayerSurfaceSetExclusiveZone:
		layer.ExclusiveZone = args.Int()
	case wayland.RequestLayerSurfaceSetKeyboardInteractivity:
		layer.Interactivity = args.Uint()
	case wayland.RequestLayerSurfaceAckConfigure:
		layer.AckedSerial = args.Uint()
	case wayland.RequestLayerSurfaceDestroy:
		layer.Destroyed = true
		delete(server.surfaceLayer, layer.Surface)
	}
}

func (server *Server) configureLocked(layerID, width, height uint32) error {
	server.serial++
	return server.writeLocked(wayland.NewMessage(layerID, wayland.EventLayerSurfaceConfigure).
		PutUint(server.serial).PutUint(width).PutUint(height))
}

func (server *Server) writeLocked(msg *wayland.Message) error {
	var oob []byte
	if fds := msg.Fds(); len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	data := msg.Bytes()
	for len(data) > 0 {
		n, err := unix.SendmsgN(server.fd, data, oob, nil, unix.MSG_NOSIGNAL)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		oob = nil
		data = data[n:]
	}
	return nil
}

func (server *Server) failLocked(err error) {
	if server.err == nil {
		server.err = err
	}
}
