package wayland

// Interface is a protocol interface name as advertised by wl_registry.
type Interface string

const (
	InterfaceDisplay      Interface = "wl_display"
	InterfaceRegistry     Interface = "wl_registry"
	InterfaceCallback     Interface = "wl_callback"
	InterfaceCompositor   Interface = "wl_compositor"
	InterfaceSurface      Interface = "wl_surface"
	InterfaceRegion       Interface = "wl_region"
	InterfaceShm          Interface = "wl_shm"
	InterfaceShmPool      Interface = "wl_shm_pool"
	InterfaceBuffer       Interface = "wl_buffer"
	InterfaceSeat         Interface = "wl_seat"
	InterfaceKeyboard     Interface = "wl_keyboard"
	InterfacePointer      Interface = "wl_pointer"
	InterfaceOutput       Interface = "wl_output"
	InterfaceLayerShell   Interface = "zwlr_layer_shell_v1"
	InterfaceLayerSurface Interface = "zwlr_layer_surface_v1"
)

// Highest interface versions this client speaks.
const (
	VersionCompositor uint32 = 4
	VersionShm        uint32 = 1
	VersionSeat       uint32 = 5
	VersionOutput     uint32 = 3
	VersionLayerShell uint32 = 4
)

// Request opcodes.
const (
	RequestDisplaySync        uint16 = 0
	RequestDisplayGetRegistry uint16 = 1

	RequestRegistryBind uint16 = 0

	RequestCompositorCreateSurface uint16 = 0
	RequestCompositorCreateRegion  uint16 = 1

	RequestSurfaceDestroy        uint16 = 0
	RequestSurfaceAttach         uint16 = 1
	RequestSurfaceDamage         uint16 = 2
	RequestSurfaceSetInputRegion uint16 = 5
	RequestSurfaceCommit         uint16 = 6
	RequestSurfaceDamageBuffer   uint16 = 9

	RequestRegionDestroy uint16 = 0
	RequestRegionAdd     uint16 = 1

	RequestShmCreatePool uint16 = 0

	RequestShmPoolCreateBuffer uint16 = 0
	RequestShmPoolDestroy      uint16 = 1

	RequestBufferDestroy uint16 = 0

	RequestSeatGetPointer  uint16 = 0
	RequestSeatGetKeyboard uint16 = 1
	RequestSeatRelease     uint16 = 3

	RequestPointerRelease  uint16 = 1
	RequestKeyboardRelease uint16 = 0
	RequestOutputRelease   uint16 = 0

	RequestLayerShellGetLayerSurface uint16 = 0

	RequestLayerSurfaceSetSize                  uint16 = 0
	RequestLayerSurfaceSetAnchor                uint16 = 1
	RequestLayerSurfaceSetExclusiveZone         uint16 = 2
	RequestLayerSurfaceSetKeyboardInteractivity uint16 = 4
	RequestLayerSurfaceAckConfigure             uint16 = 6
	RequestLayerSurfaceDestroy                  uint16 = 7
)

// Event opcodes.
const (
	EventDisplayError    uint16 = 0
	EventDisplayDeleteID uint16 = 1

	EventRegistryGlobal       uint16 = 0
	EventRegistryGlobalRemove uint16 = 1

	EventCallbackDone uint16 = 0

	EventSeatCapabilities uint16 = 0

	EventKeyboardKeymap    uint16 = 0
	EventKeyboardKey       uint16 = 3
	EventKeyboardModifiers uint16 = 4

	EventPointerButton uint16 = 3

	EventLayerSurfaceConfigure uint16 = 0
	EventLayerSurfaceClosed    uint16 = 1
)

// Enumerations.
const (
	SeatCapabilityPointer  uint32 = 1
	SeatCapabilityKeyboard uint32 = 2

	KeymapFormatXKBV1 uint32 = 1

	KeyStateReleased uint32 = 0
	KeyStatePressed  uint32 = 1

	ButtonStateReleased uint32 = 0
	ButtonStatePressed  uint32 = 1

	ShmFormatARGB8888 uint32 = 0

	LayerOverlay uint32 = 3

	AnchorTop    uint32 = 1
	AnchorBottom uint32 = 2
	AnchorLeft   uint32 = 4
	AnchorRight  uint32 = 8
	AnchorAll    uint32 = AnchorTop | AnchorBottom | AnchorLeft | AnchorRight

	KeyboardInteractivityNone      uint32 = 0
	KeyboardInteractivityExclusive uint32 = 1
)

// eventFds reports how many descriptors an event carries.
func eventFds(iface Interface, opcode uint16) int {
	if iface == InterfaceKeyboard && opcode == EventKeyboardKeymap {
		return 1
	}
	return 0
}

// Proxy is the client side handle of a protocol object.
type Proxy struct {
	conn    *Conn
	id      uint32
	version uint32
}

// ID returns the object id; zero for a null proxy.
func (proxy Proxy) ID() uint32 { return proxy.id }

// Version returns the bound interface version.
func (proxy Proxy) Version() uint32 { return proxy.version }

// Valid reports whether the proxy refers to an object.
func (proxy Proxy) Valid() bool { return proxy.conn != nil && proxy.id != 0 }

func (proxy Proxy) request(opcode uint16) *Message {
	return NewMessage(proxy.id, opcode)
}

func (proxy Proxy) child(iface Interface) Proxy {
	return Proxy{conn: proxy.conn, id: proxy.conn.newObject(iface), version: proxy.version}
}

func (proxy Proxy) destroy(opcode uint16) {
	if !proxy.Valid() {
		return
	}
	proxy.conn.send(proxy.request(opcode))
	proxy.conn.forget(proxy.id)
}

// Display is wl_display.
type Display struct{ Proxy }

// GetRegistry creates the registry object.
func (display Display) GetRegistry() Registry {
	registry := display.child(InterfaceRegistry)
	display.conn.send(display.request(RequestDisplayGetRegistry).PutObject(registry.id))
	return Registry{registry}
}

// Registry is wl_registry.
type Registry struct{ Proxy }

// Bind binds a global at version, returning a proxy of interface iface.
func (registry Registry) Bind(name uint32, iface Interface, version uint32) Proxy {
	bound := Proxy{conn: registry.conn, id: registry.conn.newObject(iface), version: version}
	registry.conn.send(registry.request(RequestRegistryBind).
		PutUint(name).
		PutString(string(iface)).
		PutUint(version).
		PutObject(bound.id))
	return bound
}

// Compositor is wl_compositor.
type Compositor struct{ Proxy }

// CreateSurface creates a wl_surface.
func (compositor Compositor) CreateSurface() Surface {
	surface := compositor.child(InterfaceSurface)
	compositor.conn.send(compositor.request(RequestCompositorCreateSurface).PutObject(surface.id))
	return Surface{surface}
}

// CreateRegion creates an empty wl_region.
func (compositor Compositor) CreateRegion() Region {
	region := compositor.child(InterfaceRegion)
	compositor.conn.send(compositor.request(RequestCompositorCreateRegion).PutObject(region.id))
	return Region{region}
}

// Surface is wl_surface.
type Surface struct{ Proxy }

// Attach attaches a buffer at the surface origin.
func (surface Surface) Attach(buffer Buffer) {
	surface.conn.send(surface.request(RequestSurfaceAttach).PutObject(buffer.id).PutInt(0).PutInt(0))
}

// DamageBuffer marks a buffer-coordinate rectangle as changed. Version 3
// surfaces fall back to surface-coordinate damage.
func (surface Surface) DamageBuffer(x, y, width, height int32) {
	opcode := RequestSurfaceDamageBuffer
	if surface.version < 4 {
		opcode = RequestSurfaceDamage
	}
	surface.conn.send(surface.request(opcode).PutInt(x).PutInt(y).PutInt(width).PutInt(height))
}

// SetInputRegion sets the input region. A zero Region means the whole
// surface accepts input.
func (surface Surface) SetInputRegion(region Region) {
	surface.conn.send(surface.request(RequestSurfaceSetInputRegion).PutObject(region.id))
}

// Commit applies pending state.
func (surface Surface) Commit() {
	surface.conn.send(surface.request(RequestSurfaceCommit))
}

// Destroy destroys the surface.
func (surface Surface) Destroy() { surface.destroy(RequestSurfaceDestroy) }

// Region is wl_region.
type Region struct{ Proxy }

// Add adds a rectangle to the region.
func (region Region) Add(x, y, width, height int32) {
	region.conn.send(region.request(RequestRegionAdd).PutInt(x).PutInt(y).PutInt(width).PutInt(height))
}

// Destroy destroys the region.
func (region Region) Destroy() { region.destroy(RequestRegionDestroy) }

// Shm is wl_shm.
type Shm struct{ Proxy }

// CreatePool creates a pool backed by fd. The connection takes ownership
// of fd and closes it after sending.
func (shm Shm) CreatePool(fd int, size int32) ShmPool {
	pool := shm.child(InterfaceShmPool)
	shm.conn.send(shm.request(RequestShmCreatePool).PutObject(pool.id).PutFd(fd).PutInt(size))
	return ShmPool{pool}
}

// ShmPool is wl_shm_pool.
type ShmPool struct{ Proxy }

// CreateBuffer creates a buffer inside the pool.
func (pool ShmPool) CreateBuffer(offset, width, height, stride int32, format uint32) Buffer {
	buffer := pool.child(InterfaceBuffer)
	pool.conn.send(pool.request(RequestShmPoolCreateBuffer).
		PutObject(buffer.id).
		PutInt(offset).
		PutInt(width).
		PutInt(height).
		PutInt(stride).
		PutUint(format))
	return Buffer{buffer}
}

// Destroy destroys the pool. Buffers created from it stay valid.
func (pool ShmPool) Destroy() { pool.destroy(RequestShmPoolDestroy) }

// Buffer is wl_buffer.
type Buffer struct{ Proxy }

// Destroy destroys the buffer.
func (buffer Buffer) Destroy() { buffer.destroy(RequestBufferDestroy) }

// Seat is wl_seat.
type Seat struct{ Proxy }

// GetKeyboard creates the seat keyboard.
func (seat Seat) GetKeyboard() Keyboard {
	keyboard := seat.child(InterfaceKeyboard)
	seat.conn.send(seat.request(RequestSeatGetKeyboard).PutObject(keyboard.id))
	return Keyboard{keyboard}
}

// GetPointer creates the seat pointer.
func (seat Seat) GetPointer() Pointer {
	pointer := seat.child(InterfacePointer)
	seat.conn.send(seat.request(RequestSeatGetPointer).PutObject(pointer.id))
	return Pointer{pointer}
}

// Keyboard is wl_keyboard.
type Keyboard struct{ Proxy }

// Release releases the keyboard; older seats simply forget it.
func (keyboard Keyboard) Release() {
	if keyboard.version >= 3 {
		keyboard.destroy(RequestKeyboardRelease)
		return
	}
	keyboard.conn.forget(keyboard.id)
}

// Pointer is wl_pointer.
type Pointer struct{ Proxy }

// Release releases the pointer; older seats simply forget it.
func (pointer Pointer) Release() {
	if pointer.version >= 3 {
		pointer.destroy(RequestPointerRelease)
		return
	}
	pointer.conn.forget(pointer.id)
}

// Output is wl_output.
type Output struct{ Proxy }

// Release releases the output.
func (output Output) Release() {
	if output.version >= 3 {
		output.destroy(RequestOutputRelease)
		return
	}
	output.conn.forget(output.id)
}

// LayerShell is zwlr_layer_shell_v1.
type LayerShell struct{ Proxy }

// GetLayerSurface assigns the layer surface role to surface on output.
func (shell LayerShell) GetLayerSurface(surface Surface, output Output, layer uint32, namespace string) LayerSurface {
	layerSurface := shell.child(InterfaceLayerSurface)
	shell.conn.send(shell.request(RequestLayerShellGetLayerSurface).
		PutObject(layerSurface.id).
		PutObject(surface.id).
		PutObject(output.id).
		PutUint(layer).
		PutString(namespace))
	return LayerSurface{layerSurface}
}

// LayerSurface is zwlr_layer_surface_v1.
type LayerSurface struct{ Proxy }

// SetSize requests a size; zero on an axis means fill the anchored span.
func (surface LayerSurface) SetSize(width, height uint32) {
	surface.conn.send(surface.request(RequestLayerSurfaceSetSize).PutUint(width).PutUint(height))
}

// SetAnchor anchors the surface to output edges.
func (surface LayerSurface) SetAnchor(anchor uint32) {
	surface.conn.send(surface.request(RequestLayerSurfaceSetAnchor).PutUint(anchor))
}

// SetExclusiveZone sets the exclusive zone; -1 ignores other zones.
func (surface LayerSurface) SetExclusiveZone(zone int32) {
	surface.conn.send(surface.request(RequestLayerSurfaceSetExclusiveZone).PutInt(zone))
}

// SetKeyboardInteractivity selects whether the surface takes keyboard focus.
func (surface LayerSurface) SetKeyboardInteractivity(mode uint32) {
	surface.conn.send(surface.request(RequestLayerSurfaceSetKeyboardInteractivity).PutUint(mode))
}

// AckConfigure acknowledges a configure event.
func (surface LayerSurface) AckConfigure(serial uint32) {
	surface.conn.send(surface.request(RequestLayerSurfaceAckConfigure).PutUint(serial))
}

// Destroy destroys the layer surface.
func (surface LayerSurface) Destroy() { surface.destroy(RequestLayerSurfaceDestroy) }

// Global is a wl_registry.global announcement.
type Global struct {
	Name      uint32
	Interface Interface
	Version   uint32
}

// ReadGlobal decodes a wl_registry.global event.
func ReadGlobal(args *Reader) (Global, error) {
	global := Global{Name: args.Uint(), Interface: Interface(args.String()), Version: args.Uint()}
	return global, args.Err()
}

// AsCompositor wraps a proxy bound to wl_compositor.
func AsCompositor(proxy Proxy) Compositor { return Compositor{proxy} }

// AsShm wraps a proxy bound to wl_shm.
func AsShm(proxy Proxy) Shm { return Shm{proxy} }

// AsSeat wraps a proxy bound to wl_seat.
func AsSeat(proxy Proxy) Seat { return Seat{proxy} }

// AsOutput wraps a proxy bound to wl_output.
func AsOutput(proxy Proxy) Output { return Output{proxy} }

// AsLayerShell wraps a proxy bound to zwlr_layer_shell_v1.
func AsLayerShell(proxy Proxy) LayerShell { return LayerShell{proxy} }
