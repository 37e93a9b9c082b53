package overlay

import (
	"fmt"

	"golang.org/x/sys/unix"

	"interlude/internal/ui/animation"
	"interlude/internal/wayland"
)

func (overlay *Client) handleEvent(event wayland.Event) {
	var err error
	switch event.Interface {
	case wayland.InterfaceRegistry:
		err = overlay.handleRegistry(event)
	case wayland.InterfaceSeat:
		err = overlay.handleSeat(event)
	case wayland.InterfaceKeyboard:
		err = overlay.handleKeyboard(event)
	case wayland.InterfacePointer:
		err = overlay.handlePointer(event)
	case wayland.InterfaceLayerSurface:
		err = overlay.handleLayerSurface(event)
	}
	if err != nil {
		overlay.log.Warn("%s event %d: %v", event.Interface, event.Opcode, err)
	}
}

func (overlay *Client) handleRegistry(event wayland.Event) error {
	switch event.Opcode {
	case wayland.EventRegistryGlobal:
		global, err := wayland.ReadGlobal(event.Args)
		if err != nil {
			return err
		}
		overlay.bindGlobal(global)
	case wayland.EventRegistryGlobalRemove:
		name := event.Args.Uint()
		if err := event.Args.Err(); err != nil {
			return err
		}
		overlay.removeOutput(name)
	}
	return nil
}

func (overlay *Client) bindGlobal(global wayland.Global) {
	bind := func(version uint32) wayland.Proxy {
		return overlay.registry.Bind(global.Name, global.Interface, min(global.Version, version))
	}
	switch global.Interface {
	case wayland.InterfaceCompositor:
		if !overlay.compositor.Valid() {
			overlay.compositor = wayland.AsCompositor(bind(wayland.VersionCompositor))
		}
	case wayland.InterfaceShm:
		if !overlay.shm.Valid() {
			overlay.shm = wayland.AsShm(bind(wayland.VersionShm))
		}
	case wayland.InterfaceSeat:
		if !overlay.seat.Valid() {
			overlay.seat = wayland.AsSeat(bind(wayland.VersionSeat))
		}
	case wayland.InterfaceLayerShell:
		if !overlay.layerShell.Valid() {
			overlay.layerShell = wayland.AsLayerShell(bind(wayland.VersionLayerShell))
		}
	case wayland.InterfaceOutput:
		out := output{name: global.Name, proxy: wayland.AsOutput(bind(wayland.VersionOutput))}
		overlay.outputs = append(overlay.outputs, out)
		if overlay.active {
			// Keep one surface per output while shown; its configure
			// triggers the first draw.
			overlay.createSurface(out)
		}
		overlay.log.Debug("output %d added", global.Name)
	}
}

func (overlay *Client) removeOutput(name uint32) {
	for i, out := range overlay.outputs {
		if out.name != name {
			continue
		}
		for j, entry := range overlay.surfaces {
			if entry.outputName == name {
				entry.destroy()
				delete(overlay.byLayer, entry.layer.ID())
				overlay.surfaces = append(overlay.surfaces[:j], overlay.surfaces[j+1:]...)
				break
			}
		}
		out.proxy.Release()
		overlay.outputs = append(overlay.outputs[:i], overlay.outputs[i+1:]...)
		overlay.log.Debug("output %d removed", name)
		return
	}
}

func (overlay *Client) handleSeat(event wayland.Event) error {
	if event.Opcode != wayland.EventSeatCapabilities {
		return nil
	}
	caps := event.Args.Uint()
	if err := event.Args.Err(); err != nil {
		return err
	}

	hasKeyboard := caps&wayland.SeatCapabilityKeyboard != 0
	switch {
	case hasKeyboard && !overlay.keyboard.Valid():
		overlay.keyboard = overlay.seat.GetKeyboard()
	case !hasKeyboard && overlay.keyboard.Valid():
		overlay.keyboard.Release()
		overlay.keyboard = wayland.Keyboard{}
		overlay.router.ResetKeyboard()
	}

	hasPointer := caps&wayland.SeatCapabilityPointer != 0
	switch {
	case hasPointer && !overlay.pointer.Valid():
		overlay.pointer = overlay.seat.GetPointer()
	case !hasPointer && overlay.pointer.Valid():
		overlay.pointer.Release()
		overlay.pointer = wayland.Pointer{}
	}
	return nil
}

func (overlay *Client) handleKeyboard(event wayland.Event) error {
	args := event.Args
	switch event.Opcode {
	case wayland.EventKeyboardKeymap:
		format := args.Uint()
		fd := args.Fd()
		size := args.Uint()
		if err := args.Err(); err != nil {
			if fd >= 0 {
				unix.Close(fd)
			}
			return err
		}
		data, err := readKeymap(fd, size)
		if err != nil {
			overlay.router.ResetKeyboard()
			return err
		}
		if err := overlay.router.HandleKeymap(format, data); err != nil {
			return fmt.Errorf("keymap unusable, using fallback keys: %w", err)
		}
		overlay.log.Debug("keymap loaded (%d bytes)", size)
	case wayland.EventKeyboardKey:
		args.Uint()
		args.Uint()
		key := args.Uint()
		state := args.Uint()
		if err := args.Err(); err != nil {
			return err
		}
		overlay.router.HandleKey(key, state == wayland.KeyStatePressed)
	case wayland.EventKeyboardModifiers:
		args.Uint()
		depressed, latched, locked, group := args.Uint(), args.Uint(), args.Uint(), args.Uint()
		if err := args.Err(); err != nil {
			return err
		}
		overlay.router.HandleModifiers(depressed, latched, locked, group)
	}
	return nil
}

// readKeymap copies size bytes of keymap text out of fd and closes it.
func readKeymap(fd int, size uint32) ([]byte, error) {
	defer unix.Close(fd)
	if size == 0 {
		return nil, fmt.Errorf("read keymap: empty")
	}
	mapped, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("map keymap: %w", err)
	}
	data := append([]byte(nil), mapped...)
	if err := unix.Munmap(mapped); err != nil {
		return nil, fmt.Errorf("unmap keymap: %w", err)
	}
	return data, nil
}

func (overlay *Client) handlePointer(event wayland.Event) error {
	if event.Opcode != wayland.EventPointerButton {
		return nil
	}
	args := event.Args
	args.Uint()
	args.Uint()
	args.Uint()
	state := args.Uint()
	if err := args.Err(); err != nil {
		return err
	}
	overlay.router.HandlePointerButton(state == wayland.ButtonStatePressed)
	return nil
}

func (overlay *Client) handleLayerSurface(event wayland.Event) error {
	entry := overlay.byLayer[event.Sender]
	switch event.Opcode {
	case wayland.EventLayerSurfaceConfigure:
		serial, width, height := event.Args.Uint(), event.Args.Uint(), event.Args.Uint()
		if err := event.Args.Err(); err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		entry.layer.AckConfigure(serial)
		if width > 0 {
			entry.width = int(width)
		}
		if height > 0 {
			entry.height = int(height)
		}
		if entry.width > 0 && entry.height > 0 {
			entry.dirty = true
			if overlay.active {
				overlay.applyInputRegion(entry)
				entry.surface.Commit()
			}
		}
	case wayland.EventLayerSurfaceClosed:
		if entry == nil {
			return nil
		}
		overlay.log.Info("overlay surface closed by compositor")
		// Only the closed surface is gone on the server. The others still
		// hold input and are torn down normally.
		for _, sibling := range overlay.surfaces {
			if sibling != entry {
				sibling.destroy()
			}
		}
		overlay.active = false
		overlay.surfaces = overlay.surfaces[:0]
		clear(overlay.byLayer)
		overlay.inputCaptured = false
		overlay.desiredCapture = false
		// A fade-out has nothing left to fade. A fade-in keeps running so a
		// relock resumes it.
		if overlay.fade.Kind() == animation.KindOut {
			overlay.fade.Cancel()
		}
	}
	return nil
}
