package platform

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"

	"interlude/internal/core/model"
	"interlude/internal/logger"
)

const (
	logindService    = "org.freedesktop.login1"
	logindPath       = dbus.ObjectPath("/org/freedesktop/login1")
	logindManager    = "org.freedesktop.login1.Manager"
	logindSession    = "org.freedesktop.login1.Session"
	propertiesIface  = "org.freedesktop.DBus.Properties"
	propertiesSignal = propertiesIface + ".PropertiesChanged"
)

// loginSession is one row of Manager.ListSessions.
type loginSession struct {
	ID   string
	UID  uint32
	User string
	Seat string
	Path dbus.ObjectPath
}

// WatchSessionLock follows the logind lock state of the current session and
// calls send with EventSessionLocked or EventSessionUnlocked on every edge.
// It blocks until ctx is cancelled or the bus connection drops. Setup
// failures are returned before any event is sent.
func WatchSessionLock(ctx context.Context, log *logger.Logger, send func(model.Event)) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect to system bus: %w", err)
	}
	defer conn.Close()

	path, err := resolveSessionPath(conn)
	if err != nil {
		return err
	}
	log.Debug("watching logind session %s", path)

	session := conn.Object(logindService, path)
	tracker := lockTracker{}
	if variant, err := session.GetProperty(logindSession + ".LockedHint"); err == nil {
		if locked, ok := variant.Value().(bool); ok {
			tracker.locked = locked
		}
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return fmt.Errorf("subscribe to PropertiesChanged: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	for {
		select {
		case <-ctx.Done():
			return nil
		case signal, ok := <-signals:
			if !ok {
				return errors.New("system bus connection closed")
			}
			if signal.Path != path || signal.Name != propertiesSignal {
				continue
			}
			locked, ok := lockFromSignal(signal.Body)
			if !ok || !tracker.observe(locked) {
				continue
			}
			if locked {
				send(model.Event{Kind: model.EventSessionLocked})
			} else {
				send(model.Event{Kind: model.EventSessionUnlocked})
			}
		}
	}
}

func resolveSessionPath(conn *dbus.Conn) (dbus.ObjectPath, error) {
	manager := conn.Object(logindService, logindPath)
	var path dbus.ObjectPath

	if sessionID := os.Getenv("XDG_SESSION_ID"); sessionID != "" {
		if err := manager.Call(logindManager+".GetSession", 0, sessionID).Store(&path); err != nil {
			return "", fmt.Errorf("GetSession %s: %w", sessionID, err)
		}
		return path, nil
	}

	pidErr := manager.Call(logindManager+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path)
	if pidErr == nil {
		return path, nil
	}

	var sessions []loginSession
	if err := manager.Call(logindManager+".ListSessions", 0).Store(&sessions); err != nil {
		return "", fmt.Errorf("GetSessionByPID failed: %v; ListSessions failed: %w", pidErr, err)
	}
	uid := uint32(os.Getuid())
	path, ok := pickSession(sessions, uid, func(candidate dbus.ObjectPath) bool {
		return sessionActive(conn.Object(logindService, candidate))
	})
	if !ok {
		return "", fmt.Errorf("GetSessionByPID failed: %v; no login1 sessions found for uid %d", pidErr, uid)
	}
	return path, nil
}

// pickSession prefers the first active session owned by uid, then the first
// session owned by uid at all.
func pickSession(sessions []loginSession, uid uint32, active func(dbus.ObjectPath) bool) (dbus.ObjectPath, bool) {
	var owned []dbus.ObjectPath
	for _, session := range sessions {
		if session.UID == uid {
			owned = append(owned, session.Path)
		}
	}
	for _, path := range owned {
		if active(path) {
			return path, true
		}
	}
	if len(owned) > 0 {
		return owned[0], true
	}
	return "", false
}

func sessionActive(session dbus.BusObject) bool {
	if variant, err := session.GetProperty(logindSession + ".Active"); err == nil {
		if active, ok := variant.Value().(bool); ok && active {
			return true
		}
	}
	if variant, err := session.GetProperty(logindSession + ".State"); err == nil {
		if state, ok := variant.Value().(string); ok {
			return stateUnlocked(state)
		}
	}
	return false
}

// lockFromSignal decodes a PropertiesChanged body. LockedHint wins over
// State when a signal carries both.
func lockFromSignal(body []interface{}) (bool, bool) {
	if len(body) < 2 {
		return false, false
	}
	iface, ok := body[0].(string)
	if !ok || iface != logindSession {
		return false, false
	}
	changed, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		return false, false
	}
	if variant, found := changed["LockedHint"]; found {
		locked, ok := variant.Value().(bool)
		return locked, ok
	}
	if variant, found := changed["State"]; found {
		state, ok := variant.Value().(string)
		return !stateUnlocked(state), ok
	}
	return false, false
}

func stateUnlocked(state string) bool {
	return state == "active" || state == "online"
}

// lockTracker suppresses repeated values so only edges are reported.
type lockTracker struct {
	locked bool
}

func (tracker *lockTracker) observe(locked bool) bool {
	if locked == tracker.locked {
		return false
	}
	tracker.locked = locked
	return true
}
