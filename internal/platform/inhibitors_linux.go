package platform

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"interlude/internal/logger"
)

// Inhibitor is one row of Manager.ListInhibitors.
type Inhibitor struct {
	What string
	Who  string
	Why  string
	Mode string
	UID  uint32
	PID  uint32
}

// Blocks reports whether the inhibitor holds off idle or sleep in block mode.
func (inhibitor Inhibitor) Blocks() bool {
	if inhibitor.Mode != "block" {
		return false
	}
	for _, what := range strings.Split(inhibitor.What, ":") {
		if what == "idle" || what == "sleep" {
			return true
		}
	}
	return false
}

type logindInhibitors struct {
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
	list     func() ([]Inhibitor, error)

	mu        sync.Mutex
	conn      *dbus.Conn
	lastCheck time.Time
	checked   bool
	cached    bool
}

// NewInhibitorProvider queries logind at most once per interval and reuses
// the previous answer in between or when the bus is unreachable.
func NewInhibitorProvider(log *logger.Logger, interval time.Duration) InhibitorProvider {
	provider := &logindInhibitors{
		log:      log,
		interval: interval,
		now:      time.Now,
	}
	provider.list = provider.listInhibitors
	return provider
}

func (provider *logindInhibitors) Inhibited() bool {
	provider.mu.Lock()
	defer provider.mu.Unlock()

	now := provider.now()
	if provider.checked && now.Sub(provider.lastCheck) < provider.interval {
		return provider.cached
	}
	provider.checked = true
	provider.lastCheck = now

	inhibitors, err := provider.list()
	if err != nil {
		provider.log.WarnOnce("inhibitors", "inhibitor check failed: %v", err)
		return provider.cached
	}
	provider.cached = false
	for _, inhibitor := range inhibitors {
		if inhibitor.Blocks() {
			provider.log.Debug("inhibited by %s (%s)", inhibitor.Who, inhibitor.Why)
			provider.cached = true
			break
		}
	}
	return provider.cached
}

func (provider *logindInhibitors) listInhibitors() ([]Inhibitor, error) {
	if provider.conn == nil {
		conn, err := dbus.ConnectSystemBus()
		if err != nil {
			return nil, fmt.Errorf("connect to system bus: %w", err)
		}
		provider.conn = conn
	}
	var inhibitors []Inhibitor
	manager := provider.conn.Object(logindService, logindPath)
	if err := manager.Call(logindManager+".ListInhibitors", 0).Store(&inhibitors); err != nil {
		return nil, fmt.Errorf("ListInhibitors: %w", err)
	}
	return inhibitors, nil
}
