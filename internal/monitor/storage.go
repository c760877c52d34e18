package monitor

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"pegasus/internal/logging"
)

// StorageMonitor listens for udev block partition add/remove events, the
// signal that removable storage holding ROMs came or went.
type StorageMonitor struct {
	logger   *slog.Logger
	onChange func(action, device string)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewStorageMonitor returns a monitor calling onChange for matching events.
func NewStorageMonitor(logger *slog.Logger, onChange func(action, device string)) *StorageMonitor {
	return &StorageMonitor{
		logger:   logging.NewComponentLogger(logger, "storage-monitor"),
		onChange: onChange,
	}
}

// Start connects to the udev netlink socket. A connection failure is logged
// and not returned: watch mode keeps working without hot-plug rescans.
func (m *StorageMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "netlink connect failed; storage hot-plug ignored", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the process may open netlink sockets"),
			logging.String(logging.FieldImpact, "attach or remove storage, then run a manual rescan"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true
	go m.loop(ctx, conn, m.quit)

	m.logger.Info("storage monitor started", logging.String(logging.FieldEventType, "storage_monitor_started"))
	return nil
}

// Stop closes the netlink connection.
func (m *StorageMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.quit)
	m.quit = nil
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Info("storage monitor stopped", logging.String(logging.FieldEventType, "storage_monitor_stopped"))
}

// Running reports whether the monitor is connected.
func (m *StorageMonitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *StorageMonitor) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildStorageMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "a storage change may be missed"),
			)
		}
	}
}

// buildStorageMatcher matches SUBSYSTEM=block, DEVTYPE=partition|disk,
// ACTION=add|remove.
func buildStorageMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"DEVTYPE":   "partition|disk",
		},
	})
	return rules
}

func (m *StorageMonitor) handleEvent(uevent netlink.UEvent) {
	device := deviceName(uevent)
	if device == "" {
		m.logger.Debug("ignoring event without device name", logging.String("kobj", uevent.KObj))
		return
	}
	m.logger.Info("storage change detected",
		logging.String(logging.FieldEventType, "storage_changed"),
		logging.String("device", device),
		logging.String("action", string(uevent.Action)),
	)
	if m.onChange != nil {
		m.onChange(string(uevent.Action), device)
	}
}

func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if strings.HasPrefix(devname, "/") {
			return devname
		}
		return "/dev/" + devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
