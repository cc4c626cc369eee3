// Package systemd integrates the agent with the service manager via
// sd_notify. Everything is a no-op outside a systemd unit.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "tickd/pkg/logx"
)

// Notifier sends readiness and watchdog notifications.
type Notifier struct {
	log logx.Logger
}

func NewNotifier(log logx.Logger) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{log: log}
}

// Ready signals that startup finished.
func (n *Notifier) Ready() {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		n.log.Warn("sd_notify READY failed", logx.Err(err))
		return
	}
	if sent {
		n.log.Debug("sd_notify READY sent")
	}
}

// Stopping signals that shutdown began.
func (n *Notifier) Stopping() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}

// RunWatchdog pings WATCHDOG=1 at half the unit's WatchdogSec until ctx
// ends. Returns immediately when the watchdog is not enabled.
func (n *Notifier) RunWatchdog(ctx context.Context) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return err
	}
	if interval == 0 {
		n.log.Debug("systemd watchdog not enabled")
		return nil
	}

	tick := interval / 2
	if tick < time.Second {
		tick = time.Second
	}
	n.log.Info("systemd watchdog enabled", logx.Duration("interval", tick))

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				n.log.Warn("sd_notify WATCHDOG failed", logx.Err(err))
			}
		}
	}
}
