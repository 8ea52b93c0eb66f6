package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// xvfbReadyTimeout bounds the wait for the display socket.
const xvfbReadyTimeout = 5 * time.Second

// startXvfb runs a virtual display for headful mode on hosts without a
// desktop session and waits until its socket accepts clients.
func (m *Manager) startXvfb(ctx context.Context) error {
	if m.xvfb != nil {
		return nil
	}

	display := m.cfg.XvfbDisplay
	socket, err := xSocket(display)
	if err != nil {
		return err
	}

	cmd := exec.Command("Xvfb", display, "-screen", "0", "1920x1080x24", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start xvfb: %w", err)
	}
	m.xvfb = cmd

	waitCtx, cancel := context.WithTimeout(ctx, xvfbReadyTimeout)
	defer cancel()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if _, err := os.Stat(socket); err == nil {
			break
		}
		select {
		case <-waitCtx.Done():
			m.stopXvfb()
			return fmt.Errorf("xvfb %s not ready: %w", display, waitCtx.Err())
		case <-tick.C:
		}
	}

	m.cfg.Logger.Info("browser: xvfb started", "display", display, "pid", cmd.Process.Pid)
	return nil
}

func (m *Manager) stopXvfb() {
	if m.xvfb == nil {
		return
	}
	if m.xvfb.Process != nil {
		m.xvfb.Process.Kill()
		m.xvfb.Wait()
	}
	m.cfg.Logger.Info("browser: xvfb stopped")
	m.xvfb = nil
}

// xSocket maps a display such as ":99" or ":99.0" to its Unix socket.
func xSocket(display string) (string, error) {
	num, ok := strings.CutPrefix(display, ":")
	if !ok || num == "" {
		return "", fmt.Errorf("xvfb: invalid display %q", display)
	}
	num, _, _ = strings.Cut(num, ".")
	for _, r := range num {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("xvfb: invalid display %q", display)
		}
	}
	return filepath.Join("/tmp/.X11-unix", "X"+num), nil
}
