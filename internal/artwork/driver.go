package artwork

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"stencil/internal/config"
)

// Driver invokes the external document-automation tool once per handoff.
type Driver interface {
	Generate(ctx context.Context) error
	Available() error
}

type execDriver struct {
	path    string
	args    []string
	timeout time.Duration
	settle  time.Duration
}

// NewDriver builds the default exec-based driver from configuration.
func NewDriver(cfg *config.Config) Driver {
	timeout := time.Duration(cfg.Artwork.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 17 * time.Second
	}
	settle := time.Duration(cfg.Artwork.SettleSeconds) * time.Second
	return &execDriver{
		path:    cfg.Artwork.DriverPath,
		args:    cfg.Artwork.DriverArgs,
		timeout: timeout,
		settle:  settle,
	}
}

// Generate runs the driver and waits the configured settle delay so the
// artifact finishes flushing to disk before the caller polls for it.
func (d *execDriver) Generate(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, d.path, d.args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("driver timed out after %s", d.timeout)
		}
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			return fmt.Errorf("driver failed: %w: %s", err, detail)
		}
		return fmt.Errorf("driver failed: %w", err)
	}

	if d.settle > 0 {
		timer := time.NewTimer(d.settle)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Available reports whether the driver binary exists and is runnable.
func (d *execDriver) Available() error {
	if strings.TrimSpace(d.path) == "" {
		return fmt.Errorf("driver path not configured")
	}
	info, err := os.Stat(d.path)
	if err != nil {
		return fmt.Errorf("driver not found at %s: %w", d.path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("driver path %s is a directory", d.path)
	}
	return nil
}
