package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"mediasolver/internal/config"
	"mediasolver/internal/daemonctl"
	"mediasolver/internal/host"
	"mediasolver/internal/host/bridge"
	"mediasolver/internal/hostcall"
)

const bridgeClientName = "mediasolver-preflight"

// CheckBridge opens a bridge session and reports the host product and API
// generation it negotiated.
func CheckBridge(ctx context.Context, cfg *config.Config) Result {
	const name = "Host bridge"

	if cfg.Host.BridgeAddress == "" {
		return Result{Name: name, Detail: "missing host.bridge_address"}
	}
	if !bridge.Reachable(ctx, cfg.Host.BridgeNetwork, cfg.Host.BridgeAddress, cfg.InitTimeout()) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (not reachable, host off?)", cfg.Host.BridgeAddress)}
	}
	d := bridge.Dialer{
		Network:    cfg.Host.BridgeNetwork,
		Address:    cfg.Host.BridgeAddress,
		Generation: cfg.Host.APIGeneration,
		ClientName: bridgeClientName,
	}
	sess, err := hostcall.CallRelease(ctx, cfg.InitTimeout(), "Dial", func() (*bridge.Session, error) {
		return d.DialSession(ctx)
	}, func(late *bridge.Session) {
		if late != nil {
			_ = late.Close()
		}
	})
	if err != nil {
		detail := err.Error()
		switch {
		case hostcall.IsTimeout(err):
			detail = "bridge did not answer the hello exchange"
		case errors.Is(err, host.ErrEngineUnavailable):
			detail = "bridge is up but the scripting engine is not"
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", cfg.Host.BridgeAddress, detail)}
	}
	defer sess.Close()

	product := sess.Product
	if product == "" {
		product = "host"
	}
	if sess.Version != "" {
		product += " " + sess.Version
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s (%s, %s API)", cfg.Host.BridgeAddress, product, sess.Generation().Name()),
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckExecutable verifies that path is a regular file the current user may run.
func CheckExecutable(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not executable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDaemon reports whether a daemon answers on the configured API address.
// A stopped daemon passes; one-shot commands do not need it.
func CheckDaemon(ctx context.Context, cfg *config.Config) Result {
	const name = "Daemon"

	running, pid := daemonctl.ProcessInfo(ctx, cfg)
	if !running {
		return Result{Name: name, Passed: true, Detail: "not running"}
	}
	if pid > 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("running on %s (pid %d)", cfg.Paths.APIBind, pid)}
	}
	return Result{Name: name, Passed: true, Detail: "running on " + cfg.Paths.APIBind}
}
