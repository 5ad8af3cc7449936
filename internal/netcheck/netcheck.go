// Package netcheck implements the network-reachability precondition run
// before every measurement.
package netcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNoNetwork is returned when the precondition fails.
var ErrNoNetwork = errors.New("network unavailable")

// DefaultTargets are queried when no targets are configured.
var DefaultTargets = []string{
	"1.1.1.1:53",
	"8.8.8.8:53",
	"https://www.google.com",
}

// DefaultTimeout bounds each individual target probe.
const DefaultTimeout = 3 * time.Second

// Checker verifies that the local network is up and that at least one
// internet target is reachable.
type Checker struct {
	Targets []string
	Timeout time.Duration

	// Local checks the local network. Defaults to requiring an up,
	// non-loopback interface with an address.
	Local func() error

	// Logger receives per-target debug output. Defaults to slog.Default().
	Logger *slog.Logger

	client *resty.Client
	dialer *net.Dialer
}

// New creates a Checker for the given targets. An empty list uses
// DefaultTargets; a zero timeout uses DefaultTimeout.
func New(targets []string, timeout time.Duration) *Checker {
	if len(targets) == 0 {
		targets = DefaultTargets
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		Targets: targets,
		Timeout: timeout,
		Local:   localInterface,
		Logger:  slog.Default(),
		client:  resty.New().SetTimeout(timeout),
		dialer:  &net.Dialer{Timeout: timeout},
	}
}

// Require returns nil when the network is usable, or an error wrapping
// ErrNoNetwork.
func (c *Checker) Require(ctx context.Context) error {
	if c.Local != nil {
		if err := c.Local(); err != nil {
			return fmt.Errorf("%w: local network: %w", ErrNoNetwork, err)
		}
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for _, target := range c.Targets {
		err := c.probe(ctx, target)
		if err == nil {
			logger.Debug("network target reachable", "target", target)
			return nil
		}
		logger.Debug("network target unreachable", "target", target, "error", err)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no targets configured")
	}
	return fmt.Errorf("%w: %w", ErrNoNetwork, lastErr)
}

func (c *Checker) probe(ctx context.Context, target string) error {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		// Any HTTP response, including an error status, proves reachability
		_, err := c.client.R().SetContext(ctx).Head(target)
		return err
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return err
	}
	return conn.Close()
}

func localInterface() error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return nil
		}
	}
	return errors.New("no active non-loopback interface")
}

// Skip is a checker that always passes.
type Skip struct{}

// Require implements task.NetworkChecker.
func (Skip) Require(ctx context.Context) error { return nil }
