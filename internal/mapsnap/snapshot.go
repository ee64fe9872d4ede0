// Package mapsnap rasterizes a map centred on a coordinate into a PNG by
// rendering a Leaflet page in a headless Chromium.
package mapsnap

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Renderer produces a PNG map snapshot for a coordinate.
type Renderer interface {
	Snapshot(ctx context.Context, at Coordinate) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, at Coordinate) ([]byte, error)

func (f RendererFunc) Snapshot(ctx context.Context, at Coordinate) ([]byte, error) {
	return f(ctx, at)
}

// ErrClosed is returned by a pooled snapshotter after Close.
var ErrClosed = errors.New("snapshotter closed")

// BrowserSnapshotter renders map pages with go-rod. With the PerCall
// lifetime every snapshot launches its own browser; with Pooled the first
// snapshot launches one that is reused until Close.
type BrowserSnapshotter struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	closed   bool
	browser  *rod.Browser
	launch   *launcher.Launcher
	poolCtx  context.Context
	poolStop context.CancelFunc
}

// NewBrowserSnapshotter creates a snapshotter. No browser is started until
// the first Snapshot.
func NewBrowserSnapshotter(cfg Config, logger *zap.Logger) *BrowserSnapshotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BrowserSnapshotter{cfg: cfg, logger: logger, poolCtx: ctx, poolStop: cancel}
}

// Snapshot renders the map page for at and returns the PNG screenshot. The
// scratch page is removed before returning, on success or failure.
func (s *BrowserSnapshotter) Snapshot(ctx context.Context, at Coordinate) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
	defer cancel()

	pagePath, err := s.writeScratch(at)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(pagePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove scratch map page", zap.String("path", pagePath), zap.Error(err))
		}
	}()

	browser, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.GetViewportWidth(),
		Height:            s.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := page.Navigate(fileURL(pagePath)); err != nil {
		return nil, fmt.Errorf("open map page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for map page load: %w", err)
	}
	if err := page.Wait(rod.Eval(`() => window.` + readyFlag + ` === true`)); err != nil {
		return nil, fmt.Errorf("wait for map tiles at %s: %w", at, err)
	}

	png, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	s.logger.Debug("map snapshot captured",
		zap.Stringer("at", at),
		zap.Int("bytes", len(png)),
		zap.String("lifetime", string(s.cfg.GetLifetime())))
	return png, nil
}

// Close shuts down a pooled browser. It is a no-op for PerCall.
func (s *BrowserSnapshotter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.poolStop()
	return s.teardownLocked()
}

func (s *BrowserSnapshotter) writeScratch(at Coordinate) (string, error) {
	f, err := os.CreateTemp(s.cfg.ScratchDir, "informes-map-*.html")
	if err != nil {
		return "", fmt.Errorf("create scratch map page: %w", err)
	}
	if err := WriteMapHTML(f, s.cfg.OptionsFor(at)); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close scratch map page: %w", err)
	}
	return f.Name(), nil
}

// acquire returns a connected browser and the function that releases it.
// Launching and connecting are bounded by ctx in both lifetimes; a pooled
// browser process outlives ctx and is bound to the snapshotter instead.
func (s *BrowserSnapshotter) acquire(ctx context.Context) (*rod.Browser, func(), error) {
	if s.cfg.GetLifetime() == Pooled || s.cfg.DebuggerURL != "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return nil, nil, ErrClosed
		}
		if s.browser != nil {
			if _, err := s.browser.Context(ctx).Version(); err == nil {
				return s.browser, func() {}, nil
			}
			if ctx.Err() != nil {
				return nil, nil, fmt.Errorf("check browser connection: %w", ctx.Err())
			}
			s.logger.Warn("stale browser connection, relaunching")
			_ = s.teardownLocked()
		}
		b, l, err := s.start(ctx, s.poolCtx)
		if err != nil {
			return nil, nil, err
		}
		s.browser, s.launch = b.Context(context.Background()), l
		return s.browser, func() {}, nil
	}

	b, l, err := s.start(ctx, ctx)
	if err != nil {
		return nil, nil, err
	}
	return b, func() { closeBrowser(b, l) }, nil
}

// start connects to DebuggerURL or launches a fresh browser. ctx bounds the
// launch and the connection; the launched process lives as long as procCtx.
func (s *BrowserSnapshotter) start(ctx, procCtx context.Context) (*rod.Browser, *launcher.Launcher, error) {
	controlURL := s.cfg.DebuggerURL
	var l *launcher.Launcher
	kill := func() {}
	if controlURL == "" {
		l = launcher.New().Context(procCtx).Headless(s.cfg.Headless)
		if s.cfg.Bin != "" {
			l = l.Bin(s.cfg.Bin)
		}
		kill = l.Kill
		u, err := await(ctx, l.Launch, kill)
		if err != nil {
			return nil, nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		s.logger.Debug("browser launched", zap.String("control_url", controlURL))
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	connect := func() (struct{}, error) { return struct{}{}, b.Connect() }
	if _, err := await(ctx, connect, kill); err != nil {
		kill()
		return nil, nil, fmt.Errorf("connect to browser: %w", err)
	}
	return b, l, nil
}

// await runs fn and returns its result, or ctx's error once ctx is done, in
// which case abort is called so fn can unwind.
func await[T any](ctx context.Context, fn func() (T, error), abort func()) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil {
			return r.v, fmt.Errorf("%w: %v", ctx.Err(), r.err)
		}
		return r.v, r.err
	case <-ctx.Done():
		abort()
		var zero T
		return zero, ctx.Err()
	}
}

// teardownLocked closes a browser this snapshotter launched. Attached
// browsers (DebuggerURL) are left running.
func (s *BrowserSnapshotter) teardownLocked() error {
	if s.browser != nil && s.launch != nil {
		closeBrowser(s.browser, s.launch)
	}
	s.browser, s.launch = nil, nil
	return nil
}

func closeBrowser(b *rod.Browser, l *launcher.Launcher) {
	_ = b.Close()
	if l != nil {
		l.Kill()
		l.Cleanup()
	}
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}
