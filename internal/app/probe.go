package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/shapes-probe/internal/config"
	"github.com/samvad-hq/shapes-probe/internal/logger"
	"github.com/samvad-hq/shapes-probe/internal/storage"
	"github.com/samvad-hq/shapes-probe/pkg/interpret"
	"github.com/samvad-hq/shapes-probe/pkg/reporters"
	"github.com/samvad-hq/shapes-probe/pkg/shapes"
)

const dispatchBuffer = 16

// Probe represents the shapes probe runtime. It owns the facade, the callback
// dispatcher, the outcome history and the reporters, and runs single checks
// or the watch loop.
type Probe struct {
	cfg        *config.Config
	client     *shapes.Client
	dispatcher *shapes.SerialDispatcher
	store      storage.Store
	fanout     *reporters.Fanout
	log        logger.Logger
	out        io.Writer
	interval   time.Duration
}

// Result is one handled outcome.
type Result struct {
	Outcome  shapes.Outcome
	Status   interpret.Status
	IconPath string
}

// NewProbe builds a probe runtime from config.
func NewProbe(ctx context.Context, cfg *config.Config, log logger.Logger, out io.Writer) (*Probe, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = os.Stdout
	}

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		RecordTTL:       cfg.HistoryTTL,
		CleanupInterval: cfg.HistoryCleanupInterval,
	}
	store, err := storage.NewStore(cfg.HistoryType, cfg.HistoryPath, storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init history: %w", err)
	}
	log.InfoObj("history initialized", "history_config", map[string]any{
		"type":                     cfg.HistoryType,
		"path":                     cfg.HistoryPath,
		"ttl_seconds":              int(cfg.HistoryTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.HistoryCleanupInterval.Seconds()),
	})

	dispatcher := shapes.NewSerialDispatcher(dispatchBuffer)
	client, err := shapes.New(shapes.Config{
		HelloURL:  cfg.HelloURL,
		ShapesURL: cfg.ShapesURL,
		APIKey:    cfg.ShapesAPIKey,
	},
		shapes.WithTimeout(cfg.HTTPTimeout),
		shapes.WithDispatcher(dispatcher),
		shapes.WithLogger(log),
	)
	if err != nil {
		dispatcher.Stop()
		_ = store.Close()
		_ = fanout.Close()
		return nil, fmt.Errorf("init shapes client: %w", err)
	}

	return &Probe{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		store:      store,
		fanout:     fanout,
		log:        log,
		out:        out,
		interval:   cfg.WatchInterval,
	}, nil
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*reporters.Fanout, error) {
	fanout, err := reporters.Build(ctx, reporters.DefaultBuilders(), cfg.Reporters, log)
	if err != nil {
		return nil, fmt.Errorf("build reporters: %w", err)
	}
	if len(cfg.Reporters) == 0 {
		return fanout, nil
	}

	summaries := make([]map[string]string, 0, len(cfg.Reporters))
	for _, r := range cfg.Reporters {
		summaries = append(summaries, map[string]string{
			"id":      r.ID,
			"type":    r.Type,
			"notify":  string(r.Notify),
			"enabled": fmt.Sprint(r.IsEnabled()),
		})
	}
	log.InfoObj("reporters configured", "reporters_meta", map[string]any{
		"active":    fanout.Size(),
		"reporters": summaries,
	})
	return fanout, nil
}

// Check fires one independent call per endpoint and waits for every callback.
// Results are returned in the order of eps.
func (p *Probe) Check(ctx context.Context, eps ...shapes.Endpoint) ([]Result, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("probe is not initialized")
	}
	if len(eps) == 0 {
		return nil, fmt.Errorf("no endpoints to check")
	}

	results := make([]Result, len(eps))
	var wg sync.WaitGroup
	for i, ep := range eps {
		i := i
		callback := func(o shapes.Outcome) {
			defer wg.Done()
			results[i] = p.handle(ctx, o)
		}
		switch ep {
		case shapes.EndpointHello:
			wg.Add(1)
			p.client.OnHello(ctx, callback)
		case shapes.EndpointShapes:
			wg.Add(1)
			p.client.OnShapes(ctx, callback)
		default:
			wg.Wait()
			return nil, fmt.Errorf("unknown endpoint %q", ep)
		}
	}
	wg.Wait()
	return results, nil
}

// Watch checks both endpoints every interval until the context is cancelled.
func (p *Probe) Watch(ctx context.Context) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("probe is not initialized")
	}

	p.log.InfoObj("watch loop starting", "watch_state", map[string]any{
		"reporters_count": p.fanout.Size(),
		"interval":        p.interval.String(),
		"hello_url":       p.cfg.HelloURL,
		"shapes_url":      p.cfg.ShapesURL,
	})

	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.InfoObj("watch loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Probe) tick(ctx context.Context) {
	start := time.Now()
	results, err := p.Check(ctx, shapes.EndpointHello, shapes.EndpointShapes)
	if err != nil {
		p.log.ErrorObj("watch tick failed", "error", err)
		return
	}
	ok := 0
	for _, r := range results {
		if r.Status.OK {
			ok++
		}
	}
	p.log.InfoObj("watch tick completed", "tick_meta", map[string]any{
		"checks":     len(results),
		"ok":         ok,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
}

// History returns the most recent recorded outcomes, newest first.
func (p *Probe) History(limit int) ([]storage.Record, error) {
	if p == nil || p.store == nil {
		return nil, fmt.Errorf("probe is not initialized")
	}
	return p.store.Recent(limit)
}

// handle runs on the dispatcher goroutine, one outcome at a time.
func (p *Probe) handle(ctx context.Context, o shapes.Outcome) Result {
	res := Result{Outcome: o, Status: statusFor(o)}
	fmt.Fprintf(p.out, "%-6s %s\n", o.Endpoint, res.Status.Text)

	if dir := strings.TrimSpace(p.cfg.IconDir); dir != "" {
		path, err := interpret.WriteIcon(dir, res.Status.Icon, p.cfg.IconSize)
		if err != nil {
			p.log.WarnObj("icon render failed", "icon_error", map[string]any{
				"icon":  res.Status.Icon,
				"error": err.Error(),
			})
		} else {
			res.IconPath = path
		}
	}

	if err := p.store.Record(storage.Record{
		RequestID:  o.RequestID,
		Endpoint:   string(o.Endpoint),
		Outcome:    o.String(),
		Kind:       o.Kind.String(),
		StatusCode: o.StatusCode,
	}); err != nil {
		p.log.ErrorObj("history record failed", "error", err)
	}

	if p.fanout.Size() > 0 {
		d, err := p.fanout.Report(ctx, reporters.NewEvent(o, res.Status))
		if err != nil {
			p.log.ErrorObj("outcome report failed", "report_error", map[string]any{
				"request_id": o.RequestID,
				"sent":       d.Sent,
				"failed":     d.Failed,
				"error":      err.Error(),
			})
		}
	}
	return res
}

func statusFor(o shapes.Outcome) interpret.Status {
	if o.Endpoint == shapes.EndpointHello {
		return interpret.HelloStatus(o.String())
	}
	return interpret.ShapeStatus(o.String())
}

// Close stops the facade and the dispatcher, then releases reporters and history.
func (p *Probe) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close shapes client: %w", err))
		}
	}
	if p.dispatcher != nil {
		p.dispatcher.Stop()
	}
	if p.fanout != nil {
		if err := p.fanout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close reporters: %w", err))
		}
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			p.log.ErrorObj("history close failed", "error", err)
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	return errors.Join(errs...)
}
