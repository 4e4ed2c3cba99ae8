package role

import (
	"context"
	"log/slog"
	"regexp"
	"sync"

	"github.com/teeworlds-nats/bridge/internal/config"
	"github.com/teeworlds-nats/bridge/internal/otel"
	"github.com/teeworlds-nats/bridge/internal/transform"
)

// RunHandler drives the transformer role: it connects the broker and runs
// one transform.Run goroutine per configured path, blocking until every
// path's subscriber loop has returned.
func RunHandler(ctx context.Context, cfg config.Config, logger *slog.Logger, provider *otel.Provider) error {
	if logger == nil {
		logger = slog.Default()
	}
	router, client, err := connectBroker(ctx, cfg, provider)
	if err != nil {
		return err
	}
	defer client.Close()

	paths := buildPaths(cfg.Paths, logger)

	var wg sync.WaitGroup
	for _, path := range paths {
		path := path
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := transform.Run(ctx, router, path, logger); err != nil && ctx.Err() == nil {
				logger.Warn("transform path exited", "error", err)
			}
		}()
	}
	wg.Wait()
	return nil
}

// buildPaths converts every config.PathConfig into a transform.Path,
// assigning Index by slice position (so "{{0}}" in a queue template
// resolves to the path's own index) and compiling its regex and
// blocklist entries. A path whose regex set is entirely uncompilable is
// skipped with a warning rather than failing the whole role.
func buildPaths(configs []config.PathConfig, logger *slog.Logger) []transform.Path {
	paths := make([]transform.Path, 0, len(configs))
	for i, c := range configs {
		path := transform.Path{
			Index: i,
			From:  c.From,
			To:    c.To,
			Queue: c.Queue,
			Auto:  c.Auto,
			Args:  c.Args,
		}
		for _, pattern := range c.Regex {
			re, err := regexp.Compile(pattern)
			if err != nil {
				logger.Warn("invalid path regex, skipping rule", "pattern", pattern, "error", err)
				continue
			}
			path.Rules = append(path.Rules, re)
		}
		if !c.Auto && len(c.Regex) > 0 && len(path.Rules) == 0 {
			logger.Warn("no path regex compiled, skipping path", "path_index", i)
			continue
		}
		for _, b := range c.Block {
			re, err := regexp.Compile(b.Pattern)
			if err != nil {
				logger.Warn("invalid block pattern, skipping rule", "pattern", b.Pattern, "error", err)
				continue
			}
			path.Block = append(path.Block, transform.BlockRule{Pattern: re, Replacement: b.Replacement})
		}
		paths = append(paths, path)
	}
	return paths
}
