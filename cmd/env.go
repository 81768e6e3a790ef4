package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-scout/internal/analysis"
	"github.com/sells-group/site-scout/internal/brands"
	"github.com/sells-group/site-scout/internal/metrics"
	"github.com/sells-group/site-scout/internal/model"
	"github.com/sells-group/site-scout/internal/provider"
	"github.com/sells-group/site-scout/internal/ratelimit"
	"github.com/sells-group/site-scout/internal/resilience"
	"github.com/sells-group/site-scout/internal/store"
	"github.com/sells-group/site-scout/pkg/gaode"
)

// initStore opens the configured store and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// ensureDir creates the parent directory of a file-backed sqlite path.
func ensureDir(dsn string) error {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	return eris.Wrapf(os.MkdirAll(dir, 0o755), "create store dir %s", dir)
}

// initProvider builds the process-wide Gaode provider. Every caller shares its limiter.
func initProvider() *provider.Gaode {
	opts := []gaode.Option{gaode.WithTimeout(cfg.Gaode.Timeout())}
	if cfg.Gaode.BaseURL != "" {
		opts = append(opts, gaode.WithBaseURL(cfg.Gaode.BaseURL))
	}
	client := gaode.NewClient(cfg.Gaode.Key, opts...)

	lim := ratelimit.New(cfg.Gaode.RequestsPerMinute)
	zap.L().Debug("gaode provider",
		zap.Bool("has_key", client.HasKey()),
		zap.Bool("unlimited", lim.Unlimited()),
		zap.Duration("min_interval", lim.Interval()),
	)
	return provider.NewGaode(client, lim, cfg.Gaode.PageSize)
}

// initService wires the analysis service over st and prov.
func initService(st store.Store, prov provider.Provider) *analysis.Service {
	var analyses store.AnalysisStore = st
	if cfg.Cache.MemoSize > 0 {
		analyses = store.NewMemoAnalysisStore(st, cfg.Cache.MemoSize)
	}

	poiAge := store.Unbounded
	if cfg.Analysis.BoundedPOIReads {
		poiAge = store.Within(cfg.Cache.POITTL())
	}

	return analysis.New(prov, st, analyses,
		analysis.WithPOITTL(poiAge),
		analysis.WithAnalysisTTL(cfg.Cache.AnalysisTTL()),
		analysis.WithStatsTTL(cfg.Cache.POITTL()),
		analysis.WithNetworkFetch(cfg.Analysis.AllowNetworkFetch),
		analysis.WithPageSize(cfg.Gaode.PageSize),
		analysis.WithRateLimitRetry(resilience.FromRetryConfig(
			cfg.Refresh.RateLimitRetries,
			cfg.Refresh.InitialBackoffMs,
			cfg.Refresh.MaxBackoffMs,
		)),
	)
}

// startMetrics serves the metrics endpoint in the background when an address is
// configured. The returned func stops it.
func startMetrics(ctx context.Context, db metrics.Pinger) func() {
	if cfg.Metrics.Addr == "" {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := metrics.Serve(ctx, cfg.Metrics.Addr, db); err != nil {
			zap.L().Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// loadCatalog reads the brand presets named in config.
func loadCatalog() (*brands.Catalog, error) {
	path := ""
	if cfg != nil {
		path = cfg.Brands.PresetsPath
	}
	return brands.Load(path)
}

// resolveKeywords merges the --keywords list with the keywords of a named preset.
// The preset's main brand comes first.
func resolveKeywords(cat *brands.Catalog, list, presetName string) ([]string, string, error) {
	var keywords []string
	mainBrand := ""
	if strings.TrimSpace(presetName) != "" {
		p, ok := cat.Find(presetName)
		if !ok {
			return nil, "", eris.Errorf("unknown preset %q", presetName)
		}
		keywords = append(keywords, p.Keywords()...)
		mainBrand = p.MainBrand
	}
	keywords = model.NormalizeKeywords(append(keywords, model.ParseKeywordList(list)...))
	if len(keywords) == 0 {
		return nil, "", eris.New("at least one keyword is required (--keywords or --preset)")
	}
	return keywords, mainBrand, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}
