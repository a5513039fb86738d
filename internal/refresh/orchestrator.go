package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/listsync/internal/api"
	"github.com/rickgao/listsync/internal/model"
	"github.com/rickgao/listsync/internal/page"
)

// Fetcher is the subset of the HTTP client the orchestrator reads from.
type Fetcher interface {
	Page(ctx context.Context) ([]byte, error)
	Fragment(ctx context.Context, path string) ([]byte, error)
	Stats(ctx context.Context) (model.StatsSummary, error)
	Preferences(ctx context.Context) (model.Preferences, error)
}

// Resetter clears local interaction state on a full reload.
type Resetter interface {
	Reset()
}

// regionSource says where a list region's fresh content comes from.
type regionSource struct {
	region string
	path   string
	// selectRegion extracts the region's inner HTML from a full page
	// instead of using the whole response body.
	selectRegion bool
}

// listRegions are refreshed in this order.
var listRegions = []regionSource{
	{region: page.RegionSectionsList, path: "/", selectRegion: true},
	{region: page.RegionManageSectionsList, path: "/sections/list"},
}

// Stats contains runtime counters.
type Stats struct {
	FullReloads       int64
	RegionRefreshes   int64
	RegionsSkipped    int64
	StatsRefreshes    int64
	Failures          int64
	SuppressedByRoute int64 // responses that redirected instead of swapping
}

// Orchestrator keeps the page view consistent with the server.
type Orchestrator struct {
	fetcher Fetcher
	view    *page.View
	state   Resetter
	logger  *slog.Logger

	wg sync.WaitGroup

	mu    sync.RWMutex
	stats Stats
}

// NewOrchestrator creates a new Refresh Orchestrator.
func NewOrchestrator(fetcher Fetcher, view *page.View, state Resetter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		fetcher: fetcher,
		view:    view,
		state:   state,
		logger:  logger,
	}
}

// FullReload discards local interaction state and reloads the whole page,
// including stats and preferences.
func (o *Orchestrator) FullReload(ctx context.Context) error {
	o.count(func(s *Stats) { s.FullReloads++ })
	o.logger.Info("full reload")

	if o.state != nil {
		o.state.Reset()
	}

	doc, err := o.fetcher.Page(ctx)
	if err != nil {
		o.fail(err, "reload page")
		return fmt.Errorf("reload page: %w", err)
	}
	if err := o.view.LoadPage(doc); err != nil {
		o.count(func(s *Stats) { s.Failures++ })
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		o.RefreshStats(ctx)
		return nil
	})
	g.Go(func() error {
		prefs, err := o.fetcher.Preferences(ctx)
		if err != nil {
			o.fail(err, "reload preferences")
			return nil
		}
		if helper, err := model.ParseMobileHelper(string(prefs.MobileHelper)); err == nil {
			o.view.SetMobileHelper(helper)
		} else {
			o.logger.Warn("ignoring stored preference", "error", err)
		}
		return nil
	})
	return g.Wait()
}

// RequestFullReload runs FullReload in the background.
func (o *Orchestrator) RequestFullReload(ctx context.Context) {
	o.goTracked(func() {
		if err := o.FullReload(ctx); err != nil {
			o.logger.Warn("full reload failed", "error", err)
		}
	})
}

// RefreshList re-fetches every list region present on the page. Regions
// are independent: one failing does not stop the next.
func (o *Orchestrator) RefreshList(ctx context.Context) {
	for _, src := range listRegions {
		if !o.view.HasRegion(src.region) {
			o.count(func(s *Stats) { s.RegionsSkipped++ })
			continue
		}
		if err := o.refreshRegion(ctx, src); err != nil {
			o.fail(err, "refresh region", "region", src.region)
			continue
		}
		o.count(func(s *Stats) { s.RegionRefreshes++ })
	}
}

func (o *Orchestrator) refreshRegion(ctx context.Context, src regionSource) error {
	body, err := o.fetcher.Fragment(ctx, src.path)
	if err != nil {
		return err
	}

	content := string(body)
	if src.selectRegion {
		inner, ok, err := page.InnerHTML(body, src.region)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("response from %s has no #%s", src.path, src.region)
		}
		content = inner
	}

	return o.view.ReplaceRegion(src.region, content)
}

// RefreshStats re-fetches the stats summary. On failure the previous
// summary is kept.
func (o *Orchestrator) RefreshStats(ctx context.Context) {
	stats, err := o.fetcher.Stats(ctx)
	if err != nil {
		o.fail(err, "refresh stats")
		return
	}
	o.view.SetStats(stats)
	o.count(func(s *Stats) { s.StatsRefreshes++ })
}

// RefreshTargeted starts RefreshList and RefreshStats concurrently and
// returns without waiting for them.
func (o *Orchestrator) RefreshTargeted(ctx context.Context) {
	o.goTracked(func() { o.RefreshList(ctx) })
	o.goTracked(func() { o.RefreshStats(ctx) })
}

// Wait blocks until every background refresh has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Stats returns current statistics.
func (o *Orchestrator) Stats() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stats
}

func (o *Orchestrator) goTracked(f func()) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		f()
	}()
}

// fail logs a refresh failure. Redirects are expected when the session
// ends and only suppress the swap.
func (o *Orchestrator) fail(err error, msg string, args ...any) {
	if api.IsRedirect(err) {
		o.count(func(s *Stats) { s.SuppressedByRoute++ })
		o.logger.Info(msg+" redirected", append(args, "error", err)...)
		return
	}
	o.count(func(s *Stats) { s.Failures++ })
	o.logger.Warn(msg+" failed", append(args, "error", err)...)
}

func (o *Orchestrator) count(f func(*Stats)) {
	o.mu.Lock()
	f(&o.stats)
	o.mu.Unlock()
}
