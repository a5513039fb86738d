package page

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/listsync/internal/model"
)

// Region ids on the list page.
const (
	RegionStats              = "stats"
	RegionSectionsList       = "sections-list"
	RegionManageSectionsList = "manage-sections-list"
)

// KnownRegions are the regions extracted from a full page load.
var KnownRegions = []string{RegionStats, RegionSectionsList, RegionManageSectionsList}

// Seed is the server-provided initial state, applied once at startup.
type Seed struct {
	Stats        model.StatsSummary
	MobileHelper model.MobileHelper
}

// View is the client-side copy of the list page: its named HTML regions,
// the stats summary and the mobile helper preference. It is safe for
// concurrent use.
type View struct {
	logger *slog.Logger

	mu         sync.RWMutex
	regions    map[string]string
	stats      model.StatsSummary
	helper     model.MobileHelper
	seeded     bool
	loads      int
	knownItems map[string]struct{}
	newItems   []string
	location   string

	navigated chan string
}

// NewView creates an empty page view.
func NewView(logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}

	return &View{
		logger:     logger,
		regions:    make(map[string]string),
		helper:     model.MobileHelperButton,
		knownItems: make(map[string]struct{}),
		navigated:  make(chan string, 1),
	}
}

// ApplySeed installs the initial stats and preference. Only the first call
// has any effect; it reports whether the seed was applied.
func (v *View) ApplySeed(seed Seed) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.seeded {
		v.logger.Debug("seed already applied, ignoring")
		return false
	}
	v.seeded = true
	v.stats = seed.Stats
	if seed.MobileHelper != "" {
		v.helper = seed.MobileHelper
	}
	return true
}

// LoadPage replaces every known region from a full page document, as a
// browser reload would. Regions missing from the document are removed.
func (v *View) LoadPage(doc []byte) error {
	regions, err := ExtractRegions(doc, KnownRegions...)
	if err != nil {
		return fmt.Errorf("load page: %w", err)
	}

	known := make(map[string]struct{})
	if list, ok := regions[RegionSectionsList]; ok {
		ids, err := ItemIDs(list)
		if err != nil {
			return fmt.Errorf("load page: %w", err)
		}
		for _, id := range ids {
			known[id] = struct{}{}
		}
	}

	v.mu.Lock()
	v.regions = regions
	v.knownItems = known
	v.newItems = nil
	v.loads++
	v.mu.Unlock()

	v.logger.Info("page loaded", "regions", len(regions), "items", len(known))
	return nil
}

// Loads returns how many full page loads have been applied.
func (v *View) Loads() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loads
}

// HasRegion reports whether a region is present on the page.
func (v *View) HasRegion(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.regions[id]
	return ok
}

// Region returns the current inner HTML of a region.
func (v *View) Region(id string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	html, ok := v.regions[id]
	return html, ok
}

// ReplaceRegion swaps a region's content. Replacing the sections list also
// records which item elements were not there before; see NewItems.
func (v *View) ReplaceRegion(id, html string) error {
	var ids []string
	if id == RegionSectionsList {
		var err error
		if ids, err = ItemIDs(html); err != nil {
			return fmt.Errorf("replace %s: %w", id, err)
		}
	}

	v.mu.Lock()
	v.regions[id] = html

	var fresh []string
	if id == RegionSectionsList {
		known := make(map[string]struct{}, len(ids))
		for _, itemID := range ids {
			if _, ok := v.knownItems[itemID]; !ok {
				fresh = append(fresh, itemID)
			}
			known[itemID] = struct{}{}
		}
		v.knownItems = known
		v.newItems = fresh
	}
	v.mu.Unlock()

	v.logger.Debug("region replaced", "region", id, "bytes", len(html))
	if len(fresh) > 0 {
		v.logger.Info("new items appeared", "items", fresh)
	}
	return nil
}

// NewItems returns the item element ids that appeared in the most recent
// sections list replacement.
func (v *View) NewItems() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.newItems...)
}

// Stats returns the current stats summary.
func (v *View) Stats() model.StatsSummary {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.stats
}

// SetStats replaces the stats summary wholesale.
func (v *View) SetStats(stats model.StatsSummary) {
	v.mu.Lock()
	v.stats = stats
	v.mu.Unlock()

	v.logger.Debug("stats updated",
		"total", stats.TotalItems,
		"completed", stats.CompletedItems,
		"percentage", stats.Percentage,
	)
}

// MobileHelper returns the current mobile helper preference.
func (v *View) MobileHelper() model.MobileHelper {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.helper
}

// SetMobileHelper sets the mobile helper preference.
func (v *View) SetMobileHelper(h model.MobileHelper) {
	v.mu.Lock()
	prev := v.helper
	v.helper = h
	v.mu.Unlock()

	if prev != h {
		v.logger.Info("mobile helper changed", "from", prev, "to", h)
	}
}

// Navigate records that the page was sent elsewhere. The most recent
// location is also delivered on Navigated.
func (v *View) Navigate(location string) {
	v.mu.Lock()
	v.location = location
	v.mu.Unlock()

	select {
	case <-v.navigated:
	default:
	}
	select {
	case v.navigated <- location:
	default:
	}
}

// Location returns the last navigation target, or "" if the page never left.
func (v *View) Location() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.location
}

// Navigated delivers navigation targets as they happen.
func (v *View) Navigated() <-chan string {
	return v.navigated
}
