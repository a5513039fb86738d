package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/listsync/internal/model"
)

// Class is the reaction a message type calls for.
type Class int

const (
	ClassNone Class = iota
	ClassFullReload
	ClassTargeted
	ClassPreference
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassFullReload:
		return "full_reload"
	case ClassTargeted:
		return "targeted"
	case ClassPreference:
		return "preference"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Classify maps a message type to its reaction. Unknown types are ClassNone.
func Classify(t model.MessageType) Class {
	switch t {
	case model.MsgSectionCreated,
		model.MsgSectionUpdated,
		model.MsgSectionDeleted,
		model.MsgSectionsDeleted,
		model.MsgSectionsReordered:
		return ClassFullReload

	case model.MsgItemCreated,
		model.MsgItemDeleted,
		model.MsgItemMoved,
		model.MsgItemsReordered,
		model.MsgItemToggled,
		model.MsgItemUpdated:
		return ClassTargeted

	case model.MsgPreferencesUpdated:
		return ClassPreference

	default:
		return ClassNone
	}
}

// IsKnown reports whether t is a message type the server emits.
func IsKnown(t model.MessageType) bool {
	return Classify(t) != ClassNone || t == model.MsgPong
}

// Refresher performs the page refreshes a message calls for. Both calls
// must return without waiting for the refresh to finish.
type Refresher interface {
	RequestFullReload(ctx context.Context)
	RefreshTargeted(ctx context.Context)
}

// PreferenceSink receives mobile helper changes pushed by the server.
type PreferenceSink interface {
	SetMobileHelper(model.MobileHelper)
}

// Stats contains runtime counters.
type Stats struct {
	Received          int64
	FullReloads       int64
	Targeted          int64
	PreferenceUpdates int64
	Pongs             int64
	ParseErrors       int64
	Unknown           int64
	InvalidData       int64
}

// Dispatcher decodes inbound frames and triggers the matching refresh.
type Dispatcher struct {
	refresher Refresher
	prefs     PreferenceSink
	logger    *slog.Logger

	mu    sync.RWMutex
	stats Stats
}

// NewDispatcher creates a new Message Dispatcher.
func NewDispatcher(refresher Refresher, prefs PreferenceSink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		refresher: refresher,
		prefs:     prefs,
		logger:    logger,
	}
}

// HandleMessage processes one inbound frame. It never panics on bad input.
func (d *Dispatcher) HandleMessage(ctx context.Context, data []byte) {
	d.count(func(s *Stats) { s.Received++ })

	var msg model.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		d.logger.Warn("failed to parse message", "error", err, "size", len(data))
		d.count(func(s *Stats) { s.ParseErrors++ })
		return
	}

	d.logger.Debug("message received", "type", msg.Type)

	switch Classify(msg.Type) {
	case ClassFullReload:
		d.count(func(s *Stats) { s.FullReloads++ })
		d.refresher.RequestFullReload(ctx)

	case ClassTargeted:
		d.count(func(s *Stats) { s.Targeted++ })
		d.refresher.RefreshTargeted(ctx)

	case ClassPreference:
		d.applyPreference(msg.Data)

	default:
		if msg.Type == model.MsgPong {
			d.count(func(s *Stats) { s.Pongs++ })
			return
		}
		d.logger.Info("unknown message type", "type", msg.Type)
		d.count(func(s *Stats) { s.Unknown++ })
	}
}

// applyPreference reads data.mobile_helper; other fields are ignored.
func (d *Dispatcher) applyPreference(data json.RawMessage) {
	var payload struct {
		MobileHelper *string `json:"mobile_helper"`
	}
	if len(data) == 0 || string(data) == "null" {
		d.logger.Warn("preferences_updated without data")
		d.count(func(s *Stats) { s.InvalidData++ })
		return
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		d.logger.Warn("failed to parse preferences_updated data", "error", err)
		d.count(func(s *Stats) { s.InvalidData++ })
		return
	}
	if payload.MobileHelper == nil {
		d.logger.Warn("preferences_updated without mobile_helper")
		d.count(func(s *Stats) { s.InvalidData++ })
		return
	}

	helper, err := model.ParseMobileHelper(*payload.MobileHelper)
	if err != nil {
		d.logger.Warn("ignoring preference update", "error", err)
		d.count(func(s *Stats) { s.InvalidData++ })
		return
	}

	d.count(func(s *Stats) { s.PreferenceUpdates++ })
	if d.prefs != nil {
		d.prefs.SetMobileHelper(helper)
	}
}

// Stats returns current statistics.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

func (d *Dispatcher) count(f func(*Stats)) {
	d.mu.Lock()
	f(&d.stats)
	d.mu.Unlock()
}
