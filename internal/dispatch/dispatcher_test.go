package dispatch

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/rickgao/listsync/internal/model"
)

type fakeRefresher struct {
	mu          sync.Mutex
	fullReloads int
	targeted    int
}

func (r *fakeRefresher) RequestFullReload(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fullReloads++
}

func (r *fakeRefresher) RefreshTargeted(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targeted++
}

func (r *fakeRefresher) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fullReloads, r.targeted
}

type fakePrefs struct {
	values []model.MobileHelper
}

func (p *fakePrefs) SetMobileHelper(h model.MobileHelper) {
	p.values = append(p.values, h)
}

func newTestDispatcher() (*Dispatcher, *fakeRefresher, *fakePrefs) {
	r := &fakeRefresher{}
	p := &fakePrefs{}
	return NewDispatcher(r, p, nil), r, p
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msgType model.MessageType
		want    Class
	}{
		{model.MsgSectionCreated, ClassFullReload},
		{model.MsgSectionUpdated, ClassFullReload},
		{model.MsgSectionDeleted, ClassFullReload},
		{model.MsgSectionsDeleted, ClassFullReload},
		{model.MsgSectionsReordered, ClassFullReload},
		{model.MsgItemCreated, ClassTargeted},
		{model.MsgItemDeleted, ClassTargeted},
		{model.MsgItemMoved, ClassTargeted},
		{model.MsgItemsReordered, ClassTargeted},
		{model.MsgItemToggled, ClassTargeted},
		{model.MsgItemUpdated, ClassTargeted},
		{model.MsgPreferencesUpdated, ClassPreference},
		{model.MsgPong, ClassNone},
		{"item_exploded", ClassNone},
		{"", ClassNone},
		{"ITEM_CREATED", ClassNone},
	}

	for _, tt := range tests {
		t.Run(string(tt.msgType), func(t *testing.T) {
			if got := Classify(tt.msgType); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.msgType, got, tt.want)
			}
		})
	}
}

func TestClassifyProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	properties.Property("types outside the known set are ignored", prop.ForAll(
		func(s string) bool {
			t := model.MessageType(s)
			if IsKnown(t) {
				return true
			}
			return Classify(t) == ClassNone
		},
		gen.AnyString(),
	))

	properties.Property("classification is stable", prop.ForAll(
		func(s string) bool {
			t := model.MessageType(s)
			return Classify(t) == Classify(t)
		},
		gen.AlphaString(),
	))

	properties.Property("item types never trigger a full reload", prop.ForAll(
		func(suffix string) bool {
			return Classify(model.MessageType("item_"+suffix)) != ClassFullReload
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestHandleMessage_FullReload(t *testing.T) {
	d, r, _ := newTestDispatcher()

	d.HandleMessage(context.Background(), []byte(`{"type":"section_created","data":{"id":4}}`))
	d.HandleMessage(context.Background(), []byte(`{"type":"sections_reordered"}`))

	full, targeted := r.counts()
	if full != 2 || targeted != 0 {
		t.Errorf("fullReloads=%d targeted=%d, want 2 and 0", full, targeted)
	}
	if got := d.Stats().FullReloads; got != 2 {
		t.Errorf("Stats().FullReloads = %d, want 2", got)
	}
}

func TestHandleMessage_Targeted(t *testing.T) {
	d, r, _ := newTestDispatcher()

	d.HandleMessage(context.Background(), []byte(`{"type":"item_toggled","data":{"id":7,"completed":true}}`))

	full, targeted := r.counts()
	if full != 0 || targeted != 1 {
		t.Errorf("fullReloads=%d targeted=%d, want 0 and 1", full, targeted)
	}
}

func TestHandleMessage_Preferences(t *testing.T) {
	tests := []struct {
		name      string
		frame     string
		wantPrefs []model.MobileHelper
		wantBad   int64
	}{
		{
			name:      "progress",
			frame:     `{"type":"preferences_updated","data":{"mobile_helper":"progress"}}`,
			wantPrefs: []model.MobileHelper{model.MobileHelperProgress},
		},
		{
			name:      "extra fields ignored",
			frame:     `{"type":"preferences_updated","data":{"mobile_helper":"button","theme":"dark"}}`,
			wantPrefs: []model.MobileHelper{model.MobileHelperButton},
		},
		{
			name:    "invalid value",
			frame:   `{"type":"preferences_updated","data":{"mobile_helper":"sidebar"}}`,
			wantBad: 1,
		},
		{
			name:    "missing field",
			frame:   `{"type":"preferences_updated","data":{}}`,
			wantBad: 1,
		},
		{
			name:    "missing data",
			frame:   `{"type":"preferences_updated"}`,
			wantBad: 1,
		},
		{
			name:    "wrong field type",
			frame:   `{"type":"preferences_updated","data":{"mobile_helper":3}}`,
			wantBad: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, r, p := newTestDispatcher()
			d.HandleMessage(context.Background(), []byte(tt.frame))

			if len(p.values) != len(tt.wantPrefs) {
				t.Fatalf("preference updates = %v, want %v", p.values, tt.wantPrefs)
			}
			for i := range tt.wantPrefs {
				if p.values[i] != tt.wantPrefs[i] {
					t.Errorf("preference[%d] = %q, want %q", i, p.values[i], tt.wantPrefs[i])
				}
			}
			if got := d.Stats().InvalidData; got != tt.wantBad {
				t.Errorf("InvalidData = %d, want %d", got, tt.wantBad)
			}
			if full, targeted := r.counts(); full != 0 || targeted != 0 {
				t.Errorf("preference message triggered refresh: full=%d targeted=%d", full, targeted)
			}
		})
	}
}

func TestHandleMessage_Ignored(t *testing.T) {
	d, r, p := newTestDispatcher()

	frames := []string{
		`{"type":"pong"}`,
		`{"type":"item_exploded"}`,
		`not json`,
		`{"type":`,
		`[1,2,3]`,
		``,
	}
	for _, f := range frames {
		d.HandleMessage(context.Background(), []byte(f))
	}

	if full, targeted := r.counts(); full != 0 || targeted != 0 {
		t.Errorf("refreshes triggered: full=%d targeted=%d", full, targeted)
	}
	if len(p.values) != 0 {
		t.Errorf("preferences changed: %v", p.values)
	}

	stats := d.Stats()
	if stats.Received != int64(len(frames)) {
		t.Errorf("Received = %d, want %d", stats.Received, len(frames))
	}
	if stats.Pongs != 1 {
		t.Errorf("Pongs = %d, want 1", stats.Pongs)
	}
	if stats.Unknown != 1 {
		t.Errorf("Unknown = %d, want 1", stats.Unknown)
	}
	if stats.ParseErrors != 4 {
		t.Errorf("ParseErrors = %d, want 4", stats.ParseErrors)
	}
}

func TestHandleMessage_NeverPanics(t *testing.T) {
	d, _, _ := newTestDispatcher()

	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("arbitrary frames are absorbed", prop.ForAll(
		func(s string) bool {
			d.HandleMessage(context.Background(), []byte(s))
			return true
		},
		gen.AnyString(),
	))

	properties.Property("arbitrary preference payloads are absorbed", prop.ForAll(
		func(v string) bool {
			frame := `{"type":"preferences_updated","data":{"mobile_helper":"` + strings.ReplaceAll(v, `"`, ``) + `"}}`
			d.HandleMessage(context.Background(), []byte(frame))
			return true
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestClass_String(t *testing.T) {
	if ClassFullReload.String() != "full_reload" {
		t.Errorf("ClassFullReload.String() = %q", ClassFullReload.String())
	}
	if Class(42).String() != "class(42)" {
		t.Errorf("Class(42).String() = %q", Class(42).String())
	}
}
