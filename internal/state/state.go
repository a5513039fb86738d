package state

import (
	"slices"
	"sync"

	"github.com/rickgao/listsync/internal/model"
)

// State is the client's local interaction state. It is safe for
// concurrent use.
type State struct {
	mu                 sync.RWMutex
	selectMode         bool
	selected           []int64
	mobileAction       *model.MobileActionTarget
	editing            *model.EditingItem
	showManageSections bool
	showAddItem        bool
}

// Snapshot is a point-in-time copy of State.
type Snapshot struct {
	SelectMode         bool
	SelectedSections   []int64
	MobileAction       *model.MobileActionTarget
	Editing            *model.EditingItem
	ShowManageSections bool
	ShowAddItem        bool
}

// New returns an empty State.
func New() *State {
	return &State{}
}

// Snapshot copies the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		SelectMode:         s.selectMode,
		SelectedSections:   slices.Clone(s.selected),
		MobileAction:       cloneTarget(s.mobileAction),
		Editing:            cloneEditing(s.editing),
		ShowManageSections: s.showManageSections,
		ShowAddItem:        s.showAddItem,
	}
}

// Reset clears everything. A full reload starts from here.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selectMode = false
	s.selected = nil
	s.mobileAction = nil
	s.editing = nil
	s.showManageSections = false
	s.showAddItem = false
}

// SelectMode reports whether section multi-select is on.
func (s *State) SelectMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectMode
}

// SetSelectMode turns section multi-select on or off.
func (s *State) SetSelectMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectMode = on
}

// SelectedSections returns the selected section ids in selection order.
func (s *State) SelectedSections() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.selected)
}

// MobileAction returns a copy of the quick-action target, or nil.
func (s *State) MobileAction() *model.MobileActionTarget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTarget(s.mobileAction)
}

// Editing returns a copy of the edit buffer, or nil when not editing.
func (s *State) Editing() *model.EditingItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEditing(s.editing)
}

// SetEditFields updates the buffered name and description. It does
// nothing when no edit is in progress.
func (s *State) SetEditFields(name, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing == nil {
		return
	}
	s.editing.Name = name
	s.editing.Description = description
}

// ShowManageSections reports whether the section management modal is open.
func (s *State) ShowManageSections() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showManageSections
}

// SetShowManageSections opens or closes the section management modal.
func (s *State) SetShowManageSections(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showManageSections = on
}

// ShowAddItem reports whether the add-item modal is open.
func (s *State) ShowAddItem() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showAddItem
}

// SetShowAddItem opens or closes the add-item modal.
func (s *State) SetShowAddItem(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showAddItem = on
}

func cloneTarget(t *model.MobileActionTarget) *model.MobileActionTarget {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneEditing(e *model.EditingItem) *model.EditingItem {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
