package state

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/rickgao/listsync/internal/model"
)

// Mutator is the subset of the HTTP client the actions write through.
type Mutator interface {
	BatchDeleteSections(ctx context.Context, ids []int64) error
	ToggleUncertain(ctx context.Context, itemID int64) error
	MoveItem(ctx context.Context, itemID, sectionID int64) error
	DeleteItem(ctx context.Context, itemID int64) error
	UpdateItem(ctx context.Context, itemID int64, name, description string) error
	ToggleMobileHelper(ctx context.Context) (model.MobileHelper, error)
}

// Refresher re-synchronizes the page after a mutation.
type Refresher interface {
	FullReload(ctx context.Context) error
	RefreshList(ctx context.Context)
	RefreshStats(ctx context.Context)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc is a function adapter for Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// AlwaysConfirm accepts every prompt.
var AlwaysConfirm = ConfirmFunc(func(string) bool { return true })

// PreferenceSink receives the mobile helper value the server settled on.
type PreferenceSink interface {
	SetMobileHelper(model.MobileHelper)
}

// Actions are the user-facing handlers. Each one reads its target from
// State, issues at most one mutating request and changes State only when
// that request succeeded.
type Actions struct {
	api       Mutator
	refresher Refresher
	confirm   Confirmer
	prefs     PreferenceSink
	logger    *slog.Logger
}

// NewActions wires the handlers. A nil confirmer confirms everything.
func NewActions(api Mutator, refresher Refresher, confirm Confirmer, prefs PreferenceSink, logger *slog.Logger) *Actions {
	if logger == nil {
		logger = slog.Default()
	}
	if confirm == nil {
		confirm = AlwaysConfirm
	}

	return &Actions{
		api:       api,
		refresher: refresher,
		confirm:   confirm,
		prefs:     prefs,
		logger:    logger,
	}
}

// ToggleSection adds id to the selection, or removes it if present.
func (a *Actions) ToggleSection(st *State, id int64) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if i := slices.Index(st.selected, id); i >= 0 {
		st.selected = slices.Delete(st.selected, i, i+1)
		return
	}
	st.selected = append(st.selected, id)
}

// DeleteSelectedSections deletes every selected section after
// confirmation, then reloads the page.
func (a *Actions) DeleteSelectedSections(ctx context.Context, st *State) error {
	ids := st.SelectedSections()
	if len(ids) == 0 {
		a.logger.Debug("no sections selected")
		return nil
	}

	if !a.confirm.Confirm(fmt.Sprintf("Delete %d selected sections?", len(ids))) {
		a.logger.Debug("section delete declined", "count", len(ids))
		return nil
	}

	if err := a.api.BatchDeleteSections(ctx, ids); err != nil {
		a.logger.Error("failed to delete sections", "ids", ids, "error", err)
		return fmt.Errorf("delete sections: %w", err)
	}

	st.mu.Lock()
	st.selectMode = false
	st.selected = nil
	st.mu.Unlock()

	a.logger.Info("sections deleted", "ids", ids)
	return a.refresher.FullReload(ctx)
}

// OpenMobileAction targets item with the quick-action menu.
func (a *Actions) OpenMobileAction(st *State, item model.Item) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.mobileAction = model.NewMobileActionTarget(item)
}

// CloseMobileAction clears the quick-action target.
func (a *Actions) CloseMobileAction(st *State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.mobileAction = nil
}

// ToggleUncertain flips the target's uncertain flag.
func (a *Actions) ToggleUncertain(ctx context.Context, st *State) error {
	target := st.MobileAction()
	if target == nil {
		return nil
	}

	if err := a.api.ToggleUncertain(ctx, target.ID); err != nil {
		a.logger.Error("failed to toggle uncertain", "item_id", target.ID, "error", err)
		return fmt.Errorf("toggle uncertain: %w", err)
	}

	st.mu.Lock()
	if st.mobileAction != nil {
		st.mobileAction.Uncertain = !st.mobileAction.Uncertain
	}
	st.mu.Unlock()

	a.refresher.RefreshList(ctx)
	return nil
}

// MoveToSection moves the target to sectionID and closes the menu.
func (a *Actions) MoveToSection(ctx context.Context, st *State, sectionID int64) error {
	target := st.MobileAction()
	if target == nil {
		return nil
	}

	if err := a.api.MoveItem(ctx, target.ID, sectionID); err != nil {
		a.logger.Error("failed to move item", "item_id", target.ID, "section_id", sectionID, "error", err)
		return fmt.Errorf("move item: %w", err)
	}

	st.mu.Lock()
	st.mobileAction = nil
	st.mu.Unlock()

	a.refresher.RefreshList(ctx)
	return nil
}

// DeleteItem deletes the target after confirmation.
func (a *Actions) DeleteItem(ctx context.Context, st *State) error {
	target := st.MobileAction()
	if target == nil {
		return nil
	}

	if !a.confirm.Confirm(fmt.Sprintf("Delete %q?", target.Name)) {
		a.logger.Debug("item delete declined", "item_id", target.ID)
		return nil
	}

	if err := a.api.DeleteItem(ctx, target.ID); err != nil {
		a.logger.Error("failed to delete item", "item_id", target.ID, "error", err)
		return fmt.Errorf("delete item: %w", err)
	}

	st.mu.Lock()
	st.mobileAction = nil
	st.mu.Unlock()

	a.refresher.RefreshList(ctx)
	a.refresher.RefreshStats(ctx)
	return nil
}

// EditItem starts editing item with its current name and description.
func (a *Actions) EditItem(st *State, item model.Item) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.editing = &model.EditingItem{
		Item:        item,
		Name:        item.Name,
		Description: item.Description,
	}
}

// CancelEdit drops the edit buffer.
func (a *Actions) CancelEdit(st *State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.editing = nil
}

// SubmitEditItem saves the edit buffer. An empty name after trimming is
// not submitted.
func (a *Actions) SubmitEditItem(ctx context.Context, st *State) error {
	editing := st.Editing()
	if editing == nil {
		return nil
	}

	name := strings.TrimSpace(editing.Name)
	if name == "" {
		a.logger.Debug("edit not submitted, empty name", "item_id", editing.Item.ID)
		return nil
	}
	description := strings.TrimSpace(editing.Description)

	if err := a.api.UpdateItem(ctx, editing.Item.ID, name, description); err != nil {
		a.logger.Error("failed to save edit", "item_id", editing.Item.ID, "error", err)
		return fmt.Errorf("update item: %w", err)
	}

	st.mu.Lock()
	st.editing = nil
	st.mu.Unlock()

	a.refresher.RefreshList(ctx)
	return nil
}

// ToggleMobileHelper flips the preference on the server and adopts the
// value it returns.
func (a *Actions) ToggleMobileHelper(ctx context.Context) (model.MobileHelper, error) {
	helper, err := a.api.ToggleMobileHelper(ctx)
	if err != nil {
		a.logger.Error("failed to toggle mobile helper", "error", err)
		return "", fmt.Errorf("toggle mobile helper: %w", err)
	}

	if a.prefs != nil {
		a.prefs.SetMobileHelper(helper)
	}
	return helper, nil
}
