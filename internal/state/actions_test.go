package state

import (
	"context"
	"net/http"
	"reflect"
	"testing"

	"github.com/rickgao/listsync/internal/api"
	"github.com/rickgao/listsync/internal/listtest"
	"github.com/rickgao/listsync/internal/model"
	"github.com/rickgao/listsync/internal/page"
	"github.com/rickgao/listsync/internal/refresh"
)

// recordingConfirmer answers every prompt with answer and keeps the prompts.
type recordingConfirmer struct {
	answer  bool
	prompts []string
}

func (c *recordingConfirmer) Confirm(prompt string) bool {
	c.prompts = append(c.prompts, prompt)
	return c.answer
}

type fixture struct {
	srv     *listtest.Server
	view    *page.View
	st      *State
	orch    *refresh.Orchestrator
	confirm *recordingConfirmer
	actions *Actions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := listtest.NewServer(t)
	view := page.NewView(nil)
	client := api.NewClient(srv.URL, api.WithNavigator(view))
	st := New()
	orch := refresh.NewOrchestrator(client, view, st, nil)
	confirm := &recordingConfirmer{answer: true}

	if err := view.LoadPage([]byte(listtest.DefaultPage)); err != nil {
		t.Fatalf("LoadPage failed: %v", err)
	}

	return &fixture{
		srv:     srv,
		view:    view,
		st:      st,
		orch:    orch,
		confirm: confirm,
		actions: NewActions(client, orch, confirm, view, nil),
	}
}

// mutations counts requests that change server state.
func (f *fixture) mutations() int {
	n := 0
	for _, r := range f.srv.Requests() {
		if r.Method != http.MethodGet {
			n++
		}
	}
	return n
}

var milk = model.Item{ID: 7, Name: "Milk", Description: "2%", SectionID: 1}

func TestToggleSection(t *testing.T) {
	f := newFixture(t)

	f.actions.ToggleSection(f.st, 3)
	f.actions.ToggleSection(f.st, 5)
	f.actions.ToggleSection(f.st, 8)
	f.actions.ToggleSection(f.st, 5)

	if got := f.st.SelectedSections(); !reflect.DeepEqual(got, []int64{3, 8}) {
		t.Errorf("SelectedSections() = %v, want [3 8]", got)
	}

	f.actions.ToggleSection(f.st, 3)
	f.actions.ToggleSection(f.st, 8)
	if got := f.st.SelectedSections(); len(got) != 0 {
		t.Errorf("SelectedSections() = %v, want empty", got)
	}
}

func TestDeleteSelectedSections(t *testing.T) {
	f := newFixture(t)
	f.st.SetSelectMode(true)
	f.actions.ToggleSection(f.st, 3)
	f.actions.ToggleSection(f.st, 5)
	f.actions.OpenMobileAction(f.st, milk)

	if err := f.actions.DeleteSelectedSections(context.Background(), f.st); err != nil {
		t.Fatalf("DeleteSelectedSections failed: %v", err)
	}

	req, ok := f.srv.LastRequest(http.MethodPost, "/sections/batch-delete")
	if !ok {
		t.Fatal("batch delete not sent")
	}
	if got := req.Form.Get("ids"); got != "3,5" {
		t.Errorf("ids = %q, want 3,5", got)
	}
	if len(f.confirm.prompts) != 1 || f.confirm.prompts[0] != "Delete 2 selected sections?" {
		t.Errorf("prompts = %q", f.confirm.prompts)
	}

	// Full reload discards all local state.
	snap := f.st.Snapshot()
	if snap.SelectMode || len(snap.SelectedSections) != 0 || snap.MobileAction != nil {
		t.Errorf("state after delete = %+v, want reset", snap)
	}
	if f.view.Loads() != 2 {
		t.Errorf("Loads() = %d, want 2 (full reload)", f.view.Loads())
	}
}

func TestDeleteSelectedSections_EmptySelection(t *testing.T) {
	f := newFixture(t)

	if err := f.actions.DeleteSelectedSections(context.Background(), f.st); err != nil {
		t.Fatalf("DeleteSelectedSections failed: %v", err)
	}
	if f.mutations() != 0 {
		t.Errorf("mutations = %d, want 0", f.mutations())
	}
	if len(f.confirm.prompts) != 0 {
		t.Errorf("prompted %q for empty selection", f.confirm.prompts)
	}
}

func TestDeleteSelectedSections_Declined(t *testing.T) {
	f := newFixture(t)
	f.confirm.answer = false
	f.st.SetSelectMode(true)
	f.actions.ToggleSection(f.st, 3)

	if err := f.actions.DeleteSelectedSections(context.Background(), f.st); err != nil {
		t.Fatalf("DeleteSelectedSections failed: %v", err)
	}
	if f.mutations() != 0 {
		t.Errorf("mutations = %d, want 0", f.mutations())
	}
	if got := f.st.SelectedSections(); !reflect.DeepEqual(got, []int64{3}) {
		t.Errorf("SelectedSections() = %v, want [3]", got)
	}
}

func TestDeleteSelectedSections_Failure(t *testing.T) {
	f := newFixture(t)
	f.srv.SetStatus(http.MethodPost, "/sections/batch-delete", http.StatusInternalServerError)
	f.st.SetSelectMode(true)
	f.actions.ToggleSection(f.st, 3)

	if err := f.actions.DeleteSelectedSections(context.Background(), f.st); err == nil {
		t.Fatal("expected an error")
	}
	if !f.st.SelectMode() || len(f.st.SelectedSections()) != 1 {
		t.Errorf("state changed on failure: %+v", f.st.Snapshot())
	}
	if f.view.Loads() != 1 {
		t.Errorf("Loads() = %d, want 1 (no reload)", f.view.Loads())
	}
}

func TestMobileActionLifecycle(t *testing.T) {
	f := newFixture(t)

	f.actions.OpenMobileAction(f.st, milk)
	got := f.st.MobileAction()
	want := &model.MobileActionTarget{ID: 7, Name: "Milk", Description: "2%", SectionID: 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MobileAction() = %+v, want %+v", got, want)
	}

	f.actions.CloseMobileAction(f.st)
	if f.st.MobileAction() != nil {
		t.Error("MobileAction() should be nil after close")
	}
}

func TestToggleUncertain(t *testing.T) {
	f := newFixture(t)
	f.actions.OpenMobileAction(f.st, milk)

	if err := f.actions.ToggleUncertain(context.Background(), f.st); err != nil {
		t.Fatalf("ToggleUncertain failed: %v", err)
	}

	if n := f.srv.RequestCount(http.MethodPost, "/items/7/uncertain"); n != 1 {
		t.Errorf("POST /items/7/uncertain count = %d, want 1", n)
	}
	target := f.st.MobileAction()
	if target == nil || !target.Uncertain {
		t.Errorf("MobileAction() = %+v, want uncertain and still open", target)
	}
	if n := f.srv.RequestCount(http.MethodGet, "/"); n != 1 {
		t.Errorf("list refresh count = %d, want 1", n)
	}
}

func TestToggleUncertain_FailureKeepsFlag(t *testing.T) {
	f := newFixture(t)
	f.srv.SetStatus(http.MethodPost, "/items/7/uncertain", http.StatusNotFound)
	f.actions.OpenMobileAction(f.st, milk)

	if err := f.actions.ToggleUncertain(context.Background(), f.st); err == nil {
		t.Fatal("expected an error")
	}
	if f.st.MobileAction().Uncertain {
		t.Error("Uncertain flipped despite failed request")
	}
}

func TestMoveToSection(t *testing.T) {
	f := newFixture(t)
	f.actions.OpenMobileAction(f.st, milk)

	if err := f.actions.MoveToSection(context.Background(), f.st, 4); err != nil {
		t.Fatalf("MoveToSection failed: %v", err)
	}

	req, ok := f.srv.LastRequest(http.MethodPost, "/items/7/move")
	if !ok || req.Form.Get("section_id") != "4" {
		t.Errorf("move request = %+v, want section_id=4", req)
	}
	if f.st.MobileAction() != nil {
		t.Error("MobileAction() should be cleared after move")
	}
}

func TestDeleteItem(t *testing.T) {
	f := newFixture(t)
	f.actions.OpenMobileAction(f.st, milk)

	if err := f.actions.DeleteItem(context.Background(), f.st); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}

	if n := f.srv.RequestCount(http.MethodDelete, "/items/7"); n != 1 {
		t.Errorf("DELETE /items/7 count = %d, want 1", n)
	}
	if len(f.confirm.prompts) != 1 || f.confirm.prompts[0] != `Delete "Milk"?` {
		t.Errorf("prompts = %q", f.confirm.prompts)
	}
	if f.st.MobileAction() != nil {
		t.Error("MobileAction() should be cleared after delete")
	}
	if n := f.srv.RequestCount(http.MethodGet, "/stats"); n != 1 {
		t.Errorf("stats refresh count = %d, want 1", n)
	}
}

func TestDeleteItem_Declined(t *testing.T) {
	f := newFixture(t)
	f.confirm.answer = false
	f.actions.OpenMobileAction(f.st, milk)

	if err := f.actions.DeleteItem(context.Background(), f.st); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	if f.mutations() != 0 {
		t.Errorf("mutations = %d, want 0", f.mutations())
	}
	if f.st.MobileAction() == nil {
		t.Error("MobileAction() should stay open after decline")
	}
}

func TestHandlersWithoutTargetAreNoops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.actions.ToggleUncertain(ctx, f.st); err != nil {
		t.Errorf("ToggleUncertain: %v", err)
	}
	if err := f.actions.MoveToSection(ctx, f.st, 2); err != nil {
		t.Errorf("MoveToSection: %v", err)
	}
	if err := f.actions.DeleteItem(ctx, f.st); err != nil {
		t.Errorf("DeleteItem: %v", err)
	}
	if err := f.actions.SubmitEditItem(ctx, f.st); err != nil {
		t.Errorf("SubmitEditItem: %v", err)
	}

	if n := len(f.srv.Requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
	if len(f.confirm.prompts) != 0 {
		t.Errorf("prompts = %q, want none", f.confirm.prompts)
	}
}

func TestEditItem(t *testing.T) {
	f := newFixture(t)

	f.actions.EditItem(f.st, milk)
	got := f.st.Editing()
	if got == nil || got.Item.ID != 7 || got.Name != "Milk" || got.Description != "2%" {
		t.Fatalf("Editing() = %+v", got)
	}

	f.actions.CancelEdit(f.st)
	if f.st.Editing() != nil {
		t.Error("Editing() should be nil after cancel")
	}
	if n := len(f.srv.Requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestSubmitEditItem(t *testing.T) {
	f := newFixture(t)
	f.actions.EditItem(f.st, milk)
	f.st.SetEditFields("  Oat milk  ", "  barista  ")

	if err := f.actions.SubmitEditItem(context.Background(), f.st); err != nil {
		t.Fatalf("SubmitEditItem failed: %v", err)
	}

	req, ok := f.srv.LastRequest(http.MethodPut, "/items/7")
	if !ok {
		t.Fatal("PUT /items/7 not sent")
	}
	if req.Form.Get("name") != "Oat milk" || req.Form.Get("description") != "barista" {
		t.Errorf("form = %v, want trimmed values", req.Form)
	}
	if f.st.Editing() != nil {
		t.Error("Editing() should be cleared after submit")
	}
	if n := f.srv.RequestCount(http.MethodGet, "/"); n != 1 {
		t.Errorf("list refresh count = %d, want 1", n)
	}
}

func TestSubmitEditItem_EmptyName(t *testing.T) {
	f := newFixture(t)
	f.actions.EditItem(f.st, milk)
	f.st.SetEditFields("   ", "anything")

	if err := f.actions.SubmitEditItem(context.Background(), f.st); err != nil {
		t.Fatalf("SubmitEditItem failed: %v", err)
	}
	if n := len(f.srv.Requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
	if f.st.Editing() == nil {
		t.Error("Editing() should stay open")
	}
}

func TestSubmitEditItem_FailureKeepsBuffer(t *testing.T) {
	f := newFixture(t)
	f.srv.SetStatus(http.MethodPut, "/items/7", http.StatusUnprocessableEntity)
	f.actions.EditItem(f.st, milk)
	f.st.SetEditFields("Oat milk", "")

	if err := f.actions.SubmitEditItem(context.Background(), f.st); err == nil {
		t.Fatal("expected an error")
	}
	if got := f.st.Editing(); got == nil || got.Name != "Oat milk" {
		t.Errorf("Editing() = %+v, want buffer kept", got)
	}
}

func TestToggleMobileHelper(t *testing.T) {
	f := newFixture(t)

	got, err := f.actions.ToggleMobileHelper(context.Background())
	if err != nil {
		t.Fatalf("ToggleMobileHelper failed: %v", err)
	}
	if got != model.MobileHelperProgress {
		t.Errorf("ToggleMobileHelper() = %q, want progress", got)
	}
	if f.view.MobileHelper() != model.MobileHelperProgress {
		t.Errorf("view MobileHelper() = %q, want progress", f.view.MobileHelper())
	}
}

func TestTargetsSurviveTargetedRefresh(t *testing.T) {
	f := newFixture(t)
	f.actions.OpenMobileAction(f.st, milk)
	f.actions.EditItem(f.st, milk)

	// Another client removes item 7; our refresh no longer lists it.
	f.srv.SetPage(`<div id="sections-list"><section id="section-1"></section></div>`)
	f.orch.RefreshTargeted(context.Background())
	f.orch.Wait()

	if f.st.MobileAction() == nil || f.st.Editing() == nil {
		t.Fatal("targeted refresh must not clear the action target or edit buffer")
	}

	// The stale target is still acted on; the server decides.
	f.srv.SetStatus(http.MethodDelete, "/items/7", http.StatusNotFound)
	if err := f.actions.DeleteItem(context.Background(), f.st); err == nil {
		t.Error("expected the server to reject the stale delete")
	}
	if n := f.srv.RequestCount(http.MethodDelete, "/items/7"); n != 1 {
		t.Errorf("DELETE /items/7 count = %d, want 1", n)
	}
	if f.st.MobileAction() == nil {
		t.Error("failed delete must keep the target")
	}
}

func TestReset(t *testing.T) {
	st := New()
	st.SetSelectMode(true)
	st.SetShowAddItem(true)
	st.SetShowManageSections(true)
	a := NewActions(nil, nil, nil, nil, nil)
	a.ToggleSection(st, 1)
	a.OpenMobileAction(st, milk)
	a.EditItem(st, milk)

	st.Reset()

	if !reflect.DeepEqual(st.Snapshot(), Snapshot{}) {
		t.Errorf("Snapshot() after Reset = %+v, want zero", st.Snapshot())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	st := New()
	a := NewActions(nil, nil, nil, nil, nil)
	a.OpenMobileAction(st, milk)

	snap := st.Snapshot()
	snap.MobileAction.Name = "changed"

	if st.MobileAction().Name != "Milk" {
		t.Error("mutating a snapshot changed the state")
	}
}
