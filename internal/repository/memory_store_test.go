package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/quocanhngo/pricewatch/internal/model"
)

func newAlert(id, user string, active bool, created time.Time) *model.PriceAlert {
	return &model.PriceAlert{
		ID:          id,
		UserID:      user,
		TokenSymbol: "ETH",
		Condition:   model.ConditionAbove,
		TargetPrice: 3000,
		Network:     model.NetworkEthereum,
		IsActive:    active,
		CreatedAt:   created,
	}
}

func TestMemoryAlertStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAlertStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = s.Create(ctx, newAlert("a", "u1", true, base))
	_ = s.Create(ctx, newAlert("b", "u1", false, base.Add(time.Minute)))
	_ = s.Create(ctx, newAlert("c", "u2", true, base.Add(2*time.Minute)))

	byUser, _ := s.ListByUser(ctx, "u1")
	if len(byUser) != 2 || byUser[0].ID != "b" || byUser[1].ID != "a" {
		t.Errorf("expected newest first [b a], got %v", ids(byUser))
	}

	active, _ := s.ListActive(ctx)
	if len(active) != 2 || active[0].ID != "c" || active[1].ID != "a" {
		t.Errorf("expected active [c a], got %v", ids(active))
	}

	// returned records are copies
	got, _ := s.Get(ctx, "a")
	got.TargetPrice = 1
	again, _ := s.Get(ctx, "a")
	if again.TargetPrice != 3000 {
		t.Error("mutating a returned alert changed the store")
	}

	got.IsActive = false
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ = s.Get(ctx, "a")
	if again.IsActive || again.TargetPrice != 1 {
		t.Errorf("update is a wholesale replace, got %+v", again)
	}

	if err := s.Update(ctx, newAlert("missing", "u1", true, base)); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("update of missing id: expected not found, got %v", err)
	}
}

func TestMemoryAlertStore_DeleteMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAlertStore()
	_ = s.Create(ctx, newAlert("a", "u1", true, time.Now()))

	if err := s.Delete(ctx, "nope"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if all, _ := s.ListByUser(ctx, "u1"); len(all) != 1 {
		t.Errorf("state changed: %d alerts", len(all))
	}
}

func TestMemoryAlertStore_ModifyErrorLeavesRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAlertStore()
	_ = s.Create(ctx, newAlert("a", "u1", true, time.Now()))

	boom := errors.New("boom")
	_, err := s.Modify(ctx, "a", func(a *model.PriceAlert) error {
		a.TargetPrice = 1
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	got, _ := s.Get(ctx, "a")
	if got.TargetPrice != 3000 {
		t.Errorf("failed modify leaked a change: %+v", got)
	}

	if _, err := s.Modify(ctx, "missing", func(*model.PriceAlert) error { return nil }); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMemoryAlertStore_ConcurrentModify(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAlertStore()
	_ = s.Create(ctx, newAlert("a", "u1", true, time.Now()))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Modify(ctx, "a", func(a *model.PriceAlert) error {
				a.TriggerCount++
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := s.Get(ctx, "a")
	if got.TriggerCount != 100 {
		t.Errorf("lost updates: trigger count %d", got.TriggerCount)
	}
}

func ids(alerts []*model.PriceAlert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.ID
	}
	return out
}

func TestMemoryDeviceStore_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDeviceStore()

	_ = s.Upsert(ctx, model.UserDevice{UserID: "u1", DeviceID: "d1", PushToken: "old", Platform: model.PlatformIOS, IsActive: true})
	_ = s.Upsert(ctx, model.UserDevice{UserID: "u1", DeviceID: "d1", PushToken: "new", Platform: model.PlatformIOS, IsActive: true})
	_ = s.Upsert(ctx, model.UserDevice{UserID: "u1", DeviceID: "d2", PushToken: "x", Platform: model.PlatformAndroid, IsActive: true})

	all, _ := s.ListByUser(ctx, "u1")
	if len(all) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(all))
	}
	if all[0].DeviceID != "d1" || all[0].PushToken != "new" {
		t.Errorf("re-register did not replace: %+v", all[0])
	}
}

func TestMemoryDeviceStore_DeactivateRequiresMatchingToken(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDeviceStore()
	_ = s.Upsert(ctx, model.UserDevice{UserID: "u1", DeviceID: "d1", PushToken: "fresh", Platform: model.PlatformIOS, IsActive: true})

	ok, err := s.Deactivate(ctx, "u1", "d1", "stale")
	if err != nil || ok {
		t.Fatalf("stale token must not deactivate: ok=%v err=%v", ok, err)
	}
	active, _ := s.ListActive(ctx, "u1")
	if len(active) != 1 {
		t.Fatal("device was deactivated by a stale token")
	}

	ok, _ = s.Deactivate(ctx, "u1", "d1", "fresh")
	if !ok {
		t.Fatal("matching token should deactivate")
	}
	active, _ = s.ListActive(ctx, "u1")
	if len(active) != 0 {
		t.Error("inactive device still listed as active")
	}

	if ok, _ := s.Deactivate(ctx, "u1", "d1", "fresh"); ok {
		t.Error("second deactivate should report no change")
	}
	if ok, _ := s.Deactivate(ctx, "ghost", "d1", "fresh"); ok {
		t.Error("unknown user should report no change")
	}
}

func TestMemoryDeviceStore_RemoveAndStats(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDeviceStore()
	for i := 0; i < 3; i++ {
		_ = s.Upsert(ctx, model.UserDevice{UserID: "u1", DeviceID: fmt.Sprintf("ios-%d", i), PushToken: "t", Platform: model.PlatformIOS, IsActive: true})
	}
	_ = s.Upsert(ctx, model.UserDevice{UserID: "u2", DeviceID: "a", PushToken: "t", Platform: model.PlatformAndroid, IsActive: true})
	_, _ = s.Deactivate(ctx, "u1", "ios-0", "t")

	if err := s.Remove(ctx, "u1", "ios-2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(ctx, "u1", "ios-2"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if err := s.Remove(ctx, "nobody", "x"); err != nil {
		t.Fatalf("remove for unknown user: %v", err)
	}

	stats, _ := s.Stats(ctx)
	want := model.DeviceStats{TotalDevices: 3, ActiveDevices: 2, IOSDevices: 2, AndroidDevices: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestMemoryPreferenceStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryPreferenceStore()

	if _, err := s.Get(ctx, "u1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	prefs := model.DefaultPreferences("u1")
	prefs.MarketNewsEnabled = true
	_ = s.Save(ctx, prefs)

	got, err := s.Get(ctx, "u1")
	if err != nil || !got.MarketNewsEnabled {
		t.Errorf("unexpected %+v, %v", got, err)
	}
}
