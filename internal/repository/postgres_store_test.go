package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/pricewatch/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openTestDB connects to PRICEWATCH_TEST_DSN, e.g.
// "host=localhost user=postgres password=postgres dbname=pricewatch_test sslmode=disable".
// Tests are skipped when it is unset.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("PRICEWATCH_TEST_DSN")
	if dsn == "" {
		t.Skip("PRICEWATCH_TEST_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.AutoMigrate(&model.PriceAlert{}, &model.UserDevice{}, &model.NotificationPreferences{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testUser returns a user id unique to this run and removes its rows afterwards
func testUser(t *testing.T, db *gorm.DB) string {
	t.Helper()
	user := "test-" + uuid.NewString()
	t.Cleanup(func() {
		db.Where("user_id = ?", user).Delete(&model.PriceAlert{})
		db.Where("user_id = ?", user).Delete(&model.UserDevice{})
		db.Where("user_id = ?", user).Delete(&model.NotificationPreferences{})
	})
	return user
}

func TestAlertRepository_CRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAlertRepository(db)
	user := testUser(t, db)
	base := time.Now().UTC().Truncate(time.Second)

	older := newAlert(uuid.NewString(), user, true, base)
	newer := newAlert(uuid.NewString(), user, false, base.Add(time.Minute))
	for _, a := range []*model.PriceAlert{older, newer} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	byUser, err := repo.ListByUser(ctx, user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byUser) != 2 || byUser[0].ID != newer.ID {
		t.Errorf("expected newest first, got %v", ids(byUser))
	}

	got, err := repo.Get(ctx, older.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.TargetPrice = 3500
	got.IsActive = false
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := repo.Get(ctx, older.ID)
	if again.TargetPrice != 3500 || again.IsActive {
		t.Errorf("update not persisted: %+v", again)
	}

	missing := newAlert(uuid.NewString(), user, true, base)
	if err := repo.Update(ctx, missing); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("update of missing id: expected not found, got %v", err)
	}
	if _, err := repo.Get(ctx, missing.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("get of missing id: expected not found, got %v", err)
	}

	if err := repo.Delete(ctx, older.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, older.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if all, _ := repo.ListByUser(ctx, user); len(all) != 1 {
		t.Errorf("expected one alert left, got %d", len(all))
	}
}

func TestAlertRepository_ModifyErrorRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAlertRepository(db)
	a := newAlert(uuid.NewString(), testUser(t, db), true, time.Now())
	_ = repo.Create(ctx, a)

	boom := errors.New("boom")
	_, err := repo.Modify(ctx, a.ID, func(p *model.PriceAlert) error {
		p.TargetPrice = 1
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	got, _ := repo.Get(ctx, a.ID)
	if got.TargetPrice != 3000 {
		t.Errorf("failed modify leaked a change: %+v", got)
	}

	if _, err := repo.Modify(ctx, uuid.NewString(), func(*model.PriceAlert) error { return nil }); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

// Row locking must serialize writers so no increment is lost
func TestAlertRepository_ConcurrentModify(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAlertRepository(db)
	a := newAlert(uuid.NewString(), testUser(t, db), true, time.Now())
	_ = repo.Create(ctx, a)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Modify(ctx, a.ID, func(p *model.PriceAlert) error {
				p.TriggerCount++
				return nil
			}); err != nil {
				t.Errorf("modify: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := repo.Get(ctx, a.ID)
	if got.TriggerCount != writers {
		t.Errorf("lost updates: trigger count %d, want %d", got.TriggerCount, writers)
	}
}

func TestDeviceRepository_DeactivateRequiresMatchingToken(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewDeviceRepository(db)
	user := testUser(t, db)

	_ = repo.Upsert(ctx, model.UserDevice{UserID: user, DeviceID: "d1", PushToken: "old", Platform: model.PlatformIOS, RegisteredAt: time.Now(), IsActive: true})
	_ = repo.Upsert(ctx, model.UserDevice{UserID: user, DeviceID: "d1", PushToken: "fresh", Platform: model.PlatformIOS, RegisteredAt: time.Now(), IsActive: true})

	all, _ := repo.ListByUser(ctx, user)
	if len(all) != 1 || all[0].PushToken != "fresh" {
		t.Fatalf("re-register did not replace: %+v", all)
	}

	ok, err := repo.Deactivate(ctx, user, "d1", "old")
	if err != nil || ok {
		t.Fatalf("stale token must not deactivate: ok=%v err=%v", ok, err)
	}
	if active, _ := repo.ListActive(ctx, user); len(active) != 1 {
		t.Fatal("device was deactivated by a stale token")
	}

	if ok, _ := repo.Deactivate(ctx, user, "d1", "fresh"); !ok {
		t.Fatal("matching token should deactivate")
	}
	if active, _ := repo.ListActive(ctx, user); len(active) != 0 {
		t.Error("inactive device still listed as active")
	}
	if ok, _ := repo.Deactivate(ctx, user, "d1", "fresh"); ok {
		t.Error("second deactivate should report no change")
	}
}

func TestDeviceRepository_RemoveAndStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewDeviceRepository(db)
	user := testUser(t, db)

	before, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	_ = repo.Upsert(ctx, model.UserDevice{UserID: user, DeviceID: "ios", PushToken: "t", Platform: model.PlatformIOS, RegisteredAt: time.Now(), IsActive: true})
	_ = repo.Upsert(ctx, model.UserDevice{UserID: user, DeviceID: "android", PushToken: "t", Platform: model.PlatformAndroid, RegisteredAt: time.Now(), IsActive: true})
	_ = repo.Upsert(ctx, model.UserDevice{UserID: user, DeviceID: "gone", PushToken: "t", Platform: model.PlatformAndroid, RegisteredAt: time.Now(), IsActive: true})
	_, _ = repo.Deactivate(ctx, user, "ios", "t")

	if err := repo.Remove(ctx, user, "gone"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := repo.Remove(ctx, user, "gone"); err != nil {
		t.Fatalf("second remove: %v", err)
	}

	after, _ := repo.Stats(ctx)
	delta := model.DeviceStats{
		TotalDevices:   after.TotalDevices - before.TotalDevices,
		ActiveDevices:  after.ActiveDevices - before.ActiveDevices,
		IOSDevices:     after.IOSDevices - before.IOSDevices,
		AndroidDevices: after.AndroidDevices - before.AndroidDevices,
	}
	want := model.DeviceStats{TotalDevices: 2, ActiveDevices: 1, IOSDevices: 1, AndroidDevices: 1}
	if delta != want {
		t.Errorf("stats delta = %+v, want %+v", delta, want)
	}
}

func TestPreferenceRepository_SaveUpserts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewPreferenceRepository(db)
	user := testUser(t, db)

	if _, err := repo.Get(ctx, user); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	prefs := model.DefaultPreferences(user)
	if err := repo.Save(ctx, prefs); err != nil {
		t.Fatalf("save: %v", err)
	}
	prefs.MarketNewsEnabled = true
	prefs.PriceAlertsEnabled = false
	if err := repo.Save(ctx, prefs); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := repo.Get(ctx, user)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.MarketNewsEnabled || got.PriceAlertsEnabled {
		t.Errorf("upsert not applied: %+v", got)
	}
}
