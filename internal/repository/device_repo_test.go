package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/nikhathmuzawar/pickplace-app/internal/db"
	"github.com/nikhathmuzawar/pickplace-app/internal/model"
)

func setupTestRepo(t *testing.T) *DeviceRepository {
	t.Helper()
	testDB, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { testDB.Close() })
	return NewDeviceRepository(testDB)
}

func newDevice(name string) *model.Device {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Device{
		ID:        uuid.New().String(),
		Name:      name,
		Desc:      "pick and place arm",
		Status:    true,
		Username:  "operator",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestDeviceRepository_CRUD(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	device := newDevice("arm-1")
	if err := repo.Create(ctx, device); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, device.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "arm-1" || got.Desc != device.Desc || !got.Status || got.Username != "operator" {
		t.Errorf("unexpected device: %+v", got)
	}

	got.Name = "arm-1b"
	got.Status = false
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	updated, err := repo.GetByID(ctx, device.ID)
	if err != nil {
		t.Fatalf("GetByID after update failed: %v", err)
	}
	if updated.Name != "arm-1b" || updated.Status {
		t.Errorf("update not persisted: %+v", updated)
	}

	if err := repo.Delete(ctx, device.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, device.ID); !errors.Is(err, model.ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound after delete, got %v", err)
	}
}

func TestDeviceRepository_NotFound(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, model.ErrDeviceNotFound) {
		t.Errorf("GetByID: expected ErrDeviceNotFound, got %v", err)
	}
	if err := repo.Update(ctx, newDevice("ghost")); !errors.Is(err, model.ErrDeviceNotFound) {
		t.Errorf("Update: expected ErrDeviceNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "missing"); !errors.Is(err, model.ErrDeviceNotFound) {
		t.Errorf("Delete: expected ErrDeviceNotFound, got %v", err)
	}
}

func TestDeviceRepository_List(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("expected empty list, got %d", len(devices))
	}

	for _, name := range []string{"a", "b", "c"} {
		if err := repo.Create(ctx, newDevice(name)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	devices, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(devices) != 3 {
		t.Errorf("expected 3 devices, got %d", len(devices))
	}
}

func TestDeviceRoundTripProperty(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	nonEmptyString := gen.AlphaString().SuchThat(func(s string) bool {
		return len(s) > 0 && len(s) <= 100
	})

	properties.Property("created devices can be retrieved unchanged", prop.ForAll(
		func(name, desc, username string, status bool) bool {
			device := newDevice(name)
			device.Desc = desc
			device.Username = username
			device.Status = status

			if err := repo.Create(ctx, device); err != nil {
				t.Logf("failed to create device: %v", err)
				return false
			}
			defer repo.Delete(ctx, device.ID)

			got, err := repo.GetByID(ctx, device.ID)
			if err != nil {
				t.Logf("failed to retrieve device: %v", err)
				return false
			}

			return got.ID == device.ID &&
				got.Name == device.Name &&
				got.Desc == device.Desc &&
				got.Username == device.Username &&
				got.Status == device.Status
		},
		nonEmptyString,
		gen.AlphaString(),
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
