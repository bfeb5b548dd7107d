package staff

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
)

func setupStaffTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS staff_profiles (
  id TEXT PRIMARY KEY,
  display_name TEXT NOT NULL,
  role TEXT NOT NULL,
  phone TEXT,
  chat_channel_id INTEGER,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func seedStaff(t *testing.T, db *gorm.DB, profile models.StaffProfile) models.StaffProfile {
	t.Helper()
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	wantActive := profile.IsActive
	require.NoError(t, db.Create(&profile).Error)
	// gorm writes the column default back for zero-value fields on insert,
	// so pin is_active to what the caller asked for.
	require.NoError(t, db.Model(&models.StaffProfile{}).
		Where("id = ?", profile.ID).
		Update("is_active", wantActive).Error)
	profile.IsActive = wantActive
	return profile
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestGetNotFound(t *testing.T) {
	svc := newTestService(t, setupStaffTestDB(t))

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListFiltersByRoleAndActive(t *testing.T) {
	db := setupStaffTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seedStaff(t, db, models.StaffProfile{DisplayName: "Ana", Role: enums.StaffRoleCollector, IsActive: true})
	seedStaff(t, db, models.StaffProfile{DisplayName: "Bo", Role: enums.StaffRoleCollector, IsActive: false})
	seedStaff(t, db, models.StaffProfile{DisplayName: "Cleo", Role: enums.StaffRoleCourier, IsActive: true})

	collector := enums.StaffRoleCollector
	active, err := svc.List(ctx, &collector, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Ana", active[0].DisplayName)

	all, err := svc.List(ctx, nil, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSetActiveTogglesAndReportsMissing(t *testing.T) {
	db := setupStaffTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	profile := seedStaff(t, db, models.StaffProfile{DisplayName: "Ana", Role: enums.StaffRoleCourier, IsActive: true})

	require.NoError(t, svc.SetActive(ctx, profile.ID, false))
	reloaded, err := svc.Get(ctx, profile.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)

	err = svc.SetActive(ctx, uuid.New(), true)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestEnsureEligible(t *testing.T) {
	db := setupStaffTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	collector := seedStaff(t, db, models.StaffProfile{DisplayName: "Ana", Role: enums.StaffRoleCollector, IsActive: true})
	inactive := seedStaff(t, db, models.StaffProfile{DisplayName: "Bo", Role: enums.StaffRoleCourier, IsActive: false})

	profile, err := svc.EnsureEligible(ctx, collector.ID, enums.AssignmentRoleCollector)
	require.NoError(t, err)
	assert.Equal(t, collector.ID, profile.ID)

	_, err = svc.EnsureEligible(ctx, collector.ID, enums.AssignmentRoleCourier)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.EnsureEligible(ctx, inactive.ID, enums.AssignmentRoleCourier)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestSetChatChannelPersistsAndResolves(t *testing.T) {
	db := setupStaffTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	courier := seedStaff(t, db, models.StaffProfile{DisplayName: "Cleo", Role: enums.StaffRoleCourier, IsActive: true})
	channelID := int64(-100987654)

	require.NoError(t, svc.SetChatChannel(ctx, courier.ID, channelID))

	reloaded, err := svc.Get(ctx, courier.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ChatChannelID)
	assert.Equal(t, channelID, *reloaded.ChatChannelID)

	resolved, err := svc.ResolveByChannel(ctx, channelID)
	require.NoError(t, err)
	assert.Equal(t, courier.ID, resolved.ID)

	err = svc.SetChatChannel(ctx, uuid.New(), channelID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	err = svc.SetChatChannel(ctx, courier.ID, 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestResolveByChannel(t *testing.T) {
	db := setupStaffTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	channelID := int64(-100200300)
	courier := seedStaff(t, db, models.StaffProfile{
		DisplayName:   "Cleo",
		Role:          enums.StaffRoleCourier,
		ChatChannelID: &channelID,
		IsActive:      true,
	})

	profile, err := svc.ResolveByChannel(ctx, channelID)
	require.NoError(t, err)
	assert.Equal(t, courier.ID, profile.ID)

	_, err = svc.ResolveByChannel(ctx, 42)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
