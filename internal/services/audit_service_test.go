package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenshare/kitchenshare/internal/models"
)

func TestAuditServiceLogAndList(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustAuditService(t, db)
	user := seedUser(t, db, "alice")

	require.NoError(t, svc.Log(context.Background(), AuditEntry{
		UserID:   &user.ID,
		Action:   "kitchen.create",
		Resource: "kitchen-1",
		Result:   "success",
		Metadata: map[string]any{"name": "Family Kitchen"},
	}))
	require.NoError(t, svc.Log(context.Background(), AuditEntry{
		Action:   "invitation.redeem",
		Resource: "invitation-1",
		Result:   "joined",
	}))

	entries, total, err := svc.List(context.Background(), AuditListOptions{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, entries, 2)

	filtered, total, err := svc.List(context.Background(), AuditListOptions{
		Page:     1,
		PageSize: 10,
		Filters:  AuditFilters{Action: "kitchen.create"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, filtered, 1)
	assert.Contains(t, filtered[0].Metadata, "Family Kitchen")
}

func TestAuditServiceLogRequiresAction(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustAuditService(t, db)

	err := svc.Log(context.Background(), AuditEntry{Result: "success"})
	assert.Error(t, err)
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustAuditService(t, db)

	require.NoError(t, svc.Log(context.Background(), AuditEntry{Action: "recent.event", Result: "success"}))

	old := models.AuditLog{Action: "old.event", Result: "success"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&old).Update("created_at", time.Now().AddDate(0, 0, -120)).Error)

	removed, err := svc.CleanupOlderThan(context.Background(), 90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var remaining []models.AuditLog
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "recent.event", remaining[0].Action)
}
