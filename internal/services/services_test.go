package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kitchenshare/kitchenshare/internal/database/testutil"
	"github.com/kitchenshare/kitchenshare/internal/models"
	"github.com/kitchenshare/kitchenshare/pkg/mail"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingMailer captures outbound messages and signals each send so tests
// can wait for the async dispatch.
type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	sent     chan struct{}
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{sent: make(chan struct{}, 16)}
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	m.sent <- struct{}{}
	return nil
}

func (m *recordingMailer) waitForSend(t *testing.T) mail.Message {
	t.Helper()
	select {
	case <-m.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for invitation email")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages[len(m.messages)-1]
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Password: "hashed-" + uuid.NewString(),
		Name:     username,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func mustAuditService(t *testing.T, db *gorm.DB) *AuditService {
	t.Helper()

	svc, err := NewAuditService(db)
	require.NoError(t, err)
	return svc
}

func mustKitchenService(t *testing.T, db *gorm.DB) *KitchenService {
	t.Helper()

	svc, err := NewKitchenService(db, mustAuditService(t, db), nil)
	require.NoError(t, err)
	return svc
}

func seedKitchen(t *testing.T, db *gorm.DB, ownerID, name string) *models.Kitchen {
	t.Helper()

	svc := mustKitchenService(t, db)
	kitchen, err := svc.Create(context.Background(), ownerID, CreateKitchenInput{Name: name})
	require.NoError(t, err)
	return kitchen
}

func addMember(t *testing.T, db *gorm.DB, kitchenID, userID string) {
	t.Helper()
	require.NoError(t, db.Create(&models.KitchenMember{KitchenID: kitchenID, UserID: userID}).Error)
}

func countMembers(t *testing.T, db *gorm.DB, kitchenID string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.KitchenMember{}).Where("kitchen_id = ?", kitchenID).Count(&count).Error)
	return count
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t)
}
