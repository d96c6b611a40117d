package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kitchenshare/kitchenshare/internal/models"
	"github.com/kitchenshare/kitchenshare/internal/policy"
	"github.com/kitchenshare/kitchenshare/pkg/crypto"
	apperrors "github.com/kitchenshare/kitchenshare/pkg/errors"
	"github.com/kitchenshare/kitchenshare/pkg/logger"
	"github.com/kitchenshare/kitchenshare/pkg/mail"
	"github.com/kitchenshare/kitchenshare/pkg/metrics"
)

var (
	// ErrInvitationNotFound indicates the token matches no invitation.
	ErrInvitationNotFound = apperrors.New("INVITATION_NOT_FOUND", "Invitation not found", http.StatusNotFound)
	// ErrInvitationExpired indicates the invitation exists but its window has passed.
	ErrInvitationExpired = apperrors.New("INVITATION_EXPIRED", "Invitation has expired", http.StatusGone)
	// ErrAlreadyMember indicates the invited address already belongs to the kitchen.
	ErrAlreadyMember = apperrors.New("ALREADY_MEMBER", "User is already a member of the kitchen", http.StatusBadRequest)
	// ErrAuthenticationRequired indicates the invitation is valid but redemption
	// needs a signed-in user. Handlers return the token alongside it so the
	// client can resume after login.
	ErrAuthenticationRequired = apperrors.New("AUTHENTICATION_REQUIRED", "Sign in to accept the invitation", http.StatusUnauthorized)
)

const (
	defaultInvitationTTL = 7 * 24 * time.Hour
	defaultTokenSize     = 32
)

// RedeemOutcome describes how an accept attempt resolved.
type RedeemOutcome string

const (
	// RedeemJoined means a new membership was created.
	RedeemJoined RedeemOutcome = "joined"
	// RedeemAlreadyMember means the user already belonged to the kitchen.
	RedeemAlreadyMember RedeemOutcome = "already_member"
	// RedeemAlreadyAccepted means this invitation was accepted earlier.
	RedeemAlreadyAccepted RedeemOutcome = "already_accepted"
)

// RedeemResult reports the outcome of accepting an invitation.
type RedeemResult struct {
	Outcome    RedeemOutcome
	Kitchen    *models.Kitchen
	Invitation *models.KitchenInvitation
}

// InvitationServiceOption customises an InvitationService.
type InvitationServiceOption func(*InvitationService)

// WithInvitationClock overrides the time source, used by tests.
func WithInvitationClock(now func() time.Time) InvitationServiceOption {
	return func(s *InvitationService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithInvitationTTL overrides the validity window for new invitations.
func WithInvitationTTL(ttl time.Duration) InvitationServiceOption {
	return func(s *InvitationService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithInvitationBaseURL sets the public URL prefix used in invitation emails.
func WithInvitationBaseURL(baseURL string) InvitationServiceOption {
	return func(s *InvitationService) {
		s.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// InvitationService manages the invitation lifecycle: issue, redeem, revoke
// and expiry cleanup.
type InvitationService struct {
	db           *gorm.DB
	auditService *AuditService
	mailer       mail.Mailer
	now          func() time.Time
	ttl          time.Duration
	tokenSize    int
	baseURL      string
	log          *zap.Logger
}

// NewInvitationService constructs an InvitationService. The mailer may be nil
// when outbound email is disabled; invitations are still created and the link
// has to reach the invitee some other way.
func NewInvitationService(db *gorm.DB, auditService *AuditService, mailer mail.Mailer, opts ...InvitationServiceOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}
	svc := &InvitationService{
		db:           db,
		auditService: auditService,
		mailer:       mailer,
		now:          time.Now,
		ttl:          defaultInvitationTTL,
		tokenSize:    defaultTokenSize,
		log:          logger.WithModule("invitations"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Invite issues an invitation for an email address to join a kitchen. Owner
// only. A fresh invite supersedes any pending one for the same address, and
// the email is dispatched asynchronously so a slow SMTP server never blocks
// the request.
func (s *InvitationService) Invite(ctx context.Context, kitchenID, actorID, email string) (*models.KitchenInvitation, error) {
	ctx = ensureContext(ctx)

	kitchen, membership, err := s.loadKitchen(ctx, kitchenID, actorID)
	if err != nil {
		return nil, err
	}
	if !policy.CanInvite(membership) {
		return nil, apperrors.ErrForbidden
	}

	email = normaliseEmail(email)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}

	member, err := s.emailIsMember(ctx, kitchen.ID, email)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, ErrAlreadyMember
	}

	token, err := crypto.GenerateToken(s.tokenSize)
	if err != nil {
		return nil, fmt.Errorf("invitation service: generate token: %w", err)
	}

	now := s.now().UTC()
	invitation := &models.KitchenInvitation{
		KitchenID: kitchen.ID,
		Email:     email,
		Token:     token,
		ExpiresAt: now.Add(s.ttl),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Supersede only live pending rows; expired ones stay for the
		// maintenance purge.
		if err := tx.Where("kitchen_id = ? AND email = ? AND accepted_at IS NULL AND expires_at > ?", kitchen.ID, email, now).
			Delete(&models.KitchenInvitation{}).Error; err != nil {
			return err
		}
		return tx.Create(invitation).Error
	})
	if err != nil {
		return nil, fmt.Errorf("invitation service: create invitation: %w", err)
	}

	metrics.InvitationEvents.WithLabelValues("created").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &actorID,
		Action:   "invitation.create",
		Resource: invitation.ID,
		Result:   "success",
		Metadata: map[string]any{"kitchen_id": kitchen.ID, "email": email},
	})

	s.dispatchEmail(kitchen, invitation)

	return invitation, nil
}

// Lookup resolves a token to its invitation and kitchen without mutating
// anything. Used by the public probe endpoint so a client can show the
// kitchen name on the accept page.
func (s *InvitationService) Lookup(ctx context.Context, token string) (*models.KitchenInvitation, *models.Kitchen, error) {
	ctx = ensureContext(ctx)

	invitation, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if !invitation.IsAccepted() && invitation.IsExpired(s.now()) {
		return nil, nil, ErrInvitationExpired
	}

	var kitchen models.Kitchen
	if err := s.db.WithContext(ctx).First(&kitchen, "id = ?", invitation.KitchenID).Error; err != nil {
		return nil, nil, fmt.Errorf("invitation service: load kitchen: %w", err)
	}

	return invitation, &kitchen, nil
}

// Redeem accepts an invitation on behalf of a signed-in user. The branch
// order matters: unknown tokens report not found, expired ones report
// expired, previously accepted ones resolve idempotently, and only then is
// authentication required. A successful first redemption attaches the user
// and stamps accepted_at in one transaction.
func (s *InvitationService) Redeem(ctx context.Context, token, userID string) (*RedeemResult, error) {
	ctx = ensureContext(ctx)

	invitation, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if !invitation.IsAccepted() && invitation.IsExpired(now) {
		return nil, ErrInvitationExpired
	}

	var kitchen models.Kitchen
	if err := s.db.WithContext(ctx).First(&kitchen, "id = ?", invitation.KitchenID).Error; err != nil {
		return nil, fmt.Errorf("invitation service: load kitchen: %w", err)
	}

	if invitation.IsAccepted() {
		return &RedeemResult{Outcome: RedeemAlreadyAccepted, Kitchen: &kitchen, Invitation: invitation}, nil
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}

	membership, err := membershipFor(ctx, s.db, &kitchen, userID)
	if err != nil {
		return nil, err
	}
	if membership.IsMember {
		return &RedeemResult{Outcome: RedeemAlreadyMember, Kitchen: &kitchen, Invitation: invitation}, nil
	}

	outcome := RedeemJoined
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member := models.KitchenMember{KitchenID: kitchen.ID, UserID: userID}
		// A racing redemption may insert the membership first. The insert
		// must not raise a duplicate-key error: postgres aborts the whole
		// transaction on any statement error, which would also roll back
		// the accepted_at stamp.
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			outcome = RedeemAlreadyMember
		}
		return tx.Model(invitation).Update("accepted_at", now).Error
	})
	if err != nil {
		return nil, fmt.Errorf("invitation service: redeem invitation: %w", err)
	}
	invitation.AcceptedAt = &now

	metrics.InvitationEvents.WithLabelValues("redeemed").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "invitation.redeem",
		Resource: invitation.ID,
		Result:   string(outcome),
		Metadata: map[string]any{"kitchen_id": kitchen.ID},
	})

	return &RedeemResult{Outcome: outcome, Kitchen: &kitchen, Invitation: invitation}, nil
}

// Revoke deletes a pending invitation. Owner only, and the invitation must
// belong to the named kitchen; a mismatch reads the same as an unknown
// invitation.
func (s *InvitationService) Revoke(ctx context.Context, kitchenID, actorID, invitationID string) error {
	ctx = ensureContext(ctx)

	kitchen, membership, err := s.loadKitchen(ctx, kitchenID, actorID)
	if err != nil {
		return err
	}
	if !policy.CanInvite(membership) {
		return apperrors.ErrForbidden
	}

	var invitation models.KitchenInvitation
	err = s.db.WithContext(ctx).First(&invitation, "id = ?", strings.TrimSpace(invitationID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvitationNotFound
	}
	if err != nil {
		return fmt.Errorf("invitation service: load invitation: %w", err)
	}
	if invitation.KitchenID != kitchen.ID {
		return ErrInvitationNotFound
	}

	if err := s.db.WithContext(ctx).Delete(&invitation).Error; err != nil {
		return fmt.Errorf("invitation service: revoke invitation: %w", err)
	}

	metrics.InvitationEvents.WithLabelValues("revoked").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &actorID,
		Action:   "invitation.revoke",
		Resource: invitation.ID,
		Result:   "success",
		Metadata: map[string]any{"kitchen_id": kitchen.ID, "email": invitation.Email},
	})

	return nil
}

// ListPending returns open invitations for a kitchen, excluding accepted and
// expired ones. Owner only.
func (s *InvitationService) ListPending(ctx context.Context, kitchenID, actorID string) ([]models.KitchenInvitation, error) {
	ctx = ensureContext(ctx)

	kitchen, membership, err := s.loadKitchen(ctx, kitchenID, actorID)
	if err != nil {
		return nil, err
	}
	if !policy.CanInvite(membership) {
		return nil, apperrors.ErrForbidden
	}

	var invitations []models.KitchenInvitation
	err = s.db.WithContext(ctx).
		Where("kitchen_id = ? AND accepted_at IS NULL AND expires_at > ?", kitchen.ID, s.now().UTC()).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("invitation service: list invitations: %w", err)
	}

	return invitations, nil
}

// PurgeExpired deletes expired, never-accepted invitations and returns how
// many were removed. Called by the maintenance cron.
func (s *InvitationService) PurgeExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("accepted_at IS NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&models.KitchenInvitation{})
	if result.Error != nil {
		return 0, fmt.Errorf("invitation service: purge expired: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.InvitationEvents.WithLabelValues("expired_purged").Add(float64(result.RowsAffected))
	}

	return result.RowsAffected, nil
}

// InviteURL renders the public accept link for an invitation.
func (s *InvitationService) InviteURL(invitation *models.KitchenInvitation) string {
	if s.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/invitations/%s", s.baseURL, invitation.Token)
}

func (s *InvitationService) dispatchEmail(kitchen *models.Kitchen, invitation *models.KitchenInvitation) {
	if s.mailer == nil {
		return
	}

	link := s.InviteURL(invitation)
	msg := mail.Message{
		To:      invitation.Email,
		Subject: fmt.Sprintf("You have been invited to join %s", kitchen.Name),
		Body: fmt.Sprintf(
			"You have been invited to join the kitchen %q.\r\n\r\nAccept the invitation: %s\r\n\r\nThe link expires on %s.\r\n",
			kitchen.Name, link, invitation.ExpiresAt.Format(time.RFC1123),
		),
	}

	go func() {
		if err := s.mailer.Send(context.Background(), msg); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
			s.log.Warn("failed to send invitation email",
				zap.String("invitation_id", invitation.ID),
				zap.Error(err))
		}
	}()
}

func (s *InvitationService) findByToken(ctx context.Context, token string) (*models.KitchenInvitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvitationNotFound
	}

	var invitation models.KitchenInvitation
	err := s.db.WithContext(ctx).First(&invitation, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: find invitation: %w", err)
	}

	return &invitation, nil
}

func (s *InvitationService) loadKitchen(ctx context.Context, kitchenID, userID string) (*models.Kitchen, policy.Membership, error) {
	var kitchen models.Kitchen
	err := s.db.WithContext(ctx).First(&kitchen, "id = ?", strings.TrimSpace(kitchenID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, policy.Membership{}, ErrKitchenNotFound
	}
	if err != nil {
		return nil, policy.Membership{}, fmt.Errorf("invitation service: load kitchen: %w", err)
	}

	membership, err := membershipFor(ctx, s.db, &kitchen, userID)
	if err != nil {
		return nil, policy.Membership{}, err
	}

	return &kitchen, membership, nil
}

func (s *InvitationService) emailIsMember(ctx context.Context, kitchenID, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.KitchenMember{}).
		Joins("JOIN users ON users.id = kitchen_members.user_id").
		Where("kitchen_members.kitchen_id = ? AND LOWER(users.email) = ?", kitchenID, email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("invitation service: check membership: %w", err)
	}
	return count > 0, nil
}
