package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kitchenshare/kitchenshare/internal/models"
	"github.com/kitchenshare/kitchenshare/internal/policy"
	"github.com/kitchenshare/kitchenshare/internal/storage"
	apperrors "github.com/kitchenshare/kitchenshare/pkg/errors"
	"github.com/kitchenshare/kitchenshare/pkg/logger"
)

var (
	// ErrKitchenNotFound indicates the requested kitchen does not exist.
	ErrKitchenNotFound = apperrors.New("KITCHEN_NOT_FOUND", "Kitchen not found", http.StatusNotFound)
	// ErrMemberNotFound indicates the requested membership does not exist.
	ErrMemberNotFound = apperrors.New("MEMBER_NOT_FOUND", "User is not a member of the kitchen", http.StatusNotFound)
)

// CreateKitchenInput captures new kitchen metadata.
type CreateKitchenInput struct {
	Name string
}

// UpdateKitchenInput describes mutable kitchen fields.
type UpdateKitchenInput struct {
	Name *string
}

// KitchenService handles kitchen lifecycle and membership management.
type KitchenService struct {
	db           *gorm.DB
	auditService *AuditService
	store        storage.Store
	log          *zap.Logger
}

// NewKitchenService constructs a KitchenService instance. The storage handle
// may be nil when recipe images are not served (stored files are then left in
// place on kitchen deletion).
func NewKitchenService(db *gorm.DB, auditService *AuditService, store storage.Store) (*KitchenService, error) {
	if db == nil {
		return nil, errors.New("kitchen service: db is required")
	}
	return &KitchenService{
		db:           db,
		auditService: auditService,
		store:        store,
		log:          logger.WithModule("kitchens"),
	}, nil
}

// Create registers a new kitchen and enrols the owner as its first member.
// Both rows are written in one transaction so the owner-is-a-member invariant
// holds from the moment the kitchen exists.
func (s *KitchenService) Create(ctx context.Context, ownerID string, input CreateKitchenInput) (*models.Kitchen, error) {
	ctx = ensureContext(ctx)

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("kitchen name is required")
	}

	kitchen := &models.Kitchen{
		Name:    name,
		OwnerID: ownerID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(kitchen).Error; err != nil {
			return err
		}
		member := models.KitchenMember{KitchenID: kitchen.ID, UserID: ownerID}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, fmt.Errorf("kitchen service: create kitchen: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &ownerID,
		Action:   "kitchen.create",
		Resource: kitchen.ID,
		Result:   "success",
		Metadata: map[string]any{"name": kitchen.Name},
	})

	return kitchen, nil
}

// List returns the kitchens the user belongs to, newest first, with member and
// recipe counts attached.
func (s *KitchenService) List(ctx context.Context, userID string) ([]models.Kitchen, error) {
	ctx = ensureContext(ctx)

	var kitchens []models.Kitchen
	err := s.db.WithContext(ctx).
		Joins("JOIN kitchen_members ON kitchen_members.kitchen_id = kitchens.id").
		Where("kitchen_members.user_id = ?", userID).
		Preload("Owner").
		Order("kitchens.created_at DESC").
		Find(&kitchens).Error
	if err != nil {
		return nil, fmt.Errorf("kitchen service: list kitchens: %w", err)
	}

	for i := range kitchens {
		if err := s.attachCounts(ctx, &kitchens[i]); err != nil {
			return nil, err
		}
	}

	return kitchens, nil
}

// Get loads a kitchen with its owner and members for a requesting member.
func (s *KitchenService) Get(ctx context.Context, kitchenID, userID string) (*models.Kitchen, error) {
	ctx = ensureContext(ctx)

	kitchen, membership, err := s.load(ctx, kitchenID, userID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewKitchen(membership) {
		return nil, apperrors.ErrForbidden
	}

	if err := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("Members").
		First(kitchen, "id = ?", kitchen.ID).Error; err != nil {
		return nil, fmt.Errorf("kitchen service: reload kitchen: %w", err)
	}
	if err := s.attachCounts(ctx, kitchen); err != nil {
		return nil, err
	}

	return kitchen, nil
}

// Update modifies kitchen metadata. Any member may rename the kitchen.
func (s *KitchenService) Update(ctx context.Context, kitchenID, userID string, input UpdateKitchenInput) (*models.Kitchen, error) {
	ctx = ensureContext(ctx)

	kitchen, membership, err := s.load(ctx, kitchenID, userID)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdateKitchen(membership) {
		return nil, apperrors.ErrForbidden
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("kitchen name is required")
		}
		if name != kitchen.Name {
			updates["name"] = name
		}
	}

	if len(updates) == 0 {
		return kitchen, nil
	}

	if err := s.db.WithContext(ctx).Model(kitchen).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("kitchen service: update kitchen: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "kitchen.update",
		Resource: kitchen.ID,
		Result:   "success",
		Metadata: updates,
	})

	return kitchen, nil
}

// Delete removes a kitchen with everything in it. Owner only. Stored recipe
// images are removed after the rows are gone; file removal failures are
// logged, not surfaced.
func (s *KitchenService) Delete(ctx context.Context, kitchenID, userID string) error {
	ctx = ensureContext(ctx)

	kitchen, membership, err := s.load(ctx, kitchenID, userID)
	if err != nil {
		return err
	}
	if !policy.CanDeleteKitchen(membership) {
		return apperrors.ErrForbidden
	}

	var imagePaths []string
	if err := s.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Where("kitchen_id = ? AND image_path IS NOT NULL", kitchen.ID).
		Pluck("image_path", &imagePaths).Error; err != nil {
		return fmt.Errorf("kitchen service: collect image paths: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id IN (?)", tx.Model(&models.Recipe{}).Select("id").Where("kitchen_id = ?", kitchen.ID)).Delete(&models.Ingredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("kitchen_id = ?", kitchen.ID).Delete(&models.Recipe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("kitchen_id = ?", kitchen.ID).Delete(&models.KitchenInvitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("kitchen_id = ?", kitchen.ID).Delete(&models.KitchenMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Kitchen{}, "id = ?", kitchen.ID).Error
	})
	if err != nil {
		return fmt.Errorf("kitchen service: delete kitchen: %w", err)
	}

	if s.store != nil {
		for _, path := range imagePaths {
			if err := s.store.Delete(ctx, path); err != nil {
				s.log.Warn("failed to remove recipe image", zap.String("path", path), zap.Error(err))
			}
		}
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "kitchen.delete",
		Resource: kitchen.ID,
		Result:   "success",
		Metadata: map[string]any{"name": kitchen.Name},
	})

	return nil
}

// RemoveMember drops a membership. Owner only; the owner's own membership is
// not removable.
func (s *KitchenService) RemoveMember(ctx context.Context, kitchenID, actorID, memberID string) error {
	ctx = ensureContext(ctx)

	kitchen, membership, err := s.load(ctx, kitchenID, actorID)
	if err != nil {
		return err
	}
	if !policy.CanRemoveMember(membership) {
		return apperrors.ErrForbidden
	}
	if kitchen.IsOwner(memberID) {
		return apperrors.NewBadRequest("the kitchen owner cannot be removed")
	}

	result := s.db.WithContext(ctx).
		Where("kitchen_id = ? AND user_id = ?", kitchen.ID, memberID).
		Delete(&models.KitchenMember{})
	if result.Error != nil {
		return fmt.Errorf("kitchen service: remove member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &actorID,
		Action:   "kitchen.remove_member",
		Resource: kitchen.ID,
		Result:   "success",
		Metadata: map[string]any{"member_id": memberID},
	})

	return nil
}

// Membership resolves the requesting user's standing in a kitchen.
func (s *KitchenService) Membership(ctx context.Context, kitchen *models.Kitchen, userID string) (policy.Membership, error) {
	return membershipFor(ensureContext(ctx), s.db, kitchen, userID)
}

// load fetches the kitchen and the caller's membership in one step.
func (s *KitchenService) load(ctx context.Context, kitchenID, userID string) (*models.Kitchen, policy.Membership, error) {
	var kitchen models.Kitchen
	err := s.db.WithContext(ctx).First(&kitchen, "id = ?", strings.TrimSpace(kitchenID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, policy.Membership{}, ErrKitchenNotFound
	}
	if err != nil {
		return nil, policy.Membership{}, fmt.Errorf("kitchen service: load kitchen: %w", err)
	}

	membership, err := membershipFor(ctx, s.db, &kitchen, userID)
	if err != nil {
		return nil, policy.Membership{}, err
	}

	return &kitchen, membership, nil
}

func (s *KitchenService) attachCounts(ctx context.Context, kitchen *models.Kitchen) error {
	if err := s.db.WithContext(ctx).
		Model(&models.KitchenMember{}).
		Where("kitchen_id = ?", kitchen.ID).
		Count(&kitchen.MemberCount).Error; err != nil {
		return fmt.Errorf("kitchen service: count members: %w", err)
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Where("kitchen_id = ?", kitchen.ID).
		Count(&kitchen.RecipeCount).Error; err != nil {
		return fmt.Errorf("kitchen service: count recipes: %w", err)
	}
	return nil
}

// membershipFor resolves a policy.Membership against the join table.
func membershipFor(ctx context.Context, db *gorm.DB, kitchen *models.Kitchen, userID string) (policy.Membership, error) {
	userID = strings.TrimSpace(userID)
	if kitchen == nil || userID == "" {
		return policy.Membership{}, nil
	}

	var count int64
	err := db.WithContext(ctx).
		Model(&models.KitchenMember{}).
		Where("kitchen_id = ? AND user_id = ?", kitchen.ID, userID).
		Count(&count).Error
	if err != nil {
		return policy.Membership{}, fmt.Errorf("resolve membership: %w", err)
	}

	return policy.Membership{
		IsMember: count > 0,
		IsOwner:  kitchen.IsOwner(userID),
	}, nil
}
