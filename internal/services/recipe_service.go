package services

import (
	"context"
	"errors"
	"fmt"
	"io"
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

// ErrRecipeNotFound indicates the recipe does not exist in the named kitchen.
var ErrRecipeNotFound = apperrors.New("RECIPE_NOT_FOUND", "Recipe not found", http.StatusNotFound)

// IngredientInput is one ingredient line in creation order. The position in
// the slice becomes the persisted sort order.
type IngredientInput struct {
	Amount      string  `json:"amount" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
}

// ImageUpload carries an uploaded recipe image stream.
type ImageUpload struct {
	Filename string
	Reader   io.Reader
}

// CreateRecipeInput captures a new recipe with its ingredient list.
type CreateRecipeInput struct {
	Title       string
	Description string
	Ingredients []IngredientInput
	Image       *ImageUpload
}

// UpdateRecipeInput describes a recipe update. A non-nil Ingredients slice
// replaces the whole list; a nil one leaves it untouched. RemoveImage drops
// the stored image without uploading a new one.
type UpdateRecipeInput struct {
	Title       *string
	Description *string
	Ingredients []IngredientInput
	Image       *ImageUpload
	RemoveImage bool
}

// ListRecipesOptions filters a kitchen's recipe listing.
type ListRecipesOptions struct {
	Search string
}

// RecipeService manages recipes and their ingredient lists within a kitchen.
type RecipeService struct {
	db           *gorm.DB
	auditService *AuditService
	store        storage.Store
	log          *zap.Logger
}

// NewRecipeService constructs a RecipeService. The storage handle may be nil
// when image uploads are disabled.
func NewRecipeService(db *gorm.DB, auditService *AuditService, store storage.Store) (*RecipeService, error) {
	if db == nil {
		return nil, errors.New("recipe service: db is required")
	}
	return &RecipeService{
		db:           db,
		auditService: auditService,
		store:        store,
		log:          logger.WithModule("recipes"),
	}, nil
}

// Create adds a recipe to a kitchen. Any member may create; ingredients are
// stored in the order given.
func (s *RecipeService) Create(ctx context.Context, kitchenID, userID string, input CreateRecipeInput) (*models.Recipe, error) {
	ctx = ensureContext(ctx)

	kitchen, membership, err := s.loadKitchen(ctx, kitchenID, userID)
	if err != nil {
		return nil, err
	}
	if !policy.CanCreateRecipe(membership) {
		return nil, apperrors.ErrForbidden
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("recipe title is required")
	}

	recipe := &models.Recipe{
		KitchenID:   kitchen.ID,
		CreatedBy:   userID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Ingredients: buildIngredients(input.Ingredients),
	}

	if input.Image != nil {
		if s.store == nil {
			return nil, apperrors.NewBadRequest("image uploads are not enabled")
		}
		path, err := s.store.Save(ctx, input.Image.Filename, input.Image.Reader)
		if err != nil {
			return nil, fmt.Errorf("recipe service: store image: %w", err)
		}
		recipe.ImagePath = &path
	}

	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		if recipe.ImagePath != nil {
			s.removeImage(ctx, *recipe.ImagePath)
		}
		return nil, fmt.Errorf("recipe service: create recipe: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "recipe.create",
		Resource: recipe.ID,
		Result:   "success",
		Metadata: map[string]any{"kitchen_id": kitchen.ID, "title": recipe.Title},
	})

	s.attachImageURL(recipe)
	return recipe, nil
}

// Get loads a recipe with its ingredients for a kitchen member. A recipe id
// belonging to another kitchen reads the same as an unknown recipe.
func (s *RecipeService) Get(ctx context.Context, kitchenID, recipeID, userID string) (*models.Recipe, error) {
	ctx = ensureContext(ctx)

	_, membership, recipe, err := s.loadRecipe(ctx, kitchenID, recipeID, userID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewRecipe(membership) {
		return nil, apperrors.ErrForbidden
	}

	s.attachImageURL(recipe)
	return recipe, nil
}

// List returns a kitchen's recipes, newest first, optionally filtered by a
// case-insensitive title substring.
func (s *RecipeService) List(ctx context.Context, kitchenID, userID string, opts ListRecipesOptions) ([]models.Recipe, error) {
	ctx = ensureContext(ctx)

	kitchen, membership, err := s.loadKitchen(ctx, kitchenID, userID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewKitchen(membership) {
		return nil, apperrors.ErrForbidden
	}

	query := s.db.WithContext(ctx).
		Where("kitchen_id = ?", kitchen.ID).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Order("created_at DESC")

	if search := strings.TrimSpace(opts.Search); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("recipe service: list recipes: %w", err)
	}

	for i := range recipes {
		s.attachImageURL(&recipes[i])
	}

	return recipes, nil
}

// Update modifies a recipe. A provided ingredient list replaces the previous
// one wholesale, renumbered from zero; a new image replaces the stored file.
func (s *RecipeService) Update(ctx context.Context, kitchenID, recipeID, userID string, input UpdateRecipeInput) (*models.Recipe, error) {
	ctx = ensureContext(ctx)

	kitchen, membership, recipe, err := s.loadRecipe(ctx, kitchenID, recipeID, userID)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdateRecipe(membership) {
		return nil, apperrors.ErrForbidden
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewBadRequest("recipe title is required")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}

	var oldImage string
	if input.Image != nil {
		if s.store == nil {
			return nil, apperrors.NewBadRequest("image uploads are not enabled")
		}
		path, err := s.store.Save(ctx, input.Image.Filename, input.Image.Reader)
		if err != nil {
			return nil, fmt.Errorf("recipe service: store image: %w", err)
		}
		if recipe.ImagePath != nil {
			oldImage = *recipe.ImagePath
		}
		updates["image_path"] = path
	} else if input.RemoveImage && recipe.ImagePath != nil {
		oldImage = *recipe.ImagePath
		updates["image_path"] = nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(recipe).Updates(updates).Error; err != nil {
				return err
			}
		}
		if input.Ingredients != nil {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Ingredient{}).Error; err != nil {
				return err
			}
			ingredients := buildIngredients(input.Ingredients)
			for i := range ingredients {
				ingredients[i].RecipeID = recipe.ID
			}
			if len(ingredients) > 0 {
				if err := tx.Create(&ingredients).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		if path, ok := updates["image_path"].(string); ok {
			s.removeImage(ctx, path)
		}
		return nil, fmt.Errorf("recipe service: update recipe: %w", err)
	}

	if oldImage != "" {
		s.removeImage(ctx, oldImage)
	}

	if err := s.db.WithContext(ctx).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		First(recipe, "id = ?", recipe.ID).Error; err != nil {
		return nil, fmt.Errorf("recipe service: reload recipe: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "recipe.update",
		Resource: recipe.ID,
		Result:   "success",
		Metadata: map[string]any{"kitchen_id": kitchen.ID},
	})

	s.attachImageURL(recipe)
	return recipe, nil
}

// Delete removes a recipe with its ingredients and stored image.
func (s *RecipeService) Delete(ctx context.Context, kitchenID, recipeID, userID string) error {
	ctx = ensureContext(ctx)

	kitchen, membership, recipe, err := s.loadRecipe(ctx, kitchenID, recipeID, userID)
	if err != nil {
		return err
	}
	if !policy.CanDeleteRecipe(membership) {
		return apperrors.ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Ingredient{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Recipe{}, "id = ?", recipe.ID).Error
	})
	if err != nil {
		return fmt.Errorf("recipe service: delete recipe: %w", err)
	}

	if recipe.ImagePath != nil {
		s.removeImage(ctx, *recipe.ImagePath)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "recipe.delete",
		Resource: recipe.ID,
		Result:   "success",
		Metadata: map[string]any{"kitchen_id": kitchen.ID, "title": recipe.Title},
	})

	return nil
}

func (s *RecipeService) loadKitchen(ctx context.Context, kitchenID, userID string) (*models.Kitchen, policy.Membership, error) {
	var kitchen models.Kitchen
	err := s.db.WithContext(ctx).First(&kitchen, "id = ?", strings.TrimSpace(kitchenID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, policy.Membership{}, ErrKitchenNotFound
	}
	if err != nil {
		return nil, policy.Membership{}, fmt.Errorf("recipe service: load kitchen: %w", err)
	}

	membership, err := membershipFor(ctx, s.db, &kitchen, userID)
	if err != nil {
		return nil, policy.Membership{}, err
	}

	return &kitchen, membership, nil
}

func (s *RecipeService) loadRecipe(ctx context.Context, kitchenID, recipeID, userID string) (*models.Kitchen, policy.Membership, *models.Recipe, error) {
	kitchen, membership, err := s.loadKitchen(ctx, kitchenID, userID)
	if err != nil {
		return nil, policy.Membership{}, nil, err
	}

	var recipe models.Recipe
	err = s.db.WithContext(ctx).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		First(&recipe, "id = ?", strings.TrimSpace(recipeID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, policy.Membership{}, nil, ErrRecipeNotFound
	}
	if err != nil {
		return nil, policy.Membership{}, nil, fmt.Errorf("recipe service: load recipe: %w", err)
	}
	if recipe.KitchenID != kitchen.ID {
		return nil, policy.Membership{}, nil, ErrRecipeNotFound
	}

	return kitchen, membership, &recipe, nil
}

func (s *RecipeService) attachImageURL(recipe *models.Recipe) {
	if recipe.ImagePath == nil || s.store == nil {
		return
	}
	recipe.ImageURL = s.store.URL(*recipe.ImagePath)
}

func (s *RecipeService) removeImage(ctx context.Context, path string) {
	if s.store == nil || path == "" {
		return
	}
	if err := s.store.Delete(ctx, path); err != nil {
		s.log.Warn("failed to remove recipe image", zap.String("path", path), zap.Error(err))
	}
}

func buildIngredients(inputs []IngredientInput) []models.Ingredient {
	ingredients := make([]models.Ingredient, 0, len(inputs))
	for i, in := range inputs {
		ingredients = append(ingredients, models.Ingredient{
			Amount:      strings.TrimSpace(in.Amount),
			Title:       strings.TrimSpace(in.Title),
			Description: in.Description,
			SortOrder:   i,
		})
	}
	return ingredients
}
