package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kitchenshare/kitchenshare/internal/models"
	"github.com/kitchenshare/kitchenshare/internal/storage"
	apperrors "github.com/kitchenshare/kitchenshare/pkg/errors"
)

func mustRecipeService(t *testing.T, db *gorm.DB, store storage.Store) *RecipeService {
	t.Helper()

	svc, err := NewRecipeService(db, mustAuditService(t, db), store)
	require.NoError(t, err)
	return svc
}

func mustLocalStore(t *testing.T) *storage.LocalStore {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	return store
}

func strPtr(s string) *string { return &s }

func TestRecipeServiceCreate(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustRecipeService(t, db, nil)
	owner := seedUser(t, db, "alice")
	kitchen := seedKitchen(t, db, owner.ID, "Family Kitchen")

	recipe, err := svc.Create(context.Background(), kitchen.ID, owner.ID, CreateRecipeInput{
		Title:       " Spaghetti Carbonara ",
		Description: "A Roman classic.",
		Ingredients: []IngredientInput{
			{Amount: "400g", Title: "Spaghetti"},
			{Amount: "150g", Title: "Guanciale", Description: strPtr("or pancetta")},
			{Amount: "4", Title: "Egg yolks"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Spaghetti Carbonara", recipe.Title)
	assert.Equal(t, owner.ID, recipe.CreatedBy)
	require.Len(t, recipe.Ingredients, 3)
	for i, ing := range recipe.Ingredients {
		assert.Equal(t, i, ing.SortOrder)
	}
	assert.Equal(t, "Spaghetti", recipe.Ingredients[0].Title)
	assert.Equal(t, "Egg yolks", recipe.Ingredients[2].Title)
}

func TestRecipeServiceCreateMemberOnly(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustRecipeService(t, db, nil)
	owner := seedUser(t, db, "alice")
	outsider := seedUser(t, db, "mallory")
	kitchen := seedKitchen(t, db, owner.ID, "Family Kitchen")

	_, err := svc.Create(context.Background(), kitchen.ID, outsider.ID, CreateRecipeInput{Title: "Toast"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestRecipeServiceGetScopedToKitchen(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustRecipeService(t, db, nil)
	owner := seedUser(t, db, "alice")
	kitchen := seedKitchen(t, db, owner.ID, "Family Kitchen")
	other := seedKitchen(t, db, owner.ID, "Second Kitchen")

	recipe, err := svc.Create(context.Background(), kitchen.ID, owner.ID, CreateRecipeInput{Title: "Toast"})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), kitchen.ID, recipe.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, recipe.ID, got.ID)

	// The same recipe id through another kitchen reads as unknown.
	_, err = svc.Get(context.Background(), other.ID, recipe.ID, owner.ID)
	assert.ErrorIs(t, err, ErrRecipeNotFound)
}

func TestRecipeServiceListSearch(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustRecipeService(t, db, nil)
	owner := seedUser(t, db, "alice")
	kitchen := seedKitchen(t, db, owner.ID, "Family Kitchen")

	for _, title := range []string{"Spaghetti Carbonara", "Pancakes", "Spaghetti Bolognese"} {
		_, err := svc.Create(context.Background(), kitchen.ID, owner.ID, CreateRecipeInput{Title: title})
		require.NoError(t, err)
	}

	all, err := svc.List(context.Background(), kitchen.ID, owner.ID, ListRecipesOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	matched, err := svc.List(context.Background(), kitchen.ID, owner.ID, ListRecipesOptions{Search: "spag"})
	require.NoError(t, err)
	require.Len(t, matched, 2)
	for _, r := range matched {
		assert.True(t, strings.HasPrefix(r.Title, "Spaghetti"))
	}

	none, err := svc.List(context.Background(), kitchen.ID, owner.ID, ListRecipesOptions{Search: "sushi"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecipeServiceUpdateReplacesIngredients(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustRecipeService(t, db, nil)
	owner := seedUser(t, db, "alice")
	kitchen := seedKitchen(t, db, owner.ID, "Family Kitchen")

	recipe, err := svc.Create(context.Background(), kitchen.ID, owner.ID, CreateRecipeInput{
		Title: "Omelette",
		Ingredients: []IngredientInput{
			{Amount: "3", Title: "Eggs"},
			{Amount: "20g", Title: "Butter"},
			{Amount: "1 pinch", Title: "Salt"},
		},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), kitchen.ID, recipe.ID, owner.ID, UpdateRecipeInput{
		Ingredients: []IngredientInput{
			{Amount: "4", Title: "Eggs"},
			{Amount: "30g", Title: "Butter"},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Ingredients, 2)
	assert.Equal(t, 0, updated.Ingredients[0].SortOrder)
	assert.Equal(t, "4", updated.Ingredients[0].Amount)
	assert.Equal(t, 1, updated.Ingredients[1].SortOrder)

	// The old rows are gone, not orphaned.
	var count int64
	require.NoError(t, db.Model(&models.Ingredient{}).Where("recipe_id = ?", recipe.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRecipeServiceUpdateLeavesIngredientsWhenOmitted(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustRecipeService(t, db, nil)
	owner := seedUser(t, db, "alice")
	kitchen := seedKitchen(t, db, owner.ID, "Family Kitchen")

	recipe, err := svc.Create(context.Background(), kitchen.ID, owner.ID, CreateRecipeInput{
		Title: "Omelette",
		Ingredients: []IngredientInput{
			{Amount: "3", Title: "Eggs"},
		},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), kitchen.ID, recipe.ID, owner.ID, UpdateRecipeInput{
		Title: strPtr("French Omelette"),
	})
	require.NoError(t, err)
	assert.Equal(t, "French Omelette", updated.Title)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, "Eggs", updated.Ingredients[0].Title)
}

func TestRecipeServiceImageLifecycle(t *testing.T) {
	db := openServiceTestDB(t)
	store := mustLocalStore(t)
	svc := mustRecipeService(t, db, store)
	owner := seedUser(t, db, "alice")
	kitchen := seedKitchen(t, db, owner.ID, "Family Kitchen")

	recipe, err := svc.Create(context.Background(), kitchen.ID, owner.ID, CreateRecipeInput{
		Title: "Pancakes",
		Image: &ImageUpload{Filename: "stack.jpg", Reader: strings.NewReader("first-image")},
	})
	require.NoError(t, err)
	require.NotEmpty(t, recipe.ImageURL)

	var stored models.Recipe
	require.NoError(t, db.First(&stored, "id = ?", recipe.ID).Error)
	require.NotNil(t, stored.ImagePath)
	firstPath := *stored.ImagePath
	assert.FileExists(t, filepath.Join(store.Root(), firstPath))

	// Uploading a replacement removes the previous file.
	_, err = svc.Update(context.Background(), kitchen.ID, recipe.ID, owner.ID, UpdateRecipeInput{
		Image: &ImageUpload{Filename: "stack-v2.jpg", Reader: strings.NewReader("second-image")},
	})
	require.NoError(t, err)

	require.NoError(t, db.First(&stored, "id = ?", recipe.ID).Error)
	require.NotNil(t, stored.ImagePath)
	secondPath := *stored.ImagePath
	assert.NotEqual(t, firstPath, secondPath)
	assert.NoFileExists(t, filepath.Join(store.Root(), firstPath))
	assert.FileExists(t, filepath.Join(store.Root(), secondPath))

	// Deleting the recipe removes the stored image.
	require.NoError(t, svc.Delete(context.Background(), kitchen.ID, recipe.ID, owner.ID))
	assert.NoFileExists(t, filepath.Join(store.Root(), secondPath))

	_, err = os.Stat(filepath.Join(store.Root(), secondPath))
	assert.True(t, os.IsNotExist(err))
}

func TestRecipeServiceRemoveImage(t *testing.T) {
	db := openServiceTestDB(t)
	store := mustLocalStore(t)
	svc := mustRecipeService(t, db, store)
	owner := seedUser(t, db, "alice")
	kitchen := seedKitchen(t, db, owner.ID, "Family Kitchen")

	recipe, err := svc.Create(context.Background(), kitchen.ID, owner.ID, CreateRecipeInput{
		Title: "Pancakes",
		Image: &ImageUpload{Filename: "stack.jpg", Reader: strings.NewReader("image-bytes")},
	})
	require.NoError(t, err)

	var stored models.Recipe
	require.NoError(t, db.First(&stored, "id = ?", recipe.ID).Error)
	path := *stored.ImagePath

	updated, err := svc.Update(context.Background(), kitchen.ID, recipe.ID, owner.ID, UpdateRecipeInput{RemoveImage: true})
	require.NoError(t, err)
	assert.Empty(t, updated.ImageURL)

	require.NoError(t, db.First(&stored, "id = ?", recipe.ID).Error)
	assert.Nil(t, stored.ImagePath)
	assert.NoFileExists(t, filepath.Join(store.Root(), path))
}

func TestRecipeServiceDelete(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustRecipeService(t, db, nil)
	owner := seedUser(t, db, "alice")
	member := seedUser(t, db, "bob")
	outsider := seedUser(t, db, "mallory")
	kitchen := seedKitchen(t, db, owner.ID, "Family Kitchen")
	addMember(t, db, kitchen.ID, member.ID)

	recipe, err := svc.Create(context.Background(), kitchen.ID, owner.ID, CreateRecipeInput{
		Title: "Toast",
		Ingredients: []IngredientInput{
			{Amount: "2", Title: "Bread slices"},
		},
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), kitchen.ID, recipe.ID, outsider.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// Any member may delete a recipe.
	require.NoError(t, svc.Delete(context.Background(), kitchen.ID, recipe.ID, member.ID))

	var recipes, ingredients int64
	require.NoError(t, db.Model(&models.Recipe{}).Where("id = ?", recipe.ID).Count(&recipes).Error)
	require.NoError(t, db.Model(&models.Ingredient{}).Where("recipe_id = ?", recipe.ID).Count(&ingredients).Error)
	assert.Zero(t, recipes)
	assert.Zero(t, ingredients)
}
