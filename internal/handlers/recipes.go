package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kitchenshare/kitchenshare/internal/middleware"
	"github.com/kitchenshare/kitchenshare/internal/services"
	appErrors "github.com/kitchenshare/kitchenshare/pkg/errors"
	"github.com/kitchenshare/kitchenshare/pkg/response"
)

const maxImageSize = 10 << 20 // 10 MiB

// RecipeHandler exposes recipe CRUD endpoints. Create and Update accept
// either a plain JSON body or multipart/form-data with a "payload" JSON part
// and an optional "image" file part.
type RecipeHandler struct {
	recipes *services.RecipeService
}

func NewRecipeHandler(recipes *services.RecipeService) *RecipeHandler {
	return &RecipeHandler{recipes: recipes}
}

type createRecipeRequest struct {
	Title       string                     `json:"title" validate:"required,min=1,max=255"`
	Description string                     `json:"description" validate:"omitempty,max=4096"`
	Ingredients []services.IngredientInput `json:"ingredients" validate:"omitempty,dive"`
}

type updateRecipeRequest struct {
	Title       *string                    `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string                    `json:"description" validate:"omitempty,max=4096"`
	Ingredients []services.IngredientInput `json:"ingredients" validate:"omitempty,dive"`
	RemoveImage bool                       `json:"remove_image"`
}

// POST /api/kitchens/:id/recipes
func (h *RecipeHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	var req createRecipeRequest
	image, ok := bindRecipePayload(c, &req)
	if !ok {
		return
	}
	defer closeUpload(image)

	recipe, err := h.recipes.Create(requestContext(c), c.Param("id"), userID, services.CreateRecipeInput{
		Title:       req.Title,
		Description: req.Description,
		Ingredients: req.Ingredients,
		Image:       image,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, recipe)
}

// GET /api/kitchens/:id/recipes
func (h *RecipeHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	recipes, err := h.recipes.List(requestContext(c), c.Param("id"), userID, services.ListRecipesOptions{
		Search: c.Query("search"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, recipes)
}

// GET /api/kitchens/:id/recipes/:recipeId
func (h *RecipeHandler) Get(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	recipe, err := h.recipes.Get(requestContext(c), c.Param("id"), c.Param("recipeId"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, recipe)
}

// PUT /api/kitchens/:id/recipes/:recipeId
func (h *RecipeHandler) Update(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	var req updateRecipeRequest
	image, ok := bindRecipePayload(c, &req)
	if !ok {
		return
	}
	defer closeUpload(image)

	recipe, err := h.recipes.Update(requestContext(c), c.Param("id"), c.Param("recipeId"), userID, services.UpdateRecipeInput{
		Title:       req.Title,
		Description: req.Description,
		Ingredients: req.Ingredients,
		Image:       image,
		RemoveImage: req.RemoveImage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, recipe)
}

// DELETE /api/kitchens/:id/recipes/:recipeId
func (h *RecipeHandler) Delete(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	if err := h.recipes.Delete(requestContext(c), c.Param("id"), c.Param("recipeId"), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// bindRecipePayload decodes a recipe payload from JSON or multipart form
// data, returning the uploaded image when one is attached. The multipart
// file handle is closed when the request context is recycled by gin.
func bindRecipePayload[T any](c *gin.Context, dest *T) (*services.ImageUpload, bool) {
	contentType := c.GetHeader("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		if !bindAndValidate(c, dest) {
			return nil, false
		}
		return nil, true
	}

	payload := c.PostForm("payload")
	if payload == "" {
		response.Error(c, appErrors.NewBadRequest("payload form field is required"))
		return nil, false
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return nil, false
	}
	if !validateStruct(c, dest) {
		return nil, false
	}

	header, err := c.FormFile("image")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, true
		}
		response.Error(c, appErrors.NewBadRequest("invalid image upload"))
		return nil, false
	}
	if header.Size > maxImageSize {
		response.Error(c, appErrors.NewBadRequest("image exceeds the maximum allowed size"))
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid image upload"))
		return nil, false
	}

	return &services.ImageUpload{Filename: header.Filename, Reader: file}, true
}

func closeUpload(image *services.ImageUpload) {
	if image == nil {
		return
	}
	if closer, ok := image.Reader.(io.Closer); ok {
		_ = closer.Close()
	}
}
