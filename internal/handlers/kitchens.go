package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kitchenshare/kitchenshare/internal/middleware"
	"github.com/kitchenshare/kitchenshare/internal/services"
	appErrors "github.com/kitchenshare/kitchenshare/pkg/errors"
	"github.com/kitchenshare/kitchenshare/pkg/response"
)

// KitchenHandler exposes kitchen CRUD and membership endpoints.
type KitchenHandler struct {
	kitchens *services.KitchenService
}

func NewKitchenHandler(kitchens *services.KitchenService) *KitchenHandler {
	return &KitchenHandler{kitchens: kitchens}
}

type createKitchenRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
}

type updateKitchenRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=128"`
}

// POST /api/kitchens
func (h *KitchenHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createKitchenRequest
	if !bindAndValidate(c, &req) {
		return
	}

	kitchen, err := h.kitchens.Create(requestContext(c), userID, services.CreateKitchenInput{Name: req.Name})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, kitchen)
}

// GET /api/kitchens
func (h *KitchenHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	kitchens, err := h.kitchens.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, kitchens)
}

// GET /api/kitchens/:id
func (h *KitchenHandler) Get(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	kitchen, err := h.kitchens.Get(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, kitchen)
}

// PUT /api/kitchens/:id
func (h *KitchenHandler) Update(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	var req updateKitchenRequest
	if !bindAndValidate(c, &req) {
		return
	}

	kitchen, err := h.kitchens.Update(requestContext(c), c.Param("id"), userID, services.UpdateKitchenInput{Name: req.Name})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, kitchen)
}

// DELETE /api/kitchens/:id
func (h *KitchenHandler) Delete(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	if err := h.kitchens.Delete(requestContext(c), c.Param("id"), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// DELETE /api/kitchens/:id/members/:userId
func (h *KitchenHandler) RemoveMember(c *gin.Context) {
	actorID := c.GetString(middleware.CtxUserIDKey)

	if err := h.kitchens.RemoveMember(requestContext(c), c.Param("id"), actorID, c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
