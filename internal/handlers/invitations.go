package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kitchenshare/kitchenshare/internal/middleware"
	"github.com/kitchenshare/kitchenshare/internal/models"
	"github.com/kitchenshare/kitchenshare/internal/services"
	"github.com/kitchenshare/kitchenshare/pkg/response"
)

// InvitationHandler exposes the invitation lifecycle endpoints.
type InvitationHandler struct {
	invitations *services.InvitationService
}

func NewInvitationHandler(invitations *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

type createInvitationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type invitationDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	KitchenID string    `json:"kitchen_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type invitationInfoResponse struct {
	KitchenName string    `json:"kitchen_name"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
	Accepted    bool      `json:"accepted"`
}

type redeemResponse struct {
	Outcome string          `json:"outcome"`
	Kitchen *models.Kitchen `json:"kitchen"`
}

func invitationToDTO(inv *models.KitchenInvitation) invitationDTO {
	return invitationDTO{
		ID:        inv.ID,
		Email:     inv.Email,
		KitchenID: inv.KitchenID,
		CreatedAt: inv.CreatedAt,
		ExpiresAt: inv.ExpiresAt,
	}
}

// POST /api/kitchens/:id/invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	var req createInvitationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	invitation, err := h.invitations.Invite(requestContext(c), c.Param("id"), userID, req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, invitationToDTO(invitation))
}

// GET /api/kitchens/:id/invitations
func (h *InvitationHandler) ListPending(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	invitations, err := h.invitations.ListPending(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	dtos := make([]invitationDTO, 0, len(invitations))
	for i := range invitations {
		dtos = append(dtos, invitationToDTO(&invitations[i]))
	}

	response.Success(c, http.StatusOK, dtos)
}

// DELETE /api/kitchens/:id/invitations/:invitationId
func (h *InvitationHandler) Revoke(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	if err := h.invitations.Revoke(requestContext(c), c.Param("id"), userID, c.Param("invitationId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/invitations/:token
//
// Public probe used by the accept page to show where the invitee is headed
// before they sign in.
func (h *InvitationHandler) Lookup(c *gin.Context) {
	invitation, kitchen, err := h.invitations.Lookup(requestContext(c), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invitationInfoResponse{
		KitchenName: kitchen.Name,
		Email:       invitation.Email,
		ExpiresAt:   invitation.ExpiresAt,
		Accepted:    invitation.IsAccepted(),
	})
}

// POST /api/invitations/:token/accept
//
// Runs behind OptionalAuth: an anonymous caller with a valid token gets the
// token echoed back in the error details so the client can resume the flow
// after login or signup.
func (h *InvitationHandler) Accept(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	token := c.Param("token")

	result, err := h.invitations.Redeem(requestContext(c), token, userID)
	if err != nil {
		if errors.Is(err, services.ErrAuthenticationRequired) {
			response.ErrorWithDetails(c, err, gin.H{"token": token})
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, redeemResponse{
		Outcome: string(result.Outcome),
		Kitchen: result.Kitchen,
	})
}
