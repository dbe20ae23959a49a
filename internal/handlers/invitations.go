package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shoppy/backend/internal/middleware"
	"github.com/shoppy/backend/internal/models"
	"github.com/shoppy/backend/internal/realtime"
	"github.com/shoppy/backend/internal/services"
	"github.com/shoppy/backend/pkg/logger"
	"github.com/shoppy/backend/pkg/utils"
	"gorm.io/gorm"
)

type InvitationsHandler struct {
	DB         *gorm.DB
	Access     *services.AccessService
	Hub        *realtime.Hub
	ExpiryDays int
}

func NewInvitationsHandler(db *gorm.DB, access *services.AccessService, hub *realtime.Hub, expiryDays int) *InvitationsHandler {
	return &InvitationsHandler{DB: db, Access: access, Hub: hub, ExpiryDays: expiryDays}
}

type createInvitationRequest struct {
	InvitedUsername *string `json:"invitedUsername"`
	Role            *string `json:"role"`
	SingleUse       *bool   `json:"singleUse"`
}

func (h *InvitationsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cartID, err := parseUUID(c.Params("cartId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid cart id")
	}

	if _, err := h.Access.RequireRole(c.Context(), cartID, currentUser.ID, models.CartRoleOwner, models.CartRoleAdmin); err != nil {
		return accessError(c, err)
	}

	var req createInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	// An invitation never grants ownership.
	role := models.CartRoleEditor
	if req.Role != nil {
		switch models.CartRole(*req.Role) {
		case models.CartRoleAdmin, models.CartRoleEditor, models.CartRoleViewer:
			role = models.CartRole(*req.Role)
		default:
			return utils.Error(c, fiber.StatusBadRequest, "invalid role")
		}
	}

	var invitedUsername *string
	if req.InvitedUsername != nil {
		username := strings.TrimSpace(*req.InvitedUsername)
		if username != "" {
			if len(username) < 3 || len(username) > 50 {
				return utils.Error(c, fiber.StatusBadRequest, "invalid username")
			}
			invitedUsername = &username
		}
	}

	if invitedUsername != nil {
		// A user who is already a member must not be invited again.
		var invitedUser models.User
		if err := h.DB.First(&invitedUser, "username = ?", *invitedUsername).Error; err == nil {
			if _, err := h.Access.Membership(c.Context(), cartID, invitedUser.ID); err == nil {
				return utils.Error(c, fiber.StatusConflict, "user is already a member of this cart")
			}
		}

		// At most one live invitation per (cart, username) pair.
		var pendingCount int64
		if err := h.DB.Model(&models.Invitation{}).
			Where("cart_id = ? AND invited_username = ? AND status = ? AND expires_at > ?",
				cartID, *invitedUsername, models.InvitationStatusPending, time.Now()).
			Count(&pendingCount).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed checking pending invitations")
		}
		if pendingCount > 0 {
			return utils.Error(c, fiber.StatusConflict, "a pending invitation already exists for this user")
		}
	}

	singleUse := true
	if req.SingleUse != nil {
		singleUse = *req.SingleUse
	}

	invitation := models.Invitation{
		CartID:          cartID,
		InvitedUsername: invitedUsername,
		InvitedBy:       currentUser.ID,
		Role:            role,
		Status:          models.InvitationStatusPending,
		SingleUse:       singleUse,
		ExpiresAt:       time.Now().AddDate(0, 0, h.ExpiryDays),
	}

	if err := h.DB.Create(&invitation).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating invitation")
	}

	if err := h.DB.Preload("Cart").Preload("Inviter").First(&invitation, "id = ?", invitation.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading invitation")
	}

	logger.InfoWithUser(currentUser.ID.String(), "invitation_created", map[string]interface{}{
		"cart_id":       cartID.String(),
		"invitation_id": invitation.ID.String(),
		"role":          string(role),
		"single_use":    singleUse,
	})

	return utils.Success(c, fiber.StatusCreated, invitation)
}

func (h *InvitationsHandler) ListForCart(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cartID, err := parseUUID(c.Params("cartId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid cart id")
	}

	if _, err := h.Access.RequireRole(c.Context(), cartID, currentUser.ID, models.CartRoleOwner, models.CartRoleAdmin); err != nil {
		return accessError(c, err)
	}

	var invitations []models.Invitation
	if err := h.DB.
		Preload("Inviter").
		Where("cart_id = ? AND status = ?", cartID, models.InvitationStatusPending).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing invitations")
	}

	return utils.Success(c, fiber.StatusOK, invitations)
}

var (
	errInvitationExpired    = fmt.Errorf("invitation has expired")
	errInvitationNotPending = fmt.Errorf("invitation is not pending")
)

// lookupByToken fetches a usable invitation. An invitation found past its
// expiry while still pending is flipped to expired as a side effect of the
// read; the transition is idempotent, so concurrent readers agree.
func (h *InvitationsHandler) lookupByToken(token uuid.UUID) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := h.DB.Preload("Cart").Preload("Inviter").First(&invitation, "token = ?", token).Error; err != nil {
		return nil, err
	}

	if invitation.IsExpired(time.Now()) {
		if invitation.Status == models.InvitationStatusPending {
			if err := h.DB.Model(&models.Invitation{}).
				Where("id = ? AND status = ?", invitation.ID, models.InvitationStatusPending).
				Update("status", models.InvitationStatusExpired).Error; err != nil {
				return nil, err
			}
			invitation.Status = models.InvitationStatusExpired
		}
		return &invitation, errInvitationExpired
	}

	if invitation.Status != models.InvitationStatusPending {
		return &invitation, errInvitationNotPending
	}

	return &invitation, nil
}

func (h *InvitationsHandler) GetByToken(c *fiber.Ctx) error {
	token, err := parseUUID(c.Params("token"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid invitation token")
	}

	invitation, err := h.lookupByToken(token)
	switch {
	case err == gorm.ErrRecordNotFound:
		return utils.Error(c, fiber.StatusNotFound, "invitation not found")
	case err == errInvitationExpired:
		return utils.Error(c, fiber.StatusBadRequest, "invitation has expired")
	case err == errInvitationNotPending:
		return utils.Error(c, fiber.StatusBadRequest, fmt.Sprintf("invitation is %s", invitation.Status))
	case err != nil:
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading invitation")
	}

	return utils.Success(c, fiber.StatusOK, invitation)
}

func (h *InvitationsHandler) Accept(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	token, err := parseUUID(c.Params("token"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid invitation token")
	}

	invitation, err := h.lookupByToken(token)
	switch {
	case err == gorm.ErrRecordNotFound:
		return utils.Error(c, fiber.StatusNotFound, "invitation not found")
	case err == errInvitationExpired:
		return utils.Error(c, fiber.StatusBadRequest, "invitation has expired")
	case err == errInvitationNotPending:
		return utils.Error(c, fiber.StatusBadRequest, fmt.Sprintf("invitation is %s", invitation.Status))
	case err != nil:
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading invitation")
	}

	if _, err := h.Access.Membership(c.Context(), invitation.CartID, currentUser.ID); err == nil {
		return utils.Error(c, fiber.StatusConflict, "you are already a member of this cart")
	} else if err != gorm.ErrRecordNotFound {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking membership")
	}

	// Membership creation and the pending->accepted transition are one
	// atomic unit. The optimistic status guard means only one of two
	// concurrent accepts wins even if both passed the pending read above;
	// the unique (cart_id, user_id) index is the backstop.
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", invitation.ID, models.InvitationStatusPending).
			Update("status", models.InvitationStatusAccepted)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errInvitationNotPending
		}

		membership := models.CartMembership{
			CartID: invitation.CartID,
			UserID: currentUser.ID,
			Role:   invitation.Role,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		if err == errInvitationNotPending {
			return utils.Error(c, fiber.StatusBadRequest, "invitation is no longer pending")
		}
		return utils.Error(c, fiber.StatusConflict, "failed accepting invitation")
	}

	var cart models.Cart
	if err := h.DB.Preload("Owner").First(&cart, "id = ?", invitation.CartID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading cart")
	}

	logger.InfoWithUser(currentUser.ID.String(), "invitation_accepted", map[string]interface{}{
		"cart_id":       cart.ID.String(),
		"invitation_id": invitation.ID.String(),
		"role":          string(invitation.Role),
	})

	h.Hub.Publish(cart.ID, realtime.EventUserJoined, fiber.Map{
		"user": currentUser,
		"role": invitation.Role,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"cart": cart, "role": invitation.Role})
}

func (h *InvitationsHandler) Revoke(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	invitationID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid invitation id")
	}

	var invitation models.Invitation
	if err := h.DB.First(&invitation, "id = ?", invitationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "invitation not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading invitation")
	}

	if _, err := h.Access.RequireRole(c.Context(), invitation.CartID, currentUser.ID, models.CartRoleOwner, models.CartRoleAdmin); err != nil {
		return accessError(c, err)
	}

	if invitation.Status != models.InvitationStatusPending {
		return utils.Error(c, fiber.StatusBadRequest, "can only revoke pending invitations")
	}

	result := h.DB.Model(&models.Invitation{}).
		Where("id = ? AND status = ?", invitationID, models.InvitationStatusPending).
		Update("status", models.InvitationStatusRevoked)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed revoking invitation")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "can only revoke pending invitations")
	}

	logger.InfoWithUser(currentUser.ID.String(), "invitation_revoked", map[string]interface{}{
		"cart_id":       invitation.CartID.String(),
		"invitation_id": invitationID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "invitation revoked"})
}
