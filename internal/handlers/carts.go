package handlers

import (
	"strings"

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

type CartsHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
	Hub    *realtime.Hub
}

func NewCartsHandler(db *gorm.DB, access *services.AccessService, hub *realtime.Hub) *CartsHandler {
	return &CartsHandler{DB: db, Access: access, Hub: hub}
}

type cartSummary struct {
	models.Cart
	UserRole       models.CartRole `json:"userRole"`
	ProductCount   int64           `json:"productCount"`
	CompletedCount int64           `json:"completedCount"`
}

func (h *CartsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var memberships []models.CartMembership
	if err := h.DB.
		Preload("Cart").
		Preload("Cart.Memberships.User").
		Where("user_id = ?", currentUser.ID).
		Order("joined_at DESC").
		Find(&memberships).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing carts")
	}

	cartIDs := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		cartIDs = append(cartIDs, m.CartID)
	}

	type statusCount struct {
		CartID uuid.UUID
		Status models.ProductStatus
		Count  int64
	}
	counts := map[uuid.UUID]map[models.ProductStatus]int64{}
	if len(cartIDs) > 0 {
		var rows []statusCount
		if err := h.DB.Model(&models.Product{}).
			Select("cart_id, status, COUNT(*) AS count").
			Where("cart_id IN ?", cartIDs).
			Group("cart_id, status").
			Scan(&rows).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed counting products")
		}
		for _, row := range rows {
			if counts[row.CartID] == nil {
				counts[row.CartID] = map[models.ProductStatus]int64{}
			}
			counts[row.CartID][row.Status] = row.Count
		}
	}

	summaries := make([]cartSummary, 0, len(memberships))
	for _, m := range memberships {
		byStatus := counts[m.CartID]
		summaries = append(summaries, cartSummary{
			Cart:           m.Cart,
			UserRole:       m.Role,
			ProductCount:   byStatus[models.ProductStatusPending] + byStatus[models.ProductStatusCompleted],
			CompletedCount: byStatus[models.ProductStatusCompleted],
		})
	}

	return utils.Success(c, fiber.StatusOK, summaries)
}

type createCartRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func (h *CartsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createCartRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 100 {
		return utils.Error(c, fiber.StatusBadRequest, "cart name must be between 1 and 100 characters")
	}

	cart := models.Cart{
		Name:    req.Name,
		OwnerID: currentUser.ID,
	}
	if req.Icon != "" {
		cart.Icon = req.Icon
	}

	// The cart and its owner membership are created together so no cart is
	// ever visible without exactly one owner membership.
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&cart).Error; err != nil {
			return err
		}
		membership := models.CartMembership{
			CartID: cart.ID,
			UserID: currentUser.ID,
			Role:   models.CartRoleOwner,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating cart")
	}

	logger.InfoWithUser(currentUser.ID.String(), "cart_created", map[string]interface{}{
		"cart_id":   cart.ID.String(),
		"cart_name": cart.Name,
	})

	return utils.Success(c, fiber.StatusCreated, cart)
}

type cartDetail struct {
	models.Cart
	UserRole models.CartRole `json:"userRole"`
}

func (h *CartsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cartID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid cart id")
	}

	role, err := h.Access.RequireRole(c.Context(), cartID, currentUser.ID)
	if err != nil {
		return accessError(c, err)
	}

	var cart models.Cart
	if err := h.DB.
		Preload("Memberships.User").
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("products.created_at DESC")
		}).
		Preload("Products.AddedByUser").
		Preload("Owner").
		First(&cart, "id = ?", cartID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "cart not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading cart")
	}

	return utils.Success(c, fiber.StatusOK, cartDetail{Cart: cart, UserRole: role})
}

type updateCartRequest struct {
	Name *string `json:"name"`
	Icon *string `json:"icon"`
}

func (h *CartsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cartID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid cart id")
	}

	if _, err := h.Access.RequireRole(c.Context(), cartID, currentUser.ID, models.CartRoleOwner, models.CartRoleAdmin); err != nil {
		return accessError(c, err)
	}

	var req updateCartRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 100 {
			return utils.Error(c, fiber.StatusBadRequest, "cart name must be between 1 and 100 characters")
		}
		updates["name"] = name
	}
	if req.Icon != nil {
		icon := strings.TrimSpace(*req.Icon)
		if icon == "" {
			icon = "default"
		}
		updates["icon"] = icon
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.Cart{}).Where("id = ?", cartID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating cart")
	}

	var updated models.Cart
	if err := h.DB.First(&updated, "id = ?", cartID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading updated cart")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *CartsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cartID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid cart id")
	}

	role, err := h.Access.RequireRole(c.Context(), cartID, currentUser.ID)
	if err != nil {
		return accessError(c, err)
	}
	if role != models.CartRoleOwner {
		return utils.Error(c, fiber.StatusForbidden, "only the owner can delete this cart")
	}

	// Deletion cascades to memberships, products and invitations in one
	// transaction.
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.Invitation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Cart{}, "id = ?", cartID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting cart")
	}

	logger.InfoWithUser(currentUser.ID.String(), "cart_deleted", map[string]interface{}{
		"cart_id": cartID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "cart deleted"})
}

func (h *CartsHandler) RemoveMember(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cartID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid cart id")
	}
	targetUserID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	requesterRole, err := h.Access.RequireRole(c.Context(), cartID, currentUser.ID)
	if err != nil {
		return accessError(c, err)
	}

	target, err := h.Access.Membership(c.Context(), cartID, targetUserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user is not a member of this cart")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading target membership")
	}

	// Both conditions must hold: the owner can never be removed, and only
	// owner or admin may remove anyone.
	if target.Role == models.CartRoleOwner {
		return utils.Error(c, fiber.StatusForbidden, "cannot remove cart owner")
	}
	if requesterRole != models.CartRoleOwner && requesterRole != models.CartRoleAdmin {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	if err := h.DB.Delete(&models.CartMembership{}, "id = ?", target.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed removing member")
	}

	logger.InfoWithUser(currentUser.ID.String(), "cart_member_removed", map[string]interface{}{
		"cart_id":        cartID.String(),
		"target_user_id": targetUserID.String(),
	})

	h.Hub.Publish(cartID, realtime.EventUserRemoved, fiber.Map{"userId": targetUserID.String()})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "user removed from cart"})
}
