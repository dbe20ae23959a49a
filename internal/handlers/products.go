package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shoppy/backend/internal/middleware"
	"github.com/shoppy/backend/internal/models"
	"github.com/shoppy/backend/internal/realtime"
	"github.com/shoppy/backend/internal/services"
	"github.com/shoppy/backend/pkg/icons"
	"github.com/shoppy/backend/pkg/logger"
	"github.com/shoppy/backend/pkg/utils"
	"gorm.io/gorm"
)

// editorRoles are the roles allowed to mutate a cart's products.
var editorRoles = []models.CartRole{models.CartRoleOwner, models.CartRoleAdmin, models.CartRoleEditor}

type ProductsHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
	Hub    *realtime.Hub
}

func NewProductsHandler(db *gorm.DB, access *services.AccessService, hub *realtime.Hub) *ProductsHandler {
	return &ProductsHandler{DB: db, Access: access, Hub: hub}
}

func (h *ProductsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cartID, err := parseUUID(c.Params("cartId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid cart id")
	}

	if _, err := h.Access.RequireRole(c.Context(), cartID, currentUser.ID); err != nil {
		return accessError(c, err)
	}

	var products []models.Product
	if err := h.DB.
		Preload("AddedByUser").
		Where("cart_id = ?", cartID).
		Order("created_at DESC").
		Find(&products).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing products")
	}

	return utils.Success(c, fiber.StatusOK, products)
}

type addProductRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Quantity    *int    `json:"quantity"`
}

func (h *ProductsHandler) Add(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cartID, err := parseUUID(c.Params("cartId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid cart id")
	}

	if _, err := h.Access.RequireRole(c.Context(), cartID, currentUser.ID, editorRoles...); err != nil {
		return accessError(c, err)
	}

	var req addProductRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 200 {
		return utils.Error(c, fiber.StatusBadRequest, "product name must be between 1 and 200 characters")
	}

	quantity := 1
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			return utils.Error(c, fiber.StatusBadRequest, "quantity must be at least 1")
		}
		quantity = *req.Quantity
	}

	addedBy := currentUser.ID
	product := models.Product{
		CartID:      cartID,
		Name:        req.Name,
		Description: req.Description,
		Status:      models.ProductStatusPending,
		Quantity:    quantity,
		Icon:        icons.ForProduct(req.Name),
		AddedBy:     &addedBy,
	}

	if err := h.DB.Create(&product).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating product")
	}

	if err := h.DB.Preload("AddedByUser").First(&product, "id = ?", product.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading product")
	}

	logger.InfoWithUser(currentUser.ID.String(), "product_added", map[string]interface{}{
		"cart_id":    cartID.String(),
		"product_id": product.ID.String(),
	})

	h.Hub.Publish(cartID, realtime.EventProductAdded, product)

	return utils.Success(c, fiber.StatusCreated, product)
}

type updateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Quantity    *int    `json:"quantity"`
}

func (h *ProductsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.DB.First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "product not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading product")
	}

	if _, err := h.Access.RequireRole(c.Context(), product.CartID, currentUser.ID, editorRoles...); err != nil {
		return accessError(c, err)
	}

	var req updateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	// Only fields present in the request are changed.
	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 200 {
			return utils.Error(c, fiber.StatusBadRequest, "product name must be between 1 and 200 characters")
		}
		updates["name"] = name
		updates["icon"] = icons.ForProduct(name)
	}
	if req.Description != nil {
		trimmed := strings.TrimSpace(*req.Description)
		if trimmed == "" {
			updates["description"] = nil
		} else {
			updates["description"] = trimmed
		}
	}
	if req.Status != nil {
		if !models.IsValidProductStatus(*req.Status) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid status")
		}
		updates["status"] = *req.Status
	}
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			return utils.Error(c, fiber.StatusBadRequest, "quantity must be at least 1")
		}
		updates["quantity"] = *req.Quantity
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.Product{}).Where("id = ?", productID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating product")
	}

	if err := h.DB.Preload("AddedByUser").First(&product, "id = ?", productID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading updated product")
	}

	h.Hub.Publish(product.CartID, realtime.EventProductUpdated, product)

	return utils.Success(c, fiber.StatusOK, product)
}

func (h *ProductsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.DB.First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "product not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading product")
	}

	if _, err := h.Access.RequireRole(c.Context(), product.CartID, currentUser.ID, editorRoles...); err != nil {
		return accessError(c, err)
	}

	if err := h.DB.Delete(&models.Product{}, "id = ?", productID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting product")
	}

	h.Hub.Publish(product.CartID, realtime.EventProductDeleted, fiber.Map{"productId": productID.String()})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "product deleted"})
}

func (h *ProductsHandler) DeleteCompleted(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cartID, err := parseUUID(c.Params("cartId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid cart id")
	}

	if _, err := h.Access.RequireRole(c.Context(), cartID, currentUser.ID, editorRoles...); err != nil {
		return accessError(c, err)
	}

	result := h.DB.Where("cart_id = ? AND status = ?", cartID, models.ProductStatusCompleted).Delete(&models.Product{})
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting completed products")
	}

	h.Hub.Publish(cartID, realtime.EventProductsUpdated, fiber.Map{"cartId": cartID.String()})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deletedCount": result.RowsAffected})
}

func (h *ProductsHandler) Clear(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cartID, err := parseUUID(c.Params("cartId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid cart id")
	}

	if _, err := h.Access.RequireRole(c.Context(), cartID, currentUser.ID, editorRoles...); err != nil {
		return accessError(c, err)
	}

	result := h.DB.Where("cart_id = ?", cartID).Delete(&models.Product{})
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed clearing cart")
	}

	h.Hub.Publish(cartID, realtime.EventCartCleared, fiber.Map{"cartId": cartID.String()})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deletedCount": result.RowsAffected})
}

type suggestion struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Autocomplete searches product names across every cart the requester
// belongs to, not just the current one: prior entries anywhere inform
// suggestions everywhere.
func (h *ProductsHandler) Autocomplete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cartID, err := parseUUID(c.Params("cartId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid cart id")
	}

	if _, err := h.Access.RequireRole(c.Context(), cartID, currentUser.ID); err != nil {
		return accessError(c, err)
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return utils.Success(c, fiber.StatusOK, []suggestion{})
	}

	memberCarts := h.DB.Model(&models.CartMembership{}).
		Select("cart_id").
		Where("user_id = ?", currentUser.ID)

	var suggestions []suggestion
	if err := h.DB.Model(&models.Product{}).
		Select("name, icon").
		Where("cart_id IN (?)", memberCarts).
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(query)+"%").
		Group("name, icon").
		Limit(10).
		Scan(&suggestions).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed searching products")
	}

	return utils.Success(c, fiber.StatusOK, suggestions)
}
