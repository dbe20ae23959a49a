package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shoppy/backend/internal/middleware"
	"github.com/shoppy/backend/internal/models"
	"github.com/shoppy/backend/pkg/icons"
	"github.com/shoppy/backend/pkg/utils"
	"gorm.io/gorm"
)

// CatalogHandler manages the global product catalog used to pre-fill
// product entries.
type CatalogHandler struct {
	DB *gorm.DB
}

func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{DB: db}
}

func (h *CatalogHandler) List(c *fiber.Ctx) error {
	if middleware.GetCurrentUser(c) == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	query := h.DB.Model(&models.CatalogItem{}).Order("name ASC")
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var items []models.CatalogItem
	if err := query.Find(&items).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing catalog")
	}

	return utils.Success(c, fiber.StatusOK, items)
}

type catalogItemRequest struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	DefaultUnit *string `json:"defaultUnit"`
	Icon        *string `json:"icon"`
}

func (h *CatalogHandler) Create(c *fiber.Ctx) error {
	if middleware.GetCurrentUser(c) == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req catalogItemRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name == nil {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}
	name := strings.TrimSpace(*req.Name)
	if name == "" || len(name) > 200 {
		return utils.Error(c, fiber.StatusBadRequest, "name must be between 1 and 200 characters")
	}

	item := models.CatalogItem{
		Name:        name,
		Category:    req.Category,
		DefaultUnit: req.DefaultUnit,
		Icon:        req.Icon,
	}
	if item.Icon == nil {
		icon := icons.ForProduct(name)
		item.Icon = &icon
	}

	if err := h.DB.Create(&item).Error; err != nil {
		return utils.Error(c, fiber.StatusConflict, "catalog item already exists")
	}

	return utils.Success(c, fiber.StatusCreated, item)
}

func (h *CatalogHandler) Update(c *fiber.Ctx) error {
	if middleware.GetCurrentUser(c) == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	itemID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid catalog item id")
	}

	var req catalogItemRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 200 {
			return utils.Error(c, fiber.StatusBadRequest, "name must be between 1 and 200 characters")
		}
		updates["name"] = name
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.DefaultUnit != nil {
		updates["default_unit"] = *req.DefaultUnit
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	result := h.DB.Model(&models.CatalogItem{}).Where("id = ?", itemID).Updates(updates)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating catalog item")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "catalog item not found")
	}

	var updated models.CatalogItem
	if err := h.DB.First(&updated, "id = ?", itemID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading updated catalog item")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *CatalogHandler) Delete(c *fiber.Ctx) error {
	if middleware.GetCurrentUser(c) == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	itemID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid catalog item id")
	}

	result := h.DB.Delete(&models.CatalogItem{}, "id = ?", itemID)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting catalog item")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "catalog item not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "catalog item deleted"})
}
