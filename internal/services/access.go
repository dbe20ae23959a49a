package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shoppy/backend/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrAccessDenied means the user has no membership on the cart.
	ErrAccessDenied = errors.New("access denied")
	// ErrInsufficientRole means the user is a member but the role is not allowed.
	ErrInsufficientRole = errors.New("insufficient permissions")
)

// AccessService gates every cart-scoped operation on the requester's
// membership role.
type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

// Membership returns the (cart, user) membership row, or gorm.ErrRecordNotFound.
func (a *AccessService) Membership(ctx context.Context, cartID, userID uuid.UUID) (*models.CartMembership, error) {
	var membership models.CartMembership
	err := a.DB.WithContext(ctx).First(&membership, "cart_id = ? AND user_id = ?", cartID, userID).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// RequireRole resolves the user's role on the cart and checks it against the
// allowed set. An empty allowed set admits any member.
func (a *AccessService) RequireRole(ctx context.Context, cartID, userID uuid.UUID, allowed ...models.CartRole) (models.CartRole, error) {
	membership, err := a.Membership(ctx, cartID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrAccessDenied
		}
		return "", err
	}

	if len(allowed) == 0 {
		return membership.Role, nil
	}
	for _, role := range allowed {
		if membership.Role == role {
			return membership.Role, nil
		}
	}
	return "", ErrInsufficientRole
}

// IsMember reports whether the user holds any role on the cart. Used by the
// realtime hub to authorize join-cart subscriptions.
func (a *AccessService) IsMember(ctx context.Context, cartID, userID uuid.UUID) bool {
	_, err := a.Membership(ctx, cartID, userID)
	return err == nil
}
