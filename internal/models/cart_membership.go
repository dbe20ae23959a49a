package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CartRole string

const (
	CartRoleOwner  CartRole = "owner"
	CartRoleAdmin  CartRole = "admin"
	CartRoleEditor CartRole = "editor"
	CartRoleViewer CartRole = "viewer"
)

// CartMembership links a user to a cart with a role. Exactly one membership
// per cart holds CartRoleOwner, and it belongs to the cart's owner.
type CartMembership struct {
	BaseModel
	CartID   uuid.UUID `json:"cartID" gorm:"type:uuid;not null;index;uniqueIndex:idx_cart_user"`
	UserID   uuid.UUID `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_cart_user"`
	Role     CartRole  `json:"role" gorm:"type:varchar(20);not null;default:'editor'"`
	JoinedAt time.Time `json:"joinedAt" gorm:"not null"`
	Cart     Cart      `json:"-" gorm:"foreignKey:CartID"`
	User     User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (CartMembership) TableName() string {
	return "cart_memberships"
}

func (m *CartMembership) BeforeCreate(tx *gorm.DB) error {
	if err := m.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	return nil
}

func IsValidCartRole(value string) bool {
	switch CartRole(value) {
	case CartRoleOwner, CartRoleAdmin, CartRoleEditor, CartRoleViewer:
		return true
	default:
		return false
	}
}
