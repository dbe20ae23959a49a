package models

import "github.com/google/uuid"

type ProductStatus string

const (
	ProductStatusPending   ProductStatus = "pending"
	ProductStatusCompleted ProductStatus = "completed"
)

type Product struct {
	BaseModel
	CartID      uuid.UUID     `json:"cartID" gorm:"type:uuid;not null;index"`
	Name        string        `json:"name" gorm:"type:varchar(200);not null"`
	Description *string       `json:"description,omitempty" gorm:"type:text"`
	Status      ProductStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Quantity    int           `json:"quantity" gorm:"not null;default:1"`
	Icon        string        `json:"icon" gorm:"type:varchar(50)"`
	// AddedBy survives user deletion as NULL so the product row keeps its history.
	AddedBy     *uuid.UUID `json:"addedBy,omitempty" gorm:"type:uuid;index"`
	Cart        Cart       `json:"-" gorm:"foreignKey:CartID"`
	AddedByUser *User      `json:"addedByUser,omitempty" gorm:"foreignKey:AddedBy;constraint:OnDelete:SET NULL"`
}

func (Product) TableName() string {
	return "products"
}

func IsValidProductStatus(value string) bool {
	switch ProductStatus(value) {
	case ProductStatusPending, ProductStatusCompleted:
		return true
	default:
		return false
	}
}
