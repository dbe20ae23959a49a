package models

import "github.com/google/uuid"

type Cart struct {
	BaseModel
	Name        string           `json:"name" gorm:"type:varchar(100);not null"`
	Icon        string           `json:"icon" gorm:"type:varchar(50);not null;default:'default'"`
	OwnerID     uuid.UUID        `json:"ownerID" gorm:"type:uuid;not null;index"`
	Owner       User             `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Memberships []CartMembership `json:"memberships,omitempty" gorm:"foreignKey:CartID"`
	Products    []Product        `json:"products,omitempty" gorm:"foreignKey:CartID"`
	Invitations []Invitation     `json:"-" gorm:"foreignKey:CartID"`
}

func (Cart) TableName() string {
	return "carts"
}
