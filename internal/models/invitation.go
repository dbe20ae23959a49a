package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRevoked  InvitationStatus = "revoked"
	InvitationStatusExpired  InvitationStatus = "expired"
)

// Invitation is a tokenized, time-boxed offer of cart membership at a fixed
// role. Status only ever moves out of pending (to accepted, revoked or
// expired); the other three states are terminal. Rows are kept as history
// and never hard-deleted while the cart lives.
type Invitation struct {
	BaseModel
	CartID uuid.UUID `json:"cartID" gorm:"type:uuid;not null;index"`
	// InvitedUsername is nil for open share links.
	InvitedUsername *string          `json:"invitedUsername,omitempty" gorm:"type:varchar(50)"`
	InvitedBy       uuid.UUID        `json:"invitedBy" gorm:"type:uuid;not null;index"`
	Token           uuid.UUID        `json:"token" gorm:"type:uuid;uniqueIndex;not null"`
	Role            CartRole         `json:"role" gorm:"type:varchar(20);not null;default:'editor'"`
	Status          InvitationStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	SingleUse       bool             `json:"singleUse" gorm:"not null;default:true"`
	ExpiresAt       time.Time        `json:"expiresAt" gorm:"not null"`
	Cart            Cart             `json:"cart,omitempty" gorm:"foreignKey:CartID"`
	Inviter         User             `json:"inviter,omitempty" gorm:"foreignKey:InvitedBy"`
}

func (Invitation) TableName() string {
	return "invitations"
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if err := i.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if i.Token == uuid.Nil {
		i.Token = uuid.New()
	}
	return nil
}

// IsExpired reports whether the invitation's expiry has passed, regardless
// of whether the row has been flipped to expired yet.
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
