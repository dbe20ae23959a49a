package models

type UserAvatar string

const (
	UserAvatar1 UserAvatar = "avatar-1"
	UserAvatar2 UserAvatar = "avatar-2"
	UserAvatar3 UserAvatar = "avatar-3"
	UserAvatar4 UserAvatar = "avatar-4"
	UserAvatar5 UserAvatar = "avatar-5"
)

type UserTheme string

const (
	UserThemeLight  UserTheme = "light"
	UserThemeDark   UserTheme = "dark"
	UserThemeSystem UserTheme = "system"
)

type User struct {
	BaseModel
	Username     string           `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	PasswordHash string           `json:"-" gorm:"type:text;not null"`
	Avatar       UserAvatar       `json:"avatar" gorm:"type:varchar(20);not null;default:'avatar-1'"`
	Theme        UserTheme        `json:"theme" gorm:"type:varchar(20);not null;default:'system'"`
	Memberships  []CartMembership `json:"-" gorm:"foreignKey:UserID"`
	OwnedCarts   []Cart           `json:"-" gorm:"foreignKey:OwnerID"`
}

func IsValidAvatar(value string) bool {
	switch UserAvatar(value) {
	case UserAvatar1, UserAvatar2, UserAvatar3, UserAvatar4, UserAvatar5:
		return true
	default:
		return false
	}
}

func IsValidTheme(value string) bool {
	switch UserTheme(value) {
	case UserThemeLight, UserThemeDark, UserThemeSystem:
		return true
	default:
		return false
	}
}
