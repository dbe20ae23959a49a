package models

// CatalogItem is a global product catalog entry used to pre-fill product
// details. It is not scoped to any cart.
type CatalogItem struct {
	BaseModel
	Name        string  `json:"name" gorm:"type:varchar(200);uniqueIndex;not null"`
	Category    *string `json:"category,omitempty" gorm:"type:varchar(100)"`
	DefaultUnit *string `json:"defaultUnit,omitempty" gorm:"type:varchar(20)"`
	Icon        *string `json:"icon,omitempty" gorm:"type:varchar(50)"`
}

func (CatalogItem) TableName() string {
	return "catalog_items"
}
