package models

// Ingredient is immutable reference data shared by all recipes.
type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:64;uniqueIndex;not null" json:"name"`
	MeasurementUnit string `gorm:"size:8;not null" json:"measurement_unit"`
}

type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:16;uniqueIndex;not null" json:"name"`
	Color string `gorm:"size:7;uniqueIndex;not null" json:"color"`
	Slug  string `gorm:"size:50;uniqueIndex;not null" json:"slug"`
}
