package models

import (
	"time"
)

type Favorite struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    uint   `gorm:"not null;uniqueIndex:idx_favorite_user_recipe"`
	RecipeID  uint   `gorm:"not null;uniqueIndex:idx_favorite_user_recipe;index"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	Recipe    Recipe `gorm:"constraint:OnDelete:CASCADE"`
}

func (Favorite) TableName() string {
	return "favorites"
}

// ShoppingCartItem marks a recipe as being in a user's shopping cart.
type ShoppingCartItem struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    uint   `gorm:"not null;uniqueIndex:idx_cart_user_recipe"`
	RecipeID  uint   `gorm:"not null;uniqueIndex:idx_cart_user_recipe;index"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	Recipe    Recipe `gorm:"constraint:OnDelete:CASCADE"`
}

func (ShoppingCartItem) TableName() string {
	return "shopping_carts"
}

// Subscription is a one-directional follow: UserID follows AuthorID.
type Subscription struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    uint `gorm:"not null;uniqueIndex:idx_subscription_pair;check:chk_subscriptions_not_self,user_id <> author_id"`
	AuthorID  uint `gorm:"not null;uniqueIndex:idx_subscription_pair;index"`
	User      User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Author    User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
