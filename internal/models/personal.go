package models

import (
	"time"

	"github.com/uptrace/bun"
)

type WishlistItem struct {
	bun.BaseModel `bun:"table:wishlist_items"`

	ID      string    `bun:"id,pk" json:"id"`
	UserID  string    `bun:"user_id,notnull,unique:wishlist_user_fest" json:"user_id"`
	FestID  string    `bun:"fest_id,notnull,unique:wishlist_user_fest" json:"fest_id"`
	AddedAt time.Time `bun:"added_at,notnull" json:"added_at"`

	Festival *Festival `bun:"rel:belongs-to,join:fest_id=id" json:"festival,omitempty"`
}

type RecentlyViewed struct {
	bun.BaseModel `bun:"table:recently_viewed"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,notnull,unique:recently_viewed_user_fest" json:"user_id"`
	FestID    string    `bun:"fest_id,notnull,unique:recently_viewed_user_fest" json:"fest_id"`
	ViewedAt  time.Time `bun:"viewed_at,notnull" json:"viewed_at"`
	ViewCount int       `bun:"view_count,notnull" json:"view_count"`

	Festival *Festival `bun:"rel:belongs-to,join:fest_id=id" json:"festival,omitempty"`
}
