package model

import (
	"github.com/shopspring/decimal"
)

type Item struct {
	ItemID          uint            `gorm:"primaryKey"`
	Title           string          `gorm:"not null;type:varchar(100)"`
	ItemName        string          `gorm:"not null;type:varchar(100)"`
	ItemDescription string          `gorm:"not null;type:text"`
	Price           decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	StockQuantity   int             `gorm:"not null;type:int;check:stock_quantity >= 0"`
	ViewCount       int             `gorm:"not null;default:0"`
	CategoryName    string          `gorm:"not null;type:varchar(50)"`
	CategoryType    string          `gorm:"type:varchar(50)"`
	SellerID        uint            `gorm:"not null;index"` // 外鍵，關聯到 Member
	OrderItems      []OrderItem     `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	BaseModel
}

// IsStockAvailable 請求數量是否不超過現有庫存
func (i *Item) IsStockAvailable(count int) bool {
	return i.StockQuantity-count >= 0
}

// ItemSummary 排行榜快照儲存的縮圖資料, 以JSON存進redis hash
type ItemSummary struct {
	ItemID     uint            `json:"item_id"`
	Title      string          `json:"title"`
	ItemName   string          `json:"item_name"`
	Price      decimal.Decimal `json:"price"`
	SellerName string          `json:"seller_name"`
	ViewCount  int             `json:"view_count"`
}

func NewItemSummary(item *Item, sellerName string) ItemSummary {
	return ItemSummary{
		ItemID:     item.ItemID,
		Title:      item.Title,
		ItemName:   item.ItemName,
		Price:      item.Price,
		SellerName: sellerName,
		ViewCount:  item.ViewCount,
	}
}
