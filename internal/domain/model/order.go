package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"   // 待處理
	OrderStatusCompleted OrderStatus = "COMPLETED" // 已完成
	OrderStatusCanceled  OrderStatus = "CANCELED"  // 已取消
)

// IsTerminal Completed/Canceled 為終態, 不允許再轉移
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled
}

type Order struct {
	OrderID     uuid.UUID       `gorm:"primaryKey;type:uuid"`
	BuyerID     string          `gorm:"not null;index;type:varchar(50)"` // Member.LoginID
	TotalCount  int             `gorm:"not null"`
	TotalPrice  decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	OrderDate   time.Time       `gorm:"not null;index"`
	OrderStatus OrderStatus     `gorm:"not null;type:varchar(20)"`
	OrderItems  []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	BaseModel
}

type OrderItem struct {
	OrderItemID uint            `gorm:"primaryKey"`
	OrderID     uuid.UUID       `gorm:"not null;type:uuid;index"`
	ItemID      uint            `gorm:"not null;index"`
	BuyerID     string          `gorm:"not null;index;type:varchar(50)"`
	SellerID    string          `gorm:"not null;index;type:varchar(50)"`
	UnitCount   int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	ItemName    string          `gorm:"not null;type:varchar(100)"` // 下單當下的快照
	OrderStatus OrderStatus     `gorm:"not null;type:varchar(20)"`
	OrderDate   time.Time       `gorm:"not null"`
	BaseModel
}
