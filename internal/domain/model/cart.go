package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem 購物車單一商品, 同一購物車內 ItemID 唯一
type CartItem struct {
	ItemID   uint            `json:"item_id"`
	ItemName string          `json:"item_name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Cart 購物車本體
// 匿名購物車整顆加密後放在client端token, CartID用於登入合併時的冪等判斷
type Cart struct {
	CartID uuid.UUID  `json:"cart_id"`
	Items  []CartItem `json:"items"`
}

func NewCart() *Cart {
	return &Cart{CartID: uuid.New()}
}

// FindItem 回傳index, 不存在回傳-1
func (c *Cart) FindItem(itemID uint) int {
	for i, item := range c.Items {
		if item.ItemID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// TotalCount 數量合計為衍生值, 不落地儲存
func (c *Cart) TotalCount() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalPrice 金額合計為衍生值, 不落地儲存
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.NewFromInt(0)
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
