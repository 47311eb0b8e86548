package model

// Review 商品評價, 一位會員可對同一商品留多筆
type Review struct {
	ReviewID uint   `gorm:"primaryKey"`
	ItemID   uint   `gorm:"not null;index"` // 外鍵，關聯到 Item
	MemberID uint   `gorm:"not null;index"` // 外鍵，關聯到 Member
	Rating   int    `gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment  string `gorm:"not null;type:text"`
	BaseModel
}
