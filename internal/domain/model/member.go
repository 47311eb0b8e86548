package model

import "github.com/google/uuid"

const (
	RoleMember = "MEMBER"
	RoleSeller = "SELLER"
)

type Member struct {
	MemberID  uint      `gorm:"primaryKey"`
	MemberUID uuid.UUID `gorm:"type:uuid;unique;not null"` // token payload 使用
	LoginID   string    `gorm:"unique;not null;type:varchar(50)"`
	UserName  string    `gorm:"not null;type:varchar(50)"`
	Email     string    `gorm:"unique;not null;type:varchar(100)"`
	Address   string    `gorm:"type:varchar(255)"`
	Role      string    `gorm:"not null;type:varchar(20);default:MEMBER"`
	Items     []Item    `gorm:"foreignKey:SellerID;references:MemberID;constraint:OnDelete:CASCADE"`
	BaseModel
}
