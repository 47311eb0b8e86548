package errs

import (
	"errors"
	"fmt"
	"strings"
)

// 核心操作統一使用此錯誤分類, 由外層(http)決定狀態碼
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrItemNotFound        = errors.New("item not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrReviewNotFound      = errors.New("review not found")
	ErrForbidden           = errors.New("access forbidden")
	ErrDuplicateCartLine   = errors.New("item already exists in cart")
	ErrCartLineNotFound    = errors.New("cart item not found")
	ErrOrderNotAllowed     = errors.New("order not allowed")
	ErrAlreadyFinalized    = errors.New("order already finalized")
	ErrCartDecode          = errors.New("failed to decode cart payload")
	ErrAlreadyExistLoginID = errors.New("login id already exists")
	ErrVerificationCode    = errors.New("verification code not found")
	ErrAuthFailure         = errors.New("invalid or expired token")
	ErrUnavailable         = errors.New("backing store unavailable")
)

// OutOfStockError 批次回報所有庫存不足的商品
// 呼叫端可以一次取得全部失敗商品, 修正購物車後重試
type OutOfStockError struct {
	ItemIDs []uint
}

func (e *OutOfStockError) Error() string {
	ids := make([]string, 0, len(e.ItemIDs))
	for _, id := range e.ItemIDs {
		ids = append(ids, fmt.Sprintf("%d", id))
	}
	return fmt.Sprintf("out of stock: items [%s]", strings.Join(ids, ", "))
}

// IsOutOfStock 取出錯誤鏈上的 OutOfStockError
func IsOutOfStock(err error) (*OutOfStockError, bool) {
	var oos *OutOfStockError
	if errors.As(err, &oos) {
		return oos, true
	}
	return nil, false
}
