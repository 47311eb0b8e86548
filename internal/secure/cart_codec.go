package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/errs"
)

// 匿名購物車token有效期, 與redis tier的購物車TTL對齊
const anonCartTTL = 24 * time.Hour

// token內容連同簽發時間一起加密, 過期判定不依賴外層cookie設定
type tokenPayload struct {
	Cart     *model.Cart `json:"cart"`
	IssuedAt int64       `json:"issued_at"`
}

// CartCodec 匿名購物車的對稱加解密
// 序列化購物車 -> AES-GCM加密 -> base64url, 結果交給client保存
type CartCodec struct {
	aead cipher.AEAD
	now  func() time.Time
}

// NewCartCodec key長度必須是16/24/32 bytes
func NewCartCodec(key []byte) (*CartCodec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid cart codec key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to build gcm: %w", err)
	}
	return &CartCodec{aead: aead, now: time.Now}, nil
}

func (c *CartCodec) Encode(cart *model.Cart) (string, error) {
	plaintext, err := json.Marshal(tokenPayload{Cart: cart, IssuedAt: c.now().Unix()})
	if err != nil {
		return "", fmt.Errorf("failed to marshal cart: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode 解出購物車內容
// token為空視為沒有購物車, 回傳nil不回傳錯誤
// token過期同redis key過期, 一樣視為沒有購物車
// token毀損或驗證失敗回傳 errs.ErrCartDecode
func (c *CartCodec) Decode(token string) (*model.Cart, error) {
	if token == "" {
		return nil, nil
	}

	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: bad token encoding", errs.ErrCartDecode)
	}
	if len(sealed) < c.aead.NonceSize() {
		return nil, fmt.Errorf("%w: token too short", errs.ErrCartDecode)
	}

	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: integrity check failed", errs.ErrCartDecode)
	}

	var payload tokenPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil || payload.Cart == nil {
		return nil, fmt.Errorf("%w: bad cart payload", errs.ErrCartDecode)
	}
	if c.now().Sub(time.Unix(payload.IssuedAt, 0)) > anonCartTTL {
		return nil, nil
	}
	return payload.Cart, nil
}
