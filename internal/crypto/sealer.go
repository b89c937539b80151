package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// sealedPrefix 标记已加密的令牌，未带前缀的值视为旧版明文
const sealedPrefix = "enc:v1:"

var (
	// ErrInvalidCiphertext 密文格式错误
	ErrInvalidCiphertext = errors.New("invalid ciphertext: too short or corrupted")
	// ErrDecryptionFailed 解密失败
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag verification failed")
	// ErrSealerDisabled 未配置密钥却遇到加密值
	ErrSealerDisabled = errors.New("encrypted token found but no encryption key is configured")
)

// Sealer 供应商认证令牌的 AES-256-GCM 封装
// 未配置密钥时按明文透传
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer 根据 Base64 密钥创建 Sealer，keyStr 为空时返回明文模式
func NewSealer(keyStr string) (*Sealer, error) {
	if keyStr == "" {
		return &Sealer{}, nil
	}

	key, err := ParseKey(keyStr)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Sealer{aead: aead}, nil
}

// Enabled 是否启用加密
func (s *Sealer) Enabled() bool {
	return s != nil && s.aead != nil
}

// Seal 加密令牌，结果为 前缀 + Base64(nonce + ciphertext + tag)
func (s *Sealer) Seal(plaintext string) (string, error) {
	if !s.Enabled() {
		return plaintext, nil
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open 解密令牌，未加密的旧值原样返回
func (s *Sealer) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if !s.Enabled() {
		return "", ErrSealerDisabled
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// IsSealed 是否为加密后的值
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}

// Mask 脱敏显示令牌，只保留首尾各 4 位
func Mask(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
