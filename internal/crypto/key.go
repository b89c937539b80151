package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidEncryptionKey 加密密钥格式错误
var ErrInvalidEncryptionKey = errors.New("invalid encryption key: must be 32 bytes (Base64 encoded)")

// ParseKey 解析 Base64 编码的 32 字节密钥
func ParseKey(keyStr string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(keyStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncryptionKey, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidEncryptionKey, len(key))
	}
	return key, nil
}

// GenerateKey 生成新的 Base64 密钥（用于初始化配置）
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
