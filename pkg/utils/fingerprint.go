package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint возвращает детерминированный отпечаток пары
// (содержимое источника, каноническая конфигурация). Один и тот же вход с
// одной и той же конфигурацией всегда дает один и тот же ключ кеша.
func Fingerprint(content []byte, configCanonical string) string {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte{0})
	h.Write([]byte(configCanonical))
	return hex.EncodeToString(h.Sum(nil))
}
