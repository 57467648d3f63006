package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint 对 method、path 和规范化后的请求体求 SHA-256。
// 请求体先反序列化再重新序列化，Go 对 map 的序列化按键名排序，
// 因此键顺序不同但语义相同的请求体会得到同一个指纹。
func Fingerprint(method, path string, body []byte) string {
	h := sha256.Sum256([]byte(method + "\n" + path + "\n" + canonicalBody(body)))
	return hex.EncodeToString(h[:])
}

func canonicalBody(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return string(body)
	}
	canonical, err := json.Marshal(value)
	if err != nil {
		return string(body)
	}
	return string(canonical)
}

// ScopedKey 把调用方给的幂等键限定在方法与路径内，
// 不同端点复用同一个键时互不干扰
func ScopedKey(method, path, callerKey string) string {
	return method + ":" + path + ":" + callerKey
}
