package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

const orderNumberAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// OrderNumber builds the human-readable order token: ORD-<unix-millis>-<6
// random base36 chars, uppercased>. It is a display identifier only and is
// never used as a referential key; collisions are not checked.
func OrderNumber(at time.Time) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("ORD-%d", at.UnixMilli())
	}
	suffix := make([]byte, 6)
	for i, b := range buf {
		suffix[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("ORD-%d-%s", at.UnixMilli(), strings.ToUpper(string(suffix)))
}

// CatalogCode derives a products/services catalog code such as P-<unix-millis>
// or J-<unix-millis>.
func CatalogCode(prefix string, at time.Time) string {
	return fmt.Sprintf("%s-%d", prefix, at.UnixMilli())
}
