package util

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

const (
	OrderNumberPrefix = "NT"
	orderNumberDigits = 6
)

// GenerateOrderNumber returns NT-<yyyymmddhhmmss>-<6 random digits>.
func GenerateOrderNumber(now time.Time) string {
	var b strings.Builder
	b.WriteString(OrderNumberPrefix)
	b.WriteByte('-')
	b.WriteString(now.UTC().Format("20060102150405"))
	b.WriteByte('-')
	b.WriteString(RandomDigits(orderNumberDigits))
	return b.String()
}

// RandomDigits returns n decimal digits from crypto/rand.
func RandomDigits(n int) string {
	ten := big.NewInt(10)
	buf := make([]byte, n)
	for i := range buf {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			buf[i] = '0'
			continue
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf)
}
