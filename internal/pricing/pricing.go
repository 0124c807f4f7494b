// Package pricing содержит утилиты работы с ценами и генерацию идентификаторов.
package pricing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"
)

// ToCents переводит сумму в долларах в целые центы.
func ToCents(dollars float64) int64 {
	return int64(dollars*100 + 0.5)
}

// FromCents переводит центы в доллары.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

// FormatPrice форматирует цену в центах для отображения, например "$12.34".
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// GenerateSlug строит URL-безопасный slug из названия товара:
// нижний регистр, дефисы вместо пробелов, только латиница и цифры.
func GenerateSlug(name string) string {
	var b strings.Builder
	lastHyphen := true

	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}

// GenerateSKU строит артикул вида "LBP-BIR-4821" из категории товара.
func GenerateSKU(category string) string {
	prefix := "GEN"
	letters := make([]rune, 0, 3)
	for _, r := range strings.ToUpper(category) {
		if unicode.IsLetter(r) && r < 128 {
			letters = append(letters, r)
			if len(letters) == 3 {
				break
			}
		}
	}
	if len(letters) > 0 {
		prefix = string(letters)
	}

	return fmt.Sprintf("LBP-%s-%04d", prefix, randomInt(10000))
}

// GenerateOrderNumber строит человекочитаемый номер заказа вида "LBP-849301-27".
func GenerateOrderNumber() string {
	return fmt.Sprintf("LBP-%06d-%02d", time.Now().Unix()%1000000, randomInt(100))
}

// GenerateOrderID строит идентификатор документа заказа для пользователя.
// Случайный суффикс исключает коллизии заказов, созданных в одну миллисекунду.
func GenerateOrderID(userID string) string {
	return fmt.Sprintf("%s-%d-%s", userID, time.Now().UnixMilli(), randomSuffix())
}

// GenerateProductID строит идентификатор документа товара.
func GenerateProductID() string {
	return fmt.Sprintf("prod-%d-%s", time.Now().UnixMilli(), randomSuffix())
}

// GenerateUserID строит идентификатор документа пользователя.
func GenerateUserID() string {
	return fmt.Sprintf("user-%d-%s", time.Now().UnixMilli(), randomSuffix())
}

func randomInt(max int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return time.Now().UnixNano() % max
	}
	return n.Int64()
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%08x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
