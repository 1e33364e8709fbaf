// Package validation проверяет пользовательский ввод.
package validation

import (
	"strconv"
	"strings"
)

const (
	referenceMinLen = 8
	referenceMaxLen = 22

	// MaxPurchaseQuantity — предел количества аккаунтов в одной покупке.
	MaxPurchaseQuantity = 20
)

// IsValidReference проверяет код подтверждения платежа (UTR): от 8 до 22
// символов, заглавные латинские буквы и цифры, хотя бы одна цифра.
func IsValidReference(ref string) bool {
	if len(ref) < referenceMinLen || len(ref) > referenceMaxLen {
		return false
	}
	hasDigit := false
	for _, r := range ref {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return hasDigit
}

// NormalizeReference приводит присланный код к каноническому виду.
func NormalizeReference(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ParseQuantity разбирает количество аккаунтов для покупки.
func ParseQuantity(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > MaxPurchaseQuantity {
		return 0, false
	}
	return n, true
}
