package httpapi

import (
	"fmt"

	"cmms-data/internal/domain"
)

// validHHMM 校验 "HH:MM"（00:00–23:59）。空串合法（未填写）。
func validHHMM(s string) bool {
	if s == "" {
		return true
	}
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for _, c := range []byte{s[0], s[1], s[3], s[4]} {
		if c < '0' || c > '9' {
			return false
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h <= 23 && m <= 59
}

func requireHHMM(field, value string) error {
	if !validHHMM(value) {
		return fmt.Errorf("%w: %s must be HH:MM", domain.ErrInvalidInput, field)
	}
	return nil
}

func errInvalidDate(field string) error {
	return fmt.Errorf("%w: %s must be YYYY-MM-DD", domain.ErrInvalidInput, field)
}

func requireNonEmpty(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, field)
	}
	return nil
}
