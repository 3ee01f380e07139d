package services

import (
	"errors"
	"strings"

	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

func isNotFound(err error) bool {
	return errors.Is(err, pumpkin_errors.ErrNotFound)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return page, limit
}

func trimLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
