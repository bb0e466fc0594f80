package service

import (
	"errors"
	"fmt"

	"github.com/RamanBirulia/stock-notebook/internal/repository"
)

var (
	ErrConflict     = errors.New("resource already exists")
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("invalid credentials")

	// ErrNoPrices means none of a user's holdings has a current price.
	ErrNoPrices = errors.New("no current prices")
)

// storeErr translates repository sentinels into service ones.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, repository.ErrUsernameTaken):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
