package repository

import (
	"errors"

	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"

	"gorm.io/gorm"
)

// gormのエラーをrepositoryのエラーにそろえる
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repo.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repo.ErrDuplicate
	default:
		return err
	}
}
