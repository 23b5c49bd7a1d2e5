package repository

import (
	"errors"

	"review-go/internal/apperr"

	"gorm.io/gorm"
)

// translate 将 gorm 的未找到错误转换为业务错误
func translate(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource, id)
	}
	return err
}
