package utils

import (
	"database/sql"
	"errors"

	"property_recommend/repository"
)

// IsSQLNoRowsError 检查错误是否为SQL无结果错误
func IsSQLNoRowsError(err error) bool {
	return err != nil && errors.Is(err, sql.ErrNoRows)
}

// IsNotFound 画像、缓存或数据库记录不存在
func IsNotFound(err error) bool {
	return IsSQLNoRowsError(err) ||
		errors.Is(err, repository.ErrProfileNotFound) ||
		errors.Is(err, repository.ErrCacheMiss)
}

// IsInvalidInput 调用方传入的参数不合法
func IsInvalidInput(err error) bool {
	return errors.Is(err, repository.ErrInvalidCID) ||
		errors.Is(err, repository.ErrInvalidPropertyID)
}
