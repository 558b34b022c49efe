package domain

import "errors"

var (
	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists 帳戶名稱已存在
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidDelta 異動值不合法 (必須是 -100 < delta < 100 的數字)
	ErrInvalidDelta = errors.New("delta must be a number between -100 and 100 exclusive")
)
