package usecase

import "errors"

// ErrImageNotFound は指定されたIDの画像レコードが存在しない場合に返されます。
var ErrImageNotFound = errors.New("image not found")
