package repository

import "errors"

// ErrSessionGone 会话在处理期间被取消或过期
var ErrSessionGone = errors.New("session no longer exists")
