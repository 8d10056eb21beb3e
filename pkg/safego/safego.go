// Package safego 提供带 panic 恢复的 goroutine 启动
package safego

import (
	"context"
	"fmt"
	"runtime/debug"

	"rfp-bot/pkg/logger"
)

// Go 安全的 go，捕获 panic
func Go(ctx context.Context, f func()) {
	go func() {
		defer Recovery(ctx)
		f()
	}()
}

// Recovery 捕获 panic 并记录堆栈
func Recovery(ctx context.Context) {
	e := recover()
	if e == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Error(ctx, "recovered from panic", fmt.Errorf("%v", e), "stack", string(debug.Stack()))
}

// Call 同步执行 f，panic 转换为 error 返回
func Call(ctx context.Context, f func() error) (err error) {
	defer func() {
		if e := recover(); e != nil {
			logger.Error(ctx, "recovered from panic", fmt.Errorf("%v", e), "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", e)
		}
	}()
	return f()
}
