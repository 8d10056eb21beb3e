// Package document 从上传文件或远程链接中提取需求文档正文
package document

import "fmt"

// Error 摄取失败，Msg 可直接展示给用户
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage 面向用户的提示
func (e *Error) UserMessage() string {
	return e.Msg
}

func userError(msg string, err error) *Error {
	return &Error{Msg: msg, Err: err}
}
