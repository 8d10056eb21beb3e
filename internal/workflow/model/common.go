// Package model 定义工作流的输入输出
package model

// ModelOptions 单次调用可覆盖的模型参数
type ModelOptions struct {
	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}
