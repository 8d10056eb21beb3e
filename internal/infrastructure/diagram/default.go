package diagram

import (
	"fmt"
	"strings"
)

// DefaultSource AI 未给出架构图时使用的通用微服务架构
func DefaultSource(clientName, brandName string) string {
	return fmt.Sprintf(`graph LR
    A["%s App"] -->|REST API| B["%s\nAPI Gateway"]
    B -->|Route| C["Auth\nService"]
    B -->|Route| D["Core\nMicroservice"]
    B -->|Route| E["Analytics\nService"]
    C -->|JWT| F[("User DB")]
    D -->|CRUD| G[("Primary DB")]
    E -->|Write| H[("Analytics DB")]
    D -->|Events| I["Message Queue"]
    I -->|Subscribe| E

    style A fill:#4F46E5,stroke:#3730A3,color:#fff
    style B fill:#0EA5E9,stroke:#0284C7,color:#fff
    style C fill:#10B981,stroke:#059669,color:#fff
    style D fill:#10B981,stroke:#059669,color:#fff
    style E fill:#10B981,stroke:#059669,color:#fff
    style F fill:#F59E0B,stroke:#D97706,color:#fff
    style G fill:#F59E0B,stroke:#D97706,color:#fff
    style H fill:#F59E0B,stroke:#D97706,color:#fff
    style I fill:#8B5CF6,stroke:#7C3AED,color:#fff
`, label(clientName), label(brandName))
}

// label 去掉会破坏节点语法的双引号
func label(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), `"`, "'")
}
