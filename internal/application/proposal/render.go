package proposal

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"rfp-bot/internal/domain/entity"
)

//go:embed templates/proposal.html
var templateFS embed.FS

var proposalTmpl = template.Must(
	template.New("proposal.html").
		Funcs(template.FuncMap{
			"initial": initial,
			"inc":     func(i int) int { return i + 1 },
		}).
		ParseFS(templateFS, "templates/proposal.html"),
)

// Brand 提案方品牌
type Brand struct {
	Name    string
	Website string
	Tagline string
}

// pageData 模板数据，Content 为 nil 时模板渲染通用章节
type pageData struct {
	Brand            Brand
	Client           entity.ClientBranding
	ProjectName      string
	ProposalID       string
	Currency         string
	Scale            string
	Brief            string
	DiagramAvailable bool
	DiagramFile      string
	Content          *entity.ProposalContent
	GeneratedAt      string
}

func renderHTML(d pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := proposalTmpl.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("render proposal: %w", err)
	}
	return buf.Bytes(), nil
}

func formatDate(t time.Time) string {
	return t.Format("02 January 2006")
}

func initial(s string) string {
	s = strings.TrimSpace(s)
	for _, r := range s {
		return strings.ToUpper(string(r))
	}
	return "?"
}
