package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmctx "rfp-bot/internal/domain/service"
	wfmodel "rfp-bot/internal/workflow/model"
)

type scriptedModel struct {
	replies  []*schema.Message
	errs     []error
	calls    int
	workflow string
	inputs   [][]*schema.Message
}

func (m *scriptedModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	i := m.calls
	m.calls++
	m.workflow = llmctx.WorkflowFromContext(ctx)
	m.inputs = append(m.inputs, input)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return m.replies[len(m.replies)-1], nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

type staticFactory struct {
	m   model.BaseChatModel
	err error
}

func (f staticFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	return f.m, f.err
}

const contentJSON = "Here you go:\n```json\n" + `{
  "project_name": "",
  "executive_summary": "We will build it.",
  "objectives": ["Ship"],
  "scope": ["Portal"],
  "tech_stack": {"frontend": ["React"], "backend": ["Go"], "database": ["Postgres"], "infrastructure": ["AWS"]},
  "timeline": [{"phase": "Discovery", "duration": "2 weeks", "deliverables": ["Specs"]}],
  "pricing": {"items": [{"item": "Build", "amount": "$10,000"}], "total": "$10,000"},
  "architecture_diagram": "  graph LR\n  A-->B  ",
  "why_us": ["Experience"]
}` + "\n```"

func TestProposalContentChainParsesFencedJSON(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage(contentJSON, nil)}}
	c := NewProposalContentChain(staticFactory{m: m})

	out, err := c.Invoke(context.Background(), &wfmodel.ProposalContentInput{
		BrandName:        "Sparktoship",
		ClientName:       "Acme",
		ProjectName:      "Billing Portal",
		BriefRequirement: "Invoices",
		CurrencyLabel:    "$ USD",
		Scale:            "Small",
	})
	require.NoError(t, err)
	assert.Equal(t, "Billing Portal", out.ProjectName)
	assert.Equal(t, "graph LR\n  A-->B", out.ArchitectureDiagram)
	assert.Equal(t, "$10,000", out.Pricing.Total)
	assert.Equal(t, []string{"Go"}, out.TechStack.Backend)
	assert.Equal(t, llmctx.WorkflowProposalContent, m.workflow)

	require.Len(t, m.inputs, 1)
	assert.Contains(t, m.inputs[0][1].Content, "Detailed requirement document:\n(not provided)")
}

func TestProposalContentChainRetriesWithoutSchema(t *testing.T) {
	m := &scriptedModel{
		errs:    []error{errors.New("400: Unknown parameter response_format")},
		replies: []*schema.Message{nil, schema.AssistantMessage(contentJSON, nil)},
	}
	c := NewProposalContentChain(staticFactory{m: m})

	out, err := c.Invoke(context.Background(), &wfmodel.ProposalContentInput{ClientName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, 2, m.calls)
	assert.Equal(t, "We will build it.", out.ExecutiveSummary)
}

func TestProposalContentChainErrors(t *testing.T) {
	c := NewProposalContentChain(staticFactory{err: errors.New("no provider")})
	_, err := c.Invoke(context.Background(), &wfmodel.ProposalContentInput{ClientName: "Acme"})
	assert.Error(t, err)

	m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("sorry, I can't", nil)}}
	_, err = NewProposalContentChain(staticFactory{m: m}).Invoke(context.Background(), &wfmodel.ProposalContentInput{ClientName: "Acme"})
	assert.Error(t, err)

	_, err = NewProposalContentChain(staticFactory{m: m}).Invoke(context.Background(), &wfmodel.ProposalContentInput{})
	assert.Error(t, err)

	_, err = NewProposalContentChain(nil).Invoke(context.Background(), &wfmodel.ProposalContentInput{ClientName: "Acme"})
	assert.Error(t, err)
}

func TestDailyTextChain(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("  Octopuses have three hearts. 🐙 \n", nil)}}

	out, err := NewFunFactChain(staticFactory{m: m}).Invoke(context.Background(), &wfmodel.DailyTextInput{Today: "Monday, 05 January 2026"})
	require.NoError(t, err)
	assert.Equal(t, "Octopuses have three hearts. 🐙", out)
	assert.Equal(t, llmctx.WorkflowFunFact, m.workflow)
	assert.Contains(t, m.inputs[0][1].Content, "Today is Monday, 05 January 2026")

	_, err = NewTechPulseChain(staticFactory{m: m}).Invoke(context.Background(), &wfmodel.DailyTextInput{})
	require.NoError(t, err)
	assert.Equal(t, llmctx.WorkflowTechPulse, m.workflow)

	empty := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("   ", nil)}}
	_, err = NewTechPulseChain(staticFactory{m: empty}).Invoke(context.Background(), &wfmodel.DailyTextInput{})
	assert.Error(t, err)
}
