package proposal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-bot/internal/domain/entity"
	"rfp-bot/internal/infrastructure/persistence/filestore"
)

type fakeScraper struct {
	calls    int
	branding entity.ClientBranding
}

func (f *fakeScraper) Scrape(_ context.Context, rawURL string) entity.ClientBranding {
	f.calls++
	b := f.branding
	b.URL = rawURL
	return b
}

type fakeContent struct {
	last    entity.ProposalRequest
	content *entity.ProposalContent
	err     error
}

func (f *fakeContent) GenerateContent(_ context.Context, req entity.ProposalRequest) (*entity.ProposalContent, error) {
	f.last = req
	return f.content, f.err
}

type fakeRenderer struct {
	source string
	err    error
}

func (f *fakeRenderer) Render(_ context.Context, source, outPath string) error {
	f.source = source
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte("png"), 0o644)
}

type harness struct {
	builder  *Builder
	scraper  *fakeScraper
	content  *fakeContent
	renderer *fakeRenderer
	index    *filestore.ProposalIndex
	root     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{
		scraper: &fakeScraper{branding: entity.ClientBranding{
			Name: "Acme Web", LogoURL: "https://acme.com/logo.png", PrimaryColor: "#112233",
		}},
		content: &fakeContent{content: &entity.ProposalContent{
			ProjectName:         "Acme Commerce Platform",
			ExecutiveSummary:    "A modern storefront.",
			Objectives:          []string{"Grow online sales"},
			ArchitectureDiagram: "graph LR\n A-->B",
			Pricing:             entity.Pricing{Items: []entity.PricingItem{{Item: "Build", Amount: "₹5,00,000"}}, Total: "₹5,00,000"},
		}},
		renderer: &fakeRenderer{},
		index:    filestore.NewProposalIndex(filepath.Join(root, "index.json")),
		root:     root,
	}
	h.builder = NewBuilder(h.scraper, h.content, h.renderer,
		filestore.NewArtifactStore(root), h.index,
		Config{Brand: Brand{Name: "Sparktoship", Website: "https://sparktoship.com", Tagline: "Solution Architecture & Engineering"}})
	h.builder.now = func() time.Time { return time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC) }
	return h
}

var idPattern = regexp.MustCompile(`^acme-corp-20260304-0930-[0-9a-f]{6}$`)

func TestBuildGuidedRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.builder.Build(ctx, entity.ProposalRequest{
		ClientName:       "Acme Corp",
		ClientURL:        "https://acme.com",
		BriefRequirement: "online store",
		Currency:         entity.CurrencyUSD,
		Scale:            entity.ScaleHigh,
	})
	require.NoError(t, err)

	assert.Regexp(t, idPattern, res.ProposalID)
	assert.Equal(t, "Acme Corp", res.Client.Name, "explicit name wins over scraped title")
	assert.Equal(t, "#112233", res.Client.PrimaryColor)
	assert.Equal(t, "Acme Commerce Platform", res.ProjectName)
	assert.Equal(t, "/proposal/"+res.ProposalID, res.ProposalURL)
	assert.True(t, res.DiagramAvailable)
	assert.FileExists(t, res.DiagramPath)
	assert.Equal(t, "graph LR\n A-->B", h.renderer.source)
	assert.Equal(t, "Acme Corp", h.content.last.ClientName)
	assert.Equal(t, "online store", h.content.last.BriefRequirement)

	html, err := os.ReadFile(filepath.Join(h.root, res.ProposalID, "proposal.html"))
	require.NoError(t, err)
	page := string(html)
	assert.Contains(t, page, "Acme Commerce Platform")
	assert.Contains(t, page, "A modern storefront.")
	assert.Contains(t, page, "/static/proposals/"+res.ProposalID+"/architecture.png")
	assert.Contains(t, page, "$ USD")

	records, err := h.index.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, res.ProposalID, records[0].ID)
	assert.Equal(t, "https://acme.com", records[0].ClientURL)
}

func TestBuildWithoutURLSkipsScrape(t *testing.T) {
	h := newHarness(t)

	res, err := h.builder.Build(context.Background(), entity.ProposalRequest{ClientName: "Acme Corp"})
	require.NoError(t, err)

	assert.Zero(t, h.scraper.calls)
	assert.Equal(t, entity.DefaultPrimaryColor, res.Client.PrimaryColor)
	assert.Equal(t, entity.CurrencyINR, h.content.last.Currency)
	assert.Equal(t, entity.ScaleMedium, h.content.last.Scale)
}

func TestBuildQuickPathUsesScrapedName(t *testing.T) {
	h := newHarness(t)

	res, err := h.builder.Build(context.Background(), entity.ProposalRequest{
		ClientURL:   "https://acme.com",
		ProjectName: "Loyalty App",
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme Web", res.Client.Name)
	assert.Equal(t, "Loyalty App", res.ProjectName, "provided project name wins over AI output")
	assert.True(t, strings.HasPrefix(res.ProposalID, "acme-web-"))
}

func TestBuildDegradesWhenContentFails(t *testing.T) {
	h := newHarness(t)
	h.content.content = nil
	h.content.err = errors.New("upstream 500")

	res, err := h.builder.Build(context.Background(), entity.ProposalRequest{ClientName: "Acme Corp", BriefRequirement: "a CRM"})
	require.NoError(t, err)

	assert.Nil(t, res.Content)
	assert.Equal(t, "Acme Corp Integration", res.ProjectName)
	assert.Contains(t, h.renderer.source, `A["Acme Corp App"]`, "default diagram is used")

	html, err := os.ReadFile(filepath.Join(h.root, res.ProposalID, "proposal.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "Your brief:")
}

func TestBuildDiagramFailureIsNonFatal(t *testing.T) {
	h := newHarness(t)
	h.renderer.err = errors.New("mmdc not found")

	res, err := h.builder.Build(context.Background(), entity.ProposalRequest{ClientName: "Acme Corp"})
	require.NoError(t, err)

	assert.False(t, res.DiagramAvailable)
	assert.Empty(t, res.DiagramPath)

	html, err := os.ReadFile(filepath.Join(h.root, res.ProposalID, "proposal.html"))
	require.NoError(t, err)
	assert.NotContains(t, string(html), "architecture.png")
}

func TestBuildRequiresClient(t *testing.T) {
	h := newHarness(t)
	_, err := h.builder.Build(context.Background(), entity.ProposalRequest{ClientName: "  "})
	assert.Error(t, err)
}

func TestBuildEscapesUntrustedFields(t *testing.T) {
	h := newHarness(t)
	h.content.content.ExecutiveSummary = `<script>alert(1)</script>`

	res, err := h.builder.Build(context.Background(), entity.ProposalRequest{ClientName: "Acme Corp"})
	require.NoError(t, err)

	html, err := os.ReadFile(filepath.Join(h.root, res.ProposalID, "proposal.html"))
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>alert(1)</script>")
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Acme Corp", "acme-corp"},
		{"  Héllo -- World!! ", "h-llo-world"},
		{"!!!", "proposal"},
		{strings.Repeat("a", 60), strings.Repeat("a", 40)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestNewIDIsUniqueWithinAMinute(t *testing.T) {
	now := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	a, b := NewID("Acme", now), NewID("Acme", now)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "acme-20260304-0930-"))
}
