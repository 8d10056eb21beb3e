package pitch

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-bot/internal/domain/entity"
)

func freshSession() entity.Session {
	return *entity.NewSession(1, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func sessionAt(step entity.Step) entity.Session {
	s := freshSession()
	s.Step = step
	return s
}

func requireRejection(t *testing.T, err error, reason RejectReason) {
	t.Helper()
	require.Error(t, err)
	rej, ok := err.(*Rejection)
	require.True(t, ok, "want *Rejection, got %T", err)
	assert.Equal(t, reason, rej.Reason)
}

func TestParseClientInfo(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		client  string
		siteURL string
	}{
		{"name then url", "Acme Corp https://acme.com", "Acme Corp", "https://acme.com"},
		{"name then skip", "Acme Corp skip", "Acme Corp", ""},
		{"www gets scheme", "Globex www.globex.io", "Globex", "https://www.globex.io"},
		{"url then name", "https://initech.com Initech", "Initech", "https://initech.com"},
		{"http kept", "Hooli http://hooli.xyz", "Hooli", "http://hooli.xyz"},
		{"skip case insensitive", "Wayne Enterprises SKIP", "Wayne Enterprises", ""},
		{"skip removed before url", "skip Umbrella https://umbrella.com", "Umbrella", "https://umbrella.com"},
		{"skip inside word kept", "Skipper Labs", "Skipper Labs", ""},
		{"plain name", "  Stark   Industries ", "Stark Industries", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseClientInfo(freshSession(), tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.client, got.ClientName)
			assert.Equal(t, tc.siteURL, got.ClientURL)
			assert.Equal(t, entity.StepAwaitingBrief, got.Step)
		})
	}
}

func TestParseClientInfoRejectsMissingName(t *testing.T) {
	for _, in := range []string{"skip", "https://acme.com", "www.acme.com skip", "   "} {
		t.Run(in, func(t *testing.T) {
			before := freshSession()
			got, err := ParseClientInfo(before, in)
			requireRejection(t, err, ReasonMissingClientName)
			assert.Equal(t, before, got, "session unchanged on rejection")
		})
	}
}

func TestParseBrief(t *testing.T) {
	s := freshSession()
	s.Step = entity.StepAwaitingBrief

	got, err := ParseBrief(s, "Skip")
	require.NoError(t, err)
	assert.Empty(t, got.BriefRequirement)
	assert.Equal(t, entity.StepAwaitingCurrency, got.Step)

	got, err = ParseBrief(s, "Cloud migration for ERP")
	require.NoError(t, err)
	assert.Equal(t, "Cloud migration for ERP", got.BriefRequirement)

	long := strings.Repeat("é", MaxBriefLength+50)
	got, err = ParseBrief(s, long)
	require.NoError(t, err)
	assert.Equal(t, MaxBriefLength, len([]rune(got.BriefRequirement)))
}

func TestParseCurrencyAliases(t *testing.T) {
	for _, in := range []string{"inr", "INR", "₹", "rupee", "RUPEES", " Rupee "} {
		t.Run(in, func(t *testing.T) {
			got, err := ParseCurrency(sessionAt(entity.StepAwaitingCurrency), in)
			require.NoError(t, err)
			assert.Equal(t, entity.CurrencyINR, got.Currency)
			assert.Equal(t, entity.StepAwaitingScale, got.Step)
		})
	}
	for _, in := range []string{"usd", "USD", "$", "dollar", "Dollars"} {
		t.Run(in, func(t *testing.T) {
			got, err := ParseCurrency(sessionAt(entity.StepAwaitingCurrency), in)
			require.NoError(t, err)
			assert.Equal(t, entity.CurrencyUSD, got.Currency)
		})
	}
	for _, in := range []string{"eur", "rs", "us dollars", ""} {
		t.Run("reject "+in, func(t *testing.T) {
			got, err := ParseCurrency(sessionAt(entity.StepAwaitingCurrency), in)
			requireRejection(t, err, ReasonUnknownCurrency)
			assert.Equal(t, entity.StepAwaitingCurrency, got.Step)
		})
	}
}

func TestParseScale(t *testing.T) {
	cases := map[string]entity.Scale{
		"small":                entity.ScaleSmall,
		"Small MVP":            entity.ScaleSmall,
		"HIGH":                 entity.ScaleHigh,
		"large rollout":        entity.ScaleHigh,
		"enterprise":           entity.ScaleHigh,
		"medium":               entity.ScaleMedium,
		"maybe medium-ish":     entity.ScaleMedium,
		"no idea":              entity.ScaleMedium,
		"small but enterprise": entity.ScaleSmall,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := ParseScale(sessionAt(entity.StepAwaitingScale), in)
			require.NoError(t, err)
			assert.Equal(t, want, got.Scale)
			assert.Equal(t, entity.StepAwaitingDocument, got.Step)
		})
	}
}

func TestParseDocumentReply(t *testing.T) {
	r, err := ParseDocumentReply(" SKIP ")
	require.NoError(t, err)
	assert.True(t, r.Skip)

	r, err = ParseDocumentReply("here: docs.google.com/x www.example.com/spec.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://www.example.com/spec.pdf", r.URL)

	r, err = ParseDocumentReply("https://dropbox.com/s/abc/spec.pdf?dl=0")
	require.NoError(t, err)
	assert.Equal(t, "https://dropbox.com/s/abc/spec.pdf?dl=0", r.URL)

	_, err = ParseDocumentReply("the document is on my laptop")
	requireRejection(t, err, ReasonNotAURL)
}

func TestValidateUpload(t *testing.T) {
	assert.NoError(t, ValidateUpload("spec.PDF", 1024, 0))
	assert.NoError(t, ValidateUpload("notes.markdown", 0, 0))
	assert.NoError(t, ValidateUpload("", 10, 0), "missing names default to a .txt name")

	requireRejection(t, ValidateUpload("setup.exe", 10, 0), ReasonUnsupportedFile)
	requireRejection(t, ValidateUpload("spec.docx", 10, 0), ReasonUnsupportedFile)
	requireRejection(t, ValidateUpload("big.pdf", DefaultMaxUploadBytes+1, 0), ReasonFileTooLarge)
	assert.NoError(t, ValidateUpload("edge.pdf", DefaultMaxUploadBytes, 0))
}

func TestIsCancel(t *testing.T) {
	assert.True(t, IsCancel("cancel"))
	assert.True(t, IsCancel(" CANCEL "))
	assert.True(t, IsCancel("/cancel"))
	assert.False(t, IsCancel("cancel please"))
}

func TestParseQuickArgs(t *testing.T) {
	u, p, ok := parseQuickArgs("https://acme.com Payments Revamp")
	require.True(t, ok)
	assert.Equal(t, "https://acme.com", u)
	assert.Equal(t, "Payments Revamp", p)

	u, p, ok = parseQuickArgs("www.acme.com")
	require.True(t, ok)
	assert.Equal(t, "https://www.acme.com", u)
	assert.Empty(t, p)

	_, _, ok = parseQuickArgs("")
	assert.False(t, ok)
	_, _, ok = parseQuickArgs("Acme https://acme.com")
	assert.False(t, ok)
}

func TestStepsNeverMoveBackward(t *testing.T) {
	inputs := []string{"Acme https://acme.com", "brief", "nonsense", "usd", "huge", "not a url"}
	s := freshSession()
	handlers := map[entity.Step]stepHandler{
		entity.StepAwaitingClientInfo: ParseClientInfo,
		entity.StepAwaitingBrief:      ParseBrief,
		entity.StepAwaitingCurrency:   ParseCurrency,
		entity.StepAwaitingScale:      ParseScale,
	}
	for _, in := range inputs {
		h, ok := handlers[s.Step]
		if !ok {
			break
		}
		next, err := h(s, in)
		if err == nil {
			want, ok := s.Step.Next()
			require.True(t, ok)
			assert.True(t, s.Step.Before(next.Step))
			assert.Equal(t, want, next.Step, "validators advance exactly one step")
			s = next
		} else {
			assert.Equal(t, s.Step, next.Step)
		}
	}
	assert.Equal(t, entity.StepAwaitingDocument, s.Step)
}
