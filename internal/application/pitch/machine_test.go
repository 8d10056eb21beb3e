package pitch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-bot/internal/domain/entity"
	"rfp-bot/internal/domain/repository"
	"rfp-bot/internal/domain/service"
	"rfp-bot/internal/infrastructure/persistence/memory"
)

type fakeMessenger struct {
	mu       sync.Mutex
	texts    []service.OutgoingText
	photos   []service.OutgoingPhoto
	photoErr error
}

func (f *fakeMessenger) SendText(_ context.Context, _ int64, msg service.OutgoingText) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, msg)
	return nil
}

func (f *fakeMessenger) SendPhoto(_ context.Context, _ int64, p service.OutgoingPhoto) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.photoErr != nil {
		return f.photoErr
	}
	f.photos = append(f.photos, p)
	return nil
}

func (f *fakeMessenger) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1].Text
}

func (f *fakeMessenger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

type userErr string

func (e userErr) Error() string       { return string(e) }
func (e userErr) UserMessage() string { return string(e) }

type fakeFetcher struct {
	urlText    string
	urlErr     error
	uploadText string
	uploadErr  error
	urlCalls   int
	parseCalls int
}

func (f *fakeFetcher) FetchURL(_ context.Context, _ string) (string, error) {
	f.urlCalls++
	return f.urlText, f.urlErr
}

func (f *fakeFetcher) ParseUpload(_ context.Context, _ []byte, _ string) (string, error) {
	f.parseCalls++
	return f.uploadText, f.uploadErr
}

type fakeBuilder struct {
	calls  int
	last   entity.ProposalRequest
	result *entity.ProposalResult
	err    error
	panics bool
}

func (f *fakeBuilder) Build(_ context.Context, req entity.ProposalRequest) (*entity.ProposalResult, error) {
	f.calls++
	f.last = req
	if f.panics {
		panic("template exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &entity.ProposalResult{
		Client:      entity.ClientBranding{Name: req.ClientName},
		ProjectName: "Project",
		ProposalID:  "acme-20260101-1200-abcdef",
		ProposalURL: "/proposal/acme-20260101-1200-abcdef",
		Content:     &entity.ProposalContent{},
	}, nil
}

type harness struct {
	m         *Machine
	store     *memory.SessionStore
	messenger *fakeMessenger
	fetcher   *fakeFetcher
	builder   *fakeBuilder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     memory.NewSessionStore(30 * time.Minute),
		messenger: &fakeMessenger{},
		fetcher:   &fakeFetcher{},
		builder:   &fakeBuilder{},
	}
	h.m = NewMachine(h.store, h.messenger, h.fetcher, h.builder, Config{BaseURL: "http://localhost:5000"})
	return h
}

const chat int64 = 77

func (h *harness) text(s string) {
	h.m.HandleText(context.Background(), Event{ChatID: chat, MessageID: 1, Text: s})
}

func (h *harness) session(t *testing.T) *entity.Session {
	t.Helper()
	s, err := h.store.Get(context.Background(), chat)
	require.NoError(t, err)
	return s
}

func (h *harness) walkToDocumentStep(t *testing.T) {
	t.Helper()
	h.m.Start(context.Background(), Event{ChatID: chat, MessageID: 1}, "")
	h.text("Acme Corp https://acme.com")
	h.text("Cloud migration")
	h.text("usd")
	h.text("enterprise")
	require.Equal(t, entity.StepAwaitingDocument, h.session(t).Step)
}

func TestGuidedFlowHappyPath(t *testing.T) {
	h := newHarness(t)
	h.walkToDocumentStep(t)

	s := h.session(t)
	assert.Equal(t, "Acme Corp", s.ClientName)
	assert.Equal(t, "https://acme.com", s.ClientURL)
	assert.Equal(t, "Cloud migration", s.BriefRequirement)
	assert.Equal(t, entity.CurrencyUSD, s.Currency)
	assert.Equal(t, entity.ScaleHigh, s.Scale)

	h.text("skip")

	assert.Equal(t, 1, h.builder.calls)
	assert.Equal(t, "Acme Corp", h.builder.last.ClientName)
	assert.Equal(t, entity.CurrencyUSD, h.builder.last.Currency)
	assert.Nil(t, h.session(t), "session is removed after generation")
	assert.Contains(t, h.messenger.last(), "Proposal ready for *Acme Corp*")
	assert.Contains(t, h.messenger.last(), "localhost:5000/proposal/acme\\-20260101\\-1200\\-abcdef")
}

func TestClientInfoAckShowsURL(t *testing.T) {
	h := newHarness(t)
	h.m.Start(context.Background(), Event{ChatID: chat}, "")
	h.text("Acme Corp https://acme.com")

	msg := h.messenger.texts[len(h.messenger.texts)-1]
	assert.Equal(t, service.ParseModeMarkdownV2, msg.ParseMode)
	assert.Contains(t, msg.Text, "✅ Client: *Acme Corp* \\(https://acme\\.com\\)")
}

func TestRejectionKeepsStep(t *testing.T) {
	h := newHarness(t)
	h.m.Start(context.Background(), Event{ChatID: chat}, "")
	h.text("skip")

	assert.Equal(t, entity.StepAwaitingClientInfo, h.session(t).Step)
	assert.Contains(t, h.messenger.last(), "client name")

	h.text("Acme skip")
	h.text("brief")
	h.text("euros")
	assert.Equal(t, entity.StepAwaitingCurrency, h.session(t).Step)
	assert.Equal(t, "⚠️ Please type *INR* or *USD*", h.messenger.last())
}

func TestCancelFromAnyStep(t *testing.T) {
	for _, steps := range [][]string{{}, {"Acme skip"}, {"Acme skip", "b"}, {"Acme skip", "b", "inr"}, {"Acme skip", "b", "inr", "small"}} {
		h := newHarness(t)
		h.m.Start(context.Background(), Event{ChatID: chat}, "")
		for _, in := range steps {
			h.text(in)
		}
		h.text("Cancel")
		assert.Nil(t, h.session(t))
		assert.Equal(t, "❌ Pitch session cancelled.", h.messenger.last())
		assert.Zero(t, h.builder.calls)
	}
}

func TestCancelWithoutSession(t *testing.T) {
	h := newHarness(t)
	h.text("cancel")
	assert.Equal(t, "No active pitch session to cancel.", h.messenger.last())

	h.m.Cancel(context.Background(), Event{ChatID: chat})
	assert.Equal(t, "No active pitch session to cancel.", h.messenger.last())
}

func TestCancelCommandWithSession(t *testing.T) {
	h := newHarness(t)
	h.m.Start(context.Background(), Event{ChatID: chat}, "")
	h.m.Cancel(context.Background(), Event{ChatID: chat})
	assert.Nil(t, h.session(t))
	assert.Equal(t, "❌ Pitch session cancelled. Send /pitch to start a new one.", h.messenger.last())
}

func TestTextWithoutSessionIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.text("hello there")
	assert.Zero(t, h.messenger.count())
	assert.Nil(t, h.session(t))
}

func TestGenerationFailureStillClearsSession(t *testing.T) {
	h := newHarness(t)
	h.builder.err = errors.New("llm down")
	h.walkToDocumentStep(t)

	h.text("skip")
	assert.Equal(t, 1, h.builder.calls)
	assert.Nil(t, h.session(t))
	assert.Equal(t, msgGenerateFailed, h.messenger.last())
}

func TestGenerationPanicIsRecovered(t *testing.T) {
	h := newHarness(t)
	h.builder.panics = true
	h.walkToDocumentStep(t)

	assert.NotPanics(t, func() { h.text("skip") })
	assert.Nil(t, h.session(t))
	assert.Equal(t, msgGenerateFailed, h.messenger.last())
}

func TestDocumentURLSuccess(t *testing.T) {
	h := newHarness(t)
	h.fetcher.urlText = "one two three four"
	h.walkToDocumentStep(t)

	h.text("https://example.com/spec.md")
	assert.Equal(t, 1, h.fetcher.urlCalls)
	assert.Equal(t, "one two three four", h.builder.last.DetailedRequirement)
	assert.Nil(t, h.session(t))
}

func TestDocumentURLFailureKeepsStep(t *testing.T) {
	h := newHarness(t)
	h.fetcher.urlErr = userErr("HTTP error 404. Make sure the link is publicly accessible.")
	h.walkToDocumentStep(t)

	h.text("www.example.com/missing.pdf")
	assert.Zero(t, h.builder.calls)
	assert.Equal(t, entity.StepAwaitingDocument, h.session(t).Step)
	assert.Contains(t, h.messenger.last(), "HTTP error 404")
	assert.Contains(t, h.messenger.last(), "type *skip* to proceed")
}

func TestDocumentStepRejectsNonURL(t *testing.T) {
	h := newHarness(t)
	h.walkToDocumentStep(t)

	h.text("it's in my email")
	assert.Zero(t, h.fetcher.urlCalls)
	assert.Equal(t, entity.StepAwaitingDocument, h.session(t).Step)
	assert.Contains(t, h.messenger.last(), "That doesn't look like a URL")
}

func TestUploadRejectsExeWithoutIngestion(t *testing.T) {
	h := newHarness(t)
	h.walkToDocumentStep(t)

	fetched := false
	h.m.HandleUpload(context.Background(), Event{ChatID: chat}, Upload{
		FileName: "installer.exe",
		Size:     100,
		Fetch: func(context.Context) ([]byte, error) {
			fetched = true
			return nil, nil
		},
	})

	assert.False(t, fetched)
	assert.Zero(t, h.fetcher.parseCalls)
	assert.Equal(t, entity.StepAwaitingDocument, h.session(t).Step)
	assert.Contains(t, h.messenger.last(), "Unsupported file type: `.exe`")
}

func TestUploadTooLarge(t *testing.T) {
	h := newHarness(t)
	h.walkToDocumentStep(t)

	h.m.HandleUpload(context.Background(), Event{ChatID: chat}, Upload{
		FileName: "spec.pdf",
		Size:     6 * 1024 * 1024,
		Fetch:    func(context.Context) ([]byte, error) { t.Fatal("must not download"); return nil, nil },
	})
	assert.Contains(t, h.messenger.last(), "File too large")
	assert.Equal(t, entity.StepAwaitingDocument, h.session(t).Step)
}

func TestUploadSuccess(t *testing.T) {
	h := newHarness(t)
	h.fetcher.uploadText = "alpha beta gamma"
	h.walkToDocumentStep(t)

	h.m.HandleUpload(context.Background(), Event{ChatID: chat}, Upload{
		FileName: "spec.md",
		Size:     20,
		Fetch:    func(context.Context) ([]byte, error) { return []byte("# alpha beta gamma"), nil },
	})

	assert.Equal(t, 1, h.fetcher.parseCalls)
	assert.Equal(t, 1, h.builder.calls)
	assert.Equal(t, "alpha beta gamma", h.builder.last.DetailedRequirement)
	assert.Nil(t, h.session(t))

	var sawCount bool
	for _, m := range h.messenger.texts {
		if m.Text == "✅ Extracted *3 words* from `spec\\.md`\n\n⏳ Generating your proposal now\\.\\.\\. Please wait\\." {
			sawCount = true
		}
	}
	assert.True(t, sawCount)
}

func TestUploadIngestionFailureKeepsStep(t *testing.T) {
	h := newHarness(t)
	h.fetcher.uploadErr = userErr("Could not extract any text from the PDF.")
	h.walkToDocumentStep(t)

	h.m.HandleUpload(context.Background(), Event{ChatID: chat}, Upload{
		FileName: "scan.pdf",
		Size:     20,
		Fetch:    func(context.Context) ([]byte, error) { return []byte("%PDF"), nil },
	})
	assert.Zero(t, h.builder.calls)
	assert.Equal(t, entity.StepAwaitingDocument, h.session(t).Step)
	assert.Contains(t, h.messenger.last(), "Could not extract any text from the PDF.")
}

func TestUploadOutsideDocumentStep(t *testing.T) {
	h := newHarness(t)
	h.m.Start(context.Background(), Event{ChatID: chat}, "")

	h.m.HandleUpload(context.Background(), Event{ChatID: chat}, Upload{FileName: "spec.md"})
	assert.Equal(t, msgUploadOutsideSession, h.messenger.last())
	assert.Equal(t, entity.StepAwaitingClientInfo, h.session(t).Step)
}

func TestQuickPathRequiresURLToken(t *testing.T) {
	h := newHarness(t)
	h.m.Start(context.Background(), Event{ChatID: chat}, "")
	h.text("Acme skip")

	h.m.Start(context.Background(), Event{ChatID: chat}, "acme.com Billing Portal")
	assert.Equal(t, 0, h.builder.calls, "acme.com is not a URL token")

	h.m.Start(context.Background(), Event{ChatID: chat}, "www.acme.com Billing Portal")
	assert.Equal(t, 1, h.builder.calls)
	assert.Equal(t, "https://www.acme.com", h.builder.last.ClientURL)
	assert.Equal(t, "Billing Portal", h.builder.last.ProjectName)
	assert.Empty(t, h.builder.last.ClientName)
}

func TestQuickPathLeavesGuidedSessionIntact(t *testing.T) {
	h := newHarness(t)
	h.m.Start(context.Background(), Event{ChatID: chat}, "")
	h.text("Acme skip")
	require.Equal(t, entity.StepAwaitingBrief, h.session(t).Step)

	h.m.Start(context.Background(), Event{ChatID: chat}, "https://globex.com")
	assert.Equal(t, 1, h.builder.calls)

	s := h.session(t)
	require.NotNil(t, s)
	assert.Equal(t, entity.StepAwaitingBrief, s.Step)
	assert.Equal(t, "Acme", s.ClientName)
}

func TestDeliverSendsPhotoWhenDiagramExists(t *testing.T) {
	h := newHarness(t)
	h.builder.result = &entity.ProposalResult{
		Client:           entity.ClientBranding{Name: "Acme"},
		ProjectName:      "Portal",
		ProposalURL:      "/proposal/x",
		DiagramAvailable: true,
		DiagramPath:      "/tmp/architecture.png",
	}
	h.walkToDocumentStep(t)
	before := h.messenger.count()

	h.text("skip")
	require.Len(t, h.messenger.photos, 1)
	assert.Equal(t, "/tmp/architecture.png", h.messenger.photos[0].Path)
	assert.Contains(t, h.messenger.photos[0].Caption, "AI content was unavailable")
	// 只多了 "Generating" 一条文本
	assert.Equal(t, before+1, h.messenger.count())
}

func TestDeliverFallsBackToTextWhenPhotoFails(t *testing.T) {
	h := newHarness(t)
	h.messenger.photoErr = errors.New("bad request")
	h.builder.result = &entity.ProposalResult{
		Client:           entity.ClientBranding{Name: "Acme"},
		ProjectName:      "Portal",
		ProposalURL:      "/proposal/x",
		DiagramAvailable: true,
		DiagramPath:      "/tmp/architecture.png",
		Content:          &entity.ProposalContent{},
	}
	h.walkToDocumentStep(t)

	h.text("skip")
	assert.Contains(t, h.messenger.last(), "Proposal ready for *Acme*")
}

// flakyStore 在内存存储之上按开关注入存储错误
type flakyStore struct {
	*memory.SessionStore
	getErr    error
	saveErr   error
	deleteErr error
}

func (f *flakyStore) Get(ctx context.Context, chatID int64) (*entity.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.SessionStore.Get(ctx, chatID)
}

func (f *flakyStore) Save(ctx context.Context, s *entity.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.SessionStore.Save(ctx, s)
}

func (f *flakyStore) Delete(ctx context.Context, chatID int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.SessionStore.Delete(ctx, chatID)
}

func newFlakyHarness(t *testing.T) (*harness, *flakyStore) {
	t.Helper()
	h := newHarness(t)
	fs := &flakyStore{SessionStore: h.store}
	h.m = NewMachine(fs, h.messenger, h.fetcher, h.builder, Config{BaseURL: "http://localhost:5000"})
	return h, fs
}

func TestStoreErrorsAlwaysGetAReply(t *testing.T) {
	connRefused := errors.New("redis: connection refused")

	cases := []struct {
		name  string
		setup func(fs *flakyStore)
		event func(h *harness)
		want  string
	}{
		{
			name:  "text with get error",
			setup: func(fs *flakyStore) { fs.getErr = connRefused },
			event: func(h *harness) { h.text("Acme skip") },
			want:  msgSessionUnavailable,
		},
		{
			name:  "step text with save error",
			setup: func(fs *flakyStore) { fs.saveErr = connRefused },
			event: func(h *harness) { h.text("Acme skip") },
			want:  msgSessionUnavailable,
		},
		{
			name:  "save after concurrent delete",
			setup: func(fs *flakyStore) { fs.saveErr = repository.ErrSessionGone },
			event: func(h *harness) { h.text("Acme skip") },
			want:  msgSessionEnded,
		},
		{
			name:  "cancel keyword with get error",
			setup: func(fs *flakyStore) { fs.getErr = connRefused },
			event: func(h *harness) { h.text("cancel") },
			want:  msgSessionUnavailable,
		},
		{
			name:  "cancel command with get error",
			setup: func(fs *flakyStore) { fs.getErr = connRefused },
			event: func(h *harness) { h.m.Cancel(context.Background(), Event{ChatID: chat}) },
			want:  msgSessionUnavailable,
		},
		{
			name:  "cancel with delete error",
			setup: func(fs *flakyStore) { fs.deleteErr = connRefused },
			event: func(h *harness) { h.m.Cancel(context.Background(), Event{ChatID: chat}) },
			want:  msgSessionUnavailable,
		},
		{
			name:  "upload with get error",
			setup: func(fs *flakyStore) { fs.getErr = connRefused },
			event: func(h *harness) {
				h.m.HandleUpload(context.Background(), Event{ChatID: chat}, Upload{FileName: "spec.md", Size: 10})
			},
			want: msgSessionUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, fs := newFlakyHarness(t)
			h.m.Start(context.Background(), Event{ChatID: chat}, "")
			before := h.messenger.count()

			tc.setup(fs)
			tc.event(h)

			assert.Equal(t, before+1, h.messenger.count(), "exactly one reply per event")
			assert.Equal(t, tc.want, h.messenger.last())
			assert.Zero(t, h.builder.calls)
			assert.Zero(t, h.fetcher.parseCalls)
		})
	}
}

func TestStartReportsCreateFailure(t *testing.T) {
	h := newHarness(t)
	h.m = NewMachine(failingCreateStore{h.store}, h.messenger, h.fetcher, h.builder, Config{})

	h.m.Start(context.Background(), Event{ChatID: chat}, "")
	assert.Equal(t, msgSessionUnavailable, h.messenger.last())
}

type failingCreateStore struct {
	*memory.SessionStore
}

func (failingCreateStore) Create(context.Context, int64) (*entity.Session, error) {
	return nil, errors.New("redis: connection refused")
}
