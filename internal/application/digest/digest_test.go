package digest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-bot/internal/domain/service"
)

type fakeWriter struct {
	fact, pulse string
	err         error
	today       string
}

func (f *fakeWriter) FunFact(_ context.Context, today string) (string, error) {
	f.today = today
	return f.fact, f.err
}

func (f *fakeWriter) TechPulse(_ context.Context, today string) (string, error) {
	f.today = today
	return f.pulse, f.err
}

type fakeImages struct {
	prompt string
	data   []byte
	err    error
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt string) (*service.GeneratedImage, error) {
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &service.GeneratedImage{ID: "img-1", Data: f.data}, nil
}

type sent struct {
	chatID int64
	text   service.OutgoingText
	photo  *service.OutgoingPhoto
}

type fakeMessenger struct {
	sent []sent
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, msg service.OutgoingText) error {
	f.sent = append(f.sent, sent{chatID: chatID, text: msg})
	return nil
}

func (f *fakeMessenger) SendPhoto(_ context.Context, chatID int64, p service.OutgoingPhoto) error {
	f.sent = append(f.sent, sent{chatID: chatID, photo: &p})
	return nil
}

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func newJobs(t *testing.T, w *fakeWriter, img *fakeImages, chatID int64) (*Jobs, *fakeMessenger) {
	t.Helper()
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	m := &fakeMessenger{}
	var images service.ImageGenerator
	if img != nil {
		images = img
	}
	j := NewJobs(w, images, m, Config{DefaultChatID: chatID, Location: ist, MaxImageSide: 1024, JPEGQuality: 60})
	// 2026-03-02 20:00 UTC = 2026-03-03 01:30 IST
	j.now = func() time.Time { return time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC) }
	return j, m
}

func TestFunFactSendsTextThenImage(t *testing.T) {
	w := &fakeWriter{fact: "Octopuses have three hearts."}
	img := &fakeImages{data: pngData(t, 2048, 2048)}
	j, m := newJobs(t, w, img, 42)

	require.NoError(t, j.FunFact(context.Background(), 7))

	assert.Equal(t, "Tuesday, 03 March 2026", w.today)
	require.Len(t, m.sent, 2)
	assert.Equal(t, int64(7), m.sent[0].chatID)
	assert.Equal(t, "🧠 *Daily Fun Fact*\n\nOctopuses have three hearts.", m.sent[0].text.Text)
	assert.Equal(t, service.ParseModeMarkdown, m.sent[0].text.ParseMode)

	photo := m.sent[1].photo
	require.NotNil(t, photo)
	assert.Equal(t, "funfact.jpg", photo.FileName)
	assert.Equal(t, "🎨 _Illustration of today's fun fact_", photo.Caption)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(photo.Data))
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Width)

	assert.Equal(t, "A colorful, whimsical illustration of this fun fact: Octopuses have three hearts.", img.prompt)
}

func TestFunFactImageFailureIsNotAJobFailure(t *testing.T) {
	j, m := newJobs(t, &fakeWriter{fact: "fact"}, &fakeImages{err: errors.New("quota")}, 42)

	require.NoError(t, j.FunFact(context.Background(), 7))
	assert.Len(t, m.sent, 1)
}

func TestFunFactTextFailureSendsNothing(t *testing.T) {
	j, m := newJobs(t, &fakeWriter{err: errors.New("llm down")}, nil, 42)

	assert.Error(t, j.FunFact(context.Background(), 7))
	assert.Empty(t, m.sent)
}

func TestTechPulseSplitsLongContent(t *testing.T) {
	line := strings.Repeat("x", 99) + "\n"
	w := &fakeWriter{pulse: strings.Repeat(line, 60)}
	j, m := newJobs(t, w, nil, 42)

	require.NoError(t, j.TechPulse(context.Background(), 7))

	require.Len(t, m.sent, 2)
	assert.True(t, strings.HasPrefix(m.sent[0].text.Text, "🔥 *AI Tech Pulse — 03 Mar 2026*\n\n━━━━━━━━━━━━━━━━━━━━\n"))
	for _, s := range m.sent {
		assert.LessOrEqual(t, len([]rune(s.text.Text)), service.MaxMessageLength)
		assert.Equal(t, service.ParseModeMarkdown, s.text.ParseMode)
	}
}

func TestScheduledJobsSkipWithoutChatID(t *testing.T) {
	w := &fakeWriter{fact: "fact", pulse: "pulse"}
	j, m := newJobs(t, w, nil, 0)

	j.ScheduledFunFact(context.Background())
	j.ScheduledTechPulse(context.Background())

	assert.Empty(t, m.sent)
	assert.Empty(t, w.today, "writer is never called")
}

func TestScheduledJobsUseDefaultChat(t *testing.T) {
	j, m := newJobs(t, &fakeWriter{pulse: "pulse"}, nil, 42)

	j.ScheduledTechPulse(context.Background())

	require.Len(t, m.sent, 1)
	assert.Equal(t, int64(42), m.sent[0].chatID)
}

func TestImagePromptIsCapped(t *testing.T) {
	p := ImagePrompt(strings.Repeat("é", 500))
	assert.Equal(t, 300, len([]rune(strings.TrimPrefix(p, "A colorful, whimsical illustration of this fun fact: "))))
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	j, _ := newJobs(t, &fakeWriter{}, nil, 0)
	_, err := NewScheduler(context.Background(), j, time.UTC, "not a cron", "30 11 * * *")
	assert.Error(t, err)
}

func TestSchedulerUsesLocation(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	j, _ := newJobs(t, &fakeWriter{}, nil, 0)

	s, err := NewScheduler(context.Background(), j, ist, "0 11 * * *", "30 11 * * *")
	require.NoError(t, err)
	s.Start()
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	next := s.Next()
	require.Len(t, next, 2)
	for _, n := range next {
		local := n.In(ist)
		assert.Equal(t, 11, local.Hour())
		assert.Contains(t, []int{0, 30}, local.Minute())
	}
}
