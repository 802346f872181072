package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/snappy-loop/poems/internal/llm"
	"github.com/snappy-loop/poems/internal/models"
)

const waitTimeout = 2 * time.Second

type reply struct {
	poem  *llm.Poem
	image *llm.Image
	audio *llm.Audio
	err   error
}

// call is one pending remote call; the test answers it through reply.
type call struct {
	instruction string
	reply       chan reply
}

func (c call) answer(r reply) { c.reply <- r }

// fakeGenerator parks every call until the test answers it. With ignoreCtx set, calls
// keep waiting after cancellation, like a provider that never honours it.
type fakeGenerator struct {
	poems     chan call
	images    chan call
	speech    chan call
	ignoreCtx bool
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		poems:  make(chan call, 8),
		images: make(chan call, 8),
		speech: make(chan call, 8),
	}
}

func (f *fakeGenerator) do(ctx context.Context, q chan call, instruction string) reply {
	c := call{instruction: instruction, reply: make(chan reply, 1)}
	if f.ignoreCtx {
		q <- c
		return <-c.reply
	}
	select {
	case q <- c:
	case <-ctx.Done():
		return reply{err: &llm.Error{Op: "fake", Kind: llm.KindTransport, Err: ctx.Err()}}
	}
	select {
	case r := <-c.reply:
		return r
	case <-ctx.Done():
		return reply{err: &llm.Error{Op: "fake", Kind: llm.KindTransport, Err: ctx.Err()}}
	}
}

func (f *fakeGenerator) GeneratePoem(ctx context.Context, instruction string) (*llm.Poem, error) {
	r := f.do(ctx, f.poems, instruction)
	return r.poem, r.err
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, instruction string) (*llm.Image, error) {
	r := f.do(ctx, f.images, instruction)
	return r.image, r.err
}

func (f *fakeGenerator) SynthesizeSpeech(ctx context.Context, instruction string) (*llm.Audio, error) {
	r := f.do(ctx, f.speech, instruction)
	return r.audio, r.err
}

func next(t *testing.T, q chan call) call {
	t.Helper()
	select {
	case c := <-q:
		return c
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a remote call")
		return call{}
	}
}

func noCall(t *testing.T, q chan call) {
	t.Helper()
	select {
	case c := <-q:
		t.Fatalf("unexpected remote call: %q", c.instruction)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitDone(t *testing.T, tk Ticket) {
	t.Helper()
	select {
	case <-tk.Done:
	case <-time.After(waitTimeout):
		t.Fatalf("cycle %d did not settle", tk.Epoch)
	}
}

// waitFor blocks until the state satisfies pred.
func waitFor(t *testing.T, o *Orchestrator, pred func(models.Snapshot) bool) models.Snapshot {
	t.Helper()
	ch, unsubscribe := o.Subscribe()
	defer unsubscribe()
	deadline := time.After(waitTimeout)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				t.Fatal("subscription closed")
			}
			if pred(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state; last: %+v", o.Snapshot())
		}
	}
}

func phaseIs(p models.GenerationPhase) func(models.Snapshot) bool {
	return func(s models.Snapshot) bool { return s.Generation.Phase == p }
}

func narrationIs(p models.NarrationPhase) func(models.Snapshot) bool {
	return func(s models.Snapshot) bool { return s.Narration.Phase == p }
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// blockingPublisher holds every event until release is closed or the publish
// deadline passes, like a broker that stopped answering.
type blockingPublisher struct {
	recordingPublisher
	release chan struct{}
}

func newBlockingPublisher() *blockingPublisher {
	return &blockingPublisher{release: make(chan struct{})}
}

func (p *blockingPublisher) PublishEvent(ctx context.Context, ev models.Event) error {
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.recordingPublisher.PublishEvent(ctx, ev)
}

var (
	familyRequest = models.GenerationRequest{Theme: "gia đình", AgeGroup: models.Age3To4}
	poemReply     = reply{poem: &llm.Poem{Title: "Nhà mình", Body: "Bố là cây cao\nMẹ là bóng mát"}}
	imageReply    = reply{image: &llm.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MimeType: "image/png"}}
	audioReply    = reply{audio: &llm.Audio{Data: []byte("RIFFwav"), MimeType: "audio/wav"}}
	transportErr  = &llm.Error{Op: "fake", Kind: llm.KindTransport}
)
