package iso8583

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func serializeSTAN(t *testing.T, f *Factory, stan int) []byte {
	t.Helper()
	m := f.NewMessage(0x0200)
	defer m.Release()
	if err := m.SetValue(11, stan, Numeric, 6); err != nil {
		t.Fatal(err)
	}
	wire, err := m.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	return wire
}

func TestProcessBatch(t *testing.T) {
	f := newTestFactory(t)
	p := NewProcessor(f, WithConcurrency(3))

	batch := make([][]byte, 20)
	for i := range batch {
		batch[i] = serializeSTAN(t, f, i)
	}
	got, err := p.ProcessBatch(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	for i, m := range got {
		if m.Field(11).Render() != fmt.Sprintf("%06d", i) {
			t.Errorf("result %d holds STAN %s", i, m.Field(11).Render())
		}
	}
}

func TestProcessBatchFailure(t *testing.T) {
	f := newTestFactory(t)
	var handled int
	var mu sync.Mutex
	p := NewProcessor(f, WithErrorHandler(func(error) {
		mu.Lock()
		handled++
		mu.Unlock()
	}))

	batch := [][]byte{serializeSTAN(t, f, 1), []byte("0200"), serializeSTAN(t, f, 2)}
	got, err := p.ProcessBatch(context.Background(), batch)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
	if got != nil {
		t.Error("a failed batch returned results")
	}
	if handled != 1 {
		t.Errorf("error handler called %d times", handled)
	}
}

func TestProcessStream(t *testing.T) {
	f := newTestFactory(t)
	var (
		mu     sync.Mutex
		failed []error
	)
	p := NewProcessor(f, WithConcurrency(2), WithErrorHandler(func(err error) {
		mu.Lock()
		failed = append(failed, err)
		mu.Unlock()
	}))

	var frames [][]byte
	for i := 0; i < 10; i++ {
		frames = append(frames, serializeSTAN(t, f, i))
	}
	frames = append(frames, []byte("garbage"))

	input := make(chan []byte)
	output := make(chan *Message, 16)
	go func() {
		defer close(input)
		for _, frame := range frames {
			input <- frame
		}
	}()

	if err := p.ProcessStream(context.Background(), input, output); err != nil {
		t.Fatal(err)
	}
	close(output)

	seen := make(map[string]bool)
	for m := range output {
		seen[m.Field(11).Render()] = true
		m.Release()
	}
	if len(seen) != 10 {
		t.Errorf("stream produced %d distinct messages", len(seen))
	}
	if len(failed) != 1 || !errors.Is(failed[0], ErrParse) {
		t.Errorf("stream failures = %v", failed)
	}
}

func TestProcessStreamCancel(t *testing.T) {
	f := newTestFactory(t)
	p := NewProcessor(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.ProcessStream(ctx, make(chan []byte), make(chan *Message))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestProcessorMetrics(t *testing.T) {
	f := newTestFactory(t)
	m := NewMetrics("test", prometheus.NewRegistry())
	p := NewProcessor(f, WithMetrics(m), WithErrorHandler(func(error) {}))

	if _, err := p.Process(serializeSTAN(t, f, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Process([]byte("0200")); err == nil {
		t.Fatal("short message parsed")
	}
	wire := serializeSTAN(t, f, 2)
	wire[0] = '0'
	wire[1] = '8'
	if _, err := p.Process(wire); !errors.Is(err, ErrNoParsingGuide) {
		t.Fatalf("err = %v", err)
	}

	if got := testutil.ToFloat64(m.MessagesParsed.WithLabelValues("0200")); got != 1 {
		t.Errorf("parsed 0200 = %v", got)
	}
	if got := testutil.ToFloat64(m.ParseErrors.WithLabelValues("insufficient_data")); got != 1 {
		t.Errorf("insufficient_data = %v", got)
	}
	if got := testutil.ToFloat64(m.ParseErrors.WithLabelValues("no_parsing_guide")); got != 1 {
		t.Errorf("no_parsing_guide = %v", got)
	}
}
