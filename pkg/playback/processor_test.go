package playback

import (
	"testing"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
)

type recordingTap struct {
	samples []int16
}

func (r *recordingTap) Write(samples []int16) {
	r.samples = append(r.samples, samples...)
}

func ramp(n int) audio.SampleBlock {
	block := make(audio.SampleBlock, n)
	for i := range block {
		block[i] = int16(i + 1)
	}
	return block
}

func countStops(events []Event) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == EventStop {
			n++
		}
	}
	return n
}

func TestProcessorIdleBeforeWrite(t *testing.T) {
	p := NewProcessor(nil)
	out := make([]int16, BlockSize)
	out[0] = 99

	if !p.Process(out) {
		t.Fatal("expected idle processor to keep running")
	}
	if out[0] != 0 {
		t.Errorf("expected silence, got %d", out[0])
	}
	if events := p.Events(); len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestProcessorPlaysQueuedSamples(t *testing.T) {
	tap := &recordingTap{}
	p := NewProcessor(tap)
	p.Write(ramp(300), "a")

	out := make([]int16, BlockSize)
	var played []int16
	for i := 0; i < 3; i++ {
		if !p.Process(out) {
			t.Fatalf("quantum %d: stream stopped early", i)
		}
		played = append(played, out...)
	}

	for i := 0; i < 300; i++ {
		if played[i] != int16(i+1) {
			t.Fatalf("sample %d: expected %d, got %d", i, i+1, played[i])
		}
	}
	for i := 300; i < len(played); i++ {
		if played[i] != 0 {
			t.Fatalf("sample %d: expected zero padding, got %d", i, played[i])
		}
	}
	if len(tap.samples) != 300 {
		t.Errorf("expected tap to see 300 samples, got %d", len(tap.samples))
	}
}

func TestProcessorStopsOnceAfterDrain(t *testing.T) {
	p := NewProcessor(nil)
	p.Write(ramp(BlockSize), "a")

	out := make([]int16, BlockSize)
	if !p.Process(out) {
		t.Fatal("expected first quantum to play")
	}
	if p.Process(out) {
		t.Fatal("expected stream to stop once drained")
	}
	if p.Process(out) {
		t.Fatal("expected stopped stream to stay stopped")
	}

	if stops := countStops(p.Events()); stops != 1 {
		t.Errorf("expected exactly one stop event, got %d", stops)
	}
	if !p.Stopped() {
		t.Error("expected Stopped to report true")
	}
	if p.Write(ramp(4), "a") {
		t.Error("expected write after stop to be refused")
	}
}

func TestProcessorOffsetRequests(t *testing.T) {
	tests := []struct {
		name      string
		quanta    int
		interrupt bool
		expected  int64
		running   bool
	}{
		{name: "before playing", quanta: 0, expected: 0, running: true},
		{name: "after two quanta", quanta: 2, expected: 2 * BlockSize, running: true},
		{name: "interrupt", quanta: 1, interrupt: true, expected: BlockSize, running: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcessor(nil)
			p.Write(ramp(10*BlockSize), "track-1")

			out := make([]int16, BlockSize)
			for i := 0; i < tt.quanta; i++ {
				p.Process(out)
			}
			p.Events()

			if !p.RequestOffset("req-1", tt.interrupt) {
				t.Fatal("request refused by running processor")
			}
			if running := p.Process(out); running != tt.running {
				t.Errorf("expected running=%v, got %v", tt.running, running)
			}

			events := p.Events()
			if len(events) == 0 || events[0].Kind != EventOffset {
				t.Fatalf("expected offset event first, got %+v", events)
			}
			ev := events[0]
			if ev.RequestID != "req-1" {
				t.Errorf("expected request id req-1, got %s", ev.RequestID)
			}
			if ev.TrackID != "track-1" {
				t.Errorf("expected track-1, got %s", ev.TrackID)
			}
			if ev.Offset != tt.expected {
				t.Errorf("expected offset %d, got %d", tt.expected, ev.Offset)
			}
			if ev.Interrupt != tt.interrupt {
				t.Errorf("expected interrupt=%v on answer, got %v", tt.interrupt, ev.Interrupt)
			}
			if !tt.running && countStops(events) != 1 {
				t.Errorf("expected one stop event after interrupt, got %d", countStops(events))
			}
		})
	}
}

func TestProcessorInterruptSilencesImmediately(t *testing.T) {
	p := NewProcessor(nil)
	p.Write(ramp(10*BlockSize), "a")

	out := make([]int16, BlockSize)
	p.Process(out)
	p.RequestOffset("stop", true)
	p.Process(out)

	for i, s := range out {
		if s != 0 {
			t.Fatalf("sample %d: expected silence after interrupt, got %d", i, s)
		}
	}
}

func TestProcessorTracksOffsetsPerTrack(t *testing.T) {
	p := NewProcessor(nil)
	p.Write(ramp(BlockSize), "a")
	p.Write(ramp(BlockSize/2), "b")

	out := make([]int16, BlockSize)
	p.Process(out)
	p.Process(out)

	p.RequestOffset("q", false)
	p.Process(out)

	var found bool
	for _, ev := range p.Events() {
		if ev.Kind == EventOffset && ev.RequestID == "q" {
			found = true
			if ev.TrackID != "b" {
				t.Errorf("expected last written track b, got %s", ev.TrackID)
			}
			if ev.Offset != BlockSize/2 {
				t.Errorf("expected offset %d, got %d", BlockSize/2, ev.Offset)
			}
		}
	}
	if !found {
		t.Fatal("no answer for request q")
	}
}
