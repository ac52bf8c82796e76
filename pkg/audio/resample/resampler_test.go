// ABOUTME: Tests for the linear resampler
// ABOUTME: Tests downsampling, upsampling and passthrough
package resample

import (
	"testing"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
)

func TestDownsampleHalf(t *testing.T) {
	input := make(audio.SampleBlock, 100)
	for i := range input {
		input[i] = int16(i * 10)
	}

	output := Convert(input, 48000, 24000)

	if len(output) != 50 {
		t.Fatalf("expected 50 samples, got %d", len(output))
	}
	for i, s := range output {
		if s != input[2*i] {
			t.Errorf("sample %d: expected %d, got %d", i, input[2*i], s)
		}
	}
}

func TestUpsampleDouble(t *testing.T) {
	input := audio.SampleBlock{0, 100, 200, 300}

	output := Convert(input, 24000, 48000)

	expected := []int16{0, 50, 100, 150, 200, 250}
	if len(output) != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), len(output))
	}
	for i := range expected {
		if output[i] != expected[i] {
			t.Errorf("sample %d: expected %d, got %d", i, expected[i], output[i])
		}
	}
}

func TestConvertSameRateCopies(t *testing.T) {
	input := audio.SampleBlock{1, 2, 3}

	output := Convert(input, 48000, 48000)
	output[0] = 42

	if input[0] != 1 {
		t.Error("same-rate conversion must not alias its input")
	}
	if len(output) != 3 {
		t.Errorf("expected 3 samples, got %d", len(output))
	}
}

func TestResampleEmpty(t *testing.T) {
	r := New(44100, 48000)
	if n := r.Resample(nil, make([]int16, 10)); n != 0 {
		t.Errorf("expected 0 samples from empty input, got %d", n)
	}
}

func TestResampleRespectsOutputLength(t *testing.T) {
	r := New(24000, 48000)
	output := make([]int16, 3)

	if n := r.Resample(audio.SampleBlock{0, 100, 200, 300}, output); n != 3 {
		t.Errorf("expected output to cap at 3 samples, got %d", n)
	}
}
