// ABOUTME: File-backed speech source
// ABOUTME: Streams a PCM16, WAV or MP3 file in paced chunks, transcoding it when asked
package source

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/speechplayer/pkg/audio"
	"github.com/Resonate-Protocol/speechplayer/pkg/audio/decode"
	"github.com/Resonate-Protocol/speechplayer/pkg/audio/resample"
	"github.com/Resonate-Protocol/speechplayer/pkg/audio/stream"
	"github.com/youpy/go-riff"
)

// wavFormat mirrors the fmt chunk of a WAV file
type wavFormat struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// WAV format tags
const (
	wavFormatPCM  = 1
	wavFormatALaw = 6
	wavFormatULaw = 7
)

// File streams the bytes of a file. MP3 and G.711 files must be conformed first.
type File struct {
	path     string
	data     []byte
	format   *audio.Format
	encoding uint16
	mp3      bool
	Pacing   Pacing
}

// OpenFile reads the file and inspects its container header if it has one
func OpenFile(path string, pacing Pacing) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	f := &File{path: path, data: data, Pacing: pacing}
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		f.mp3 = true
		return f, nil
	}
	if stream.HasHeader(data) {
		format, encoding, err := probeWAV(data)
		if err != nil {
			return nil, fmt.Errorf("invalid WAV file %s: %w", path, err)
		}
		f.format, f.encoding = format, encoding
	}

	return f, nil
}

// Name identifies the source
func (f *File) Name() string {
	return filepath.Base(f.path)
}

// Format returns the format declared by the container, or nil for raw PCM
// and unconformed MP3
func (f *File) Format() *audio.Format {
	return f.format
}

// Size returns the file size in bytes
func (f *File) Size() int {
	return len(f.data)
}

// Stream emits the file in paced chunks, container header included
func (f *File) Stream(ctx context.Context, onChunk func([]byte) error) error {
	return f.Pacing.Emit(ctx, f.data, onChunk)
}

// CheckPlayable reports why the file would not play correctly at format
func (f *File) CheckPlayable(format audio.Format) error {
	if f.mp3 {
		return fmt.Errorf("%s is MP3 and must be transcoded first", f.Name())
	}
	if f.format == nil {
		return nil
	}
	if f.encoding != wavFormatPCM {
		return fmt.Errorf("%s is G.711 and must be transcoded first", f.Name())
	}
	if f.format.BitDepth != 16 {
		return fmt.Errorf("%s is %d-bit, only 16-bit PCM is supported", f.Name(), f.format.BitDepth)
	}
	if f.format.Channels != 1 {
		return fmt.Errorf("%s has %d channels, only mono is supported", f.Name(), f.format.Channels)
	}
	if f.format.SampleRate != format.SampleRate {
		return fmt.Errorf("%s is %dHz, player runs at %dHz", f.Name(), f.format.SampleRate, format.SampleRate)
	}
	if !canonicalHeader(f.data) {
		return fmt.Errorf("%s has extra header chunks, samples must start at byte %d", f.Name(), audio.WAVHeaderSize)
	}
	return nil
}

// canonicalHeader reports whether the data chunk starts right after a
// 44-byte header, which is all the player strips
func canonicalHeader(data []byte) bool {
	return len(data) >= audio.WAVHeaderSize && string(data[36:40]) == "data"
}

// Conform transcodes the file to mono PCM16 at format's rate, wrapped in a
// 44-byte WAV header the way TTS services send it. A matching file with
// extra chunks before its samples is re-wrapped. Raw PCM and files that
// already match are left alone.
func (f *File) Conform(format audio.Format) error {
	if f.CheckPlayable(format) == nil {
		return nil
	}

	var samples audio.SampleBlock
	var rate int

	if f.mp3 {
		decoded, sampleRate, err := decode.DecodeMP3(bytes.NewReader(f.data))
		if err != nil {
			return fmt.Errorf("decoding %s: %w", f.Name(), err)
		}
		samples, rate = decoded, sampleRate
	} else {
		pcm, err := wavData(f.data)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.Name(), err)
		}

		var interleaved []int16
		switch {
		case f.encoding == wavFormatALaw:
			interleaved = decode.DecodeALaw(pcm)
		case f.encoding == wavFormatULaw:
			interleaved = decode.DecodeULaw(pcm)
		case f.format.BitDepth == 16:
			interleaved, _ = decode.NewPCM16().Convert(pcm, 0)
		default:
			return fmt.Errorf("%s is %d-bit, only 16-bit PCM can be transcoded", f.Name(), f.format.BitDepth)
		}
		samples, rate = decode.Downmix(interleaved, f.format.Channels), f.format.SampleRate
	}

	mono := resample.Convert(samples, rate, format.SampleRate)
	f.data = audio.EncodeWAV(audio.EncodePCM16(mono), format)
	f.format = &format
	f.encoding = wavFormatPCM
	f.mp3 = false

	log.Printf("Transcoded %s from %dHz to %dHz mono (%d samples)", f.Name(), rate, format.SampleRate, len(mono))
	return nil
}

func wavData(data []byte) ([]byte, error) {
	riffChunk, err := riff.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, err
	}

	dataChunk := findChunk(riffChunk, "data")
	if dataChunk == nil {
		return nil, errors.New("data chunk is not found")
	}
	return io.ReadAll(dataChunk)
}

func probeWAV(data []byte) (*audio.Format, uint16, error) {
	riffChunk, err := riff.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, 0, err
	}

	fmtChunk := findChunk(riffChunk, "fmt ")
	if fmtChunk == nil {
		return nil, 0, errors.New("format chunk is not found")
	}

	var wf wavFormat
	if err := binary.Read(fmtChunk, binary.LittleEndian, &wf); err != nil {
		return nil, 0, fmt.Errorf("reading format chunk: %w", err)
	}
	switch wf.AudioFormat {
	case wavFormatPCM, wavFormatALaw, wavFormatULaw:
	default:
		return nil, 0, fmt.Errorf("unsupported audio format %d, only PCM and G.711 are supported", wf.AudioFormat)
	}

	return &audio.Format{
		SampleRate: int(wf.SampleRate),
		Channels:   int(wf.NumChannels),
		BitDepth:   int(wf.BitsPerSample),
	}, wf.AudioFormat, nil
}

func findChunk(riffChunk *riff.RIFFChunk, id string) *riff.Chunk {
	for _, ch := range riffChunk.Chunks {
		if string(ch.ChunkID[:]) == id {
			return ch
		}
	}
	return nil
}
