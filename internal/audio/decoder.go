package audio

import (
	"errors"
	"io"
	"time"

	"github.com/gen2brain/malgo"
)

// Common decoder errors
var (
	ErrInvalidData       = errors.New("invalid audio data")
	ErrReadFailure       = errors.New("failed to read audio data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// AudioData is a fully decoded clip ready for playback. It is produced once by
// a decoder and then shared read-only between every voice that plays it;
// nothing may mutate it after construction.
type AudioData struct {
	Samples    []byte           // Interleaved raw PCM
	Channels   uint32           // Number of audio channels
	SampleRate uint32           // Sample rate in Hz
	Format     malgo.FormatType // Sample format (e.g. malgo.FormatS16)
}

// BytesPerSample returns the per-channel sample width for a format.
func BytesPerSample(format malgo.FormatType) int {
	switch format {
	case malgo.FormatU8:
		return 1
	case malgo.FormatS16:
		return 2
	case malgo.FormatS24:
		return 3
	case malgo.FormatS32, malgo.FormatF32:
		return 4
	default:
		return 2
	}
}

// FrameCount returns the number of PCM frames in the clip.
func (d *AudioData) FrameCount() int {
	bytesPerFrame := int(d.Channels) * BytesPerSample(d.Format)
	if bytesPerFrame == 0 {
		return 0
	}
	return len(d.Samples) / bytesPerFrame
}

// Duration estimates the playback length of the clip.
func (d *AudioData) Duration() time.Duration {
	if d.SampleRate == 0 {
		return 0
	}
	return time.Duration(d.FrameCount()) * time.Second / time.Duration(d.SampleRate)
}

// Decoder turns an encoded audio stream into PCM ready for the output engine.
type Decoder interface {
	// Decode reads encoded audio from reader and returns decoded PCM data
	Decode(reader io.Reader) (*AudioData, error)

	// CanDecode checks if this decoder can handle the given filename
	CanDecode(filename string) bool

	// FormatName returns the name of the format this decoder handles
	FormatName() string
}
