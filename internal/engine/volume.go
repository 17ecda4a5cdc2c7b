package engine

import (
	"log/slog"

	"github.com/gen2brain/malgo"
)

// ApplyVolume scales PCM samples in place. Callers scaling a shared clip must
// pass a copy; decoded buffers are immutable by contract.
func ApplyVolume(samples []byte, format malgo.FormatType, volume float32) {
	switch format {
	case malgo.FormatS16:
		for i := 0; i+1 < len(samples); i += 2 {
			sample := int16(samples[i]) | int16(samples[i+1])<<8
			sample = int16(float32(sample) * volume)
			samples[i] = byte(sample)
			samples[i+1] = byte(sample >> 8)
		}
	case malgo.FormatS24:
		for i := 0; i+2 < len(samples); i += 3 {
			sample := int32(samples[i]) | int32(samples[i+1])<<8 | int32(samples[i+2])<<16
			if sample&0x800000 != 0 {
				sample |= ^0xFFFFFF // sign extend
			}
			sample = int32(float32(sample) * volume)
			samples[i] = byte(sample)
			samples[i+1] = byte(sample >> 8)
			samples[i+2] = byte(sample >> 16)
		}
	case malgo.FormatS32:
		for i := 0; i+3 < len(samples); i += 4 {
			sample := int32(samples[i]) | int32(samples[i+1])<<8 | int32(samples[i+2])<<16 | int32(samples[i+3])<<24
			sample = int32(float32(sample) * volume)
			samples[i] = byte(sample)
			samples[i+1] = byte(sample >> 8)
			samples[i+2] = byte(sample >> 16)
			samples[i+3] = byte(sample >> 24)
		}
	default:
		slog.Warn("volume adjustment not implemented for format", "format", format)
	}
}

// scaledCopy returns the clip samples with volume applied, copying only when
// scaling is actually needed.
func scaledCopy(samples []byte, format malgo.FormatType, volume float32) []byte {
	if volume == 1.0 {
		return samples
	}
	out := make([]byte, len(samples))
	copy(out, samples)
	ApplyVolume(out, format, volume)
	return out
}
