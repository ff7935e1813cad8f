package capture

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Buffer holds the PCM accumulated during one hotkey hold. It is owned by
// its session and treated as read-only once handed downstream.
type Buffer struct {
	PCM        []byte // 16-bit little-endian samples
	SampleRate int
	Channels   int
}

// Duration returns the buffer length in wall time.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	samples := len(b.PCM) / 2 / b.Channels
	return time.Duration(samples) * time.Second / time.Duration(b.SampleRate)
}

// EncodeWAV writes the buffer as a 16-bit WAV file, for backends that take
// audio files rather than raw PCM.
func EncodeWAV(file *os.File, buf *Buffer) error {
	if len(buf.PCM)%2 != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	intBuf := &audio.IntBuffer{Format: &audio.Format{NumChannels: buf.Channels, SampleRate: buf.SampleRate}}
	samples := make([]int, len(buf.PCM)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int(int16(binary.LittleEndian.Uint16(buf.PCM[i*2:])))
	}
	intBuf.Data = samples

	enc := wav.NewEncoder(file, buf.SampleRate, 16, buf.Channels, 1)
	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
