package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeWAVPCM16LEHeader(t *testing.T) {
	pcm := make([]byte, 320) // 10ms at 16kHz mono PCM16
	out, err := EncodeWAVPCM16LE(pcm, 16000)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}
	if len(out) != 44+len(pcm) {
		t.Fatalf("encoded length = %d, want %d", len(out), 44+len(pcm))
	}
	if !bytes.Equal(out[0:4], []byte("RIFF")) || !bytes.Equal(out[8:12], []byte("WAVE")) {
		t.Fatalf("missing RIFF/WAVE markers: % x", out[0:12])
	}
	dataSize := binary.LittleEndian.Uint32(out[40:44])
	if dataSize != uint32(len(pcm)) {
		t.Fatalf("data chunk size = %d, want %d", dataSize, len(pcm))
	}
	sampleRate := binary.LittleEndian.Uint32(out[24:28])
	if sampleRate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", sampleRate)
	}
}

func TestEncodeWAVPCM16LEDefaultsSampleRate(t *testing.T) {
	out, err := EncodeWAVPCM16LE([]byte{0, 0}, 0)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}
	sampleRate := binary.LittleEndian.Uint32(out[24:28])
	if sampleRate != 16000 {
		t.Fatalf("default sample rate = %d, want 16000", sampleRate)
	}
}

func TestPCM16LEDurationSeconds(t *testing.T) {
	pcm := make([]byte, 32000) // 1s at 16kHz mono PCM16
	if got := PCM16LEDurationSeconds(pcm, 16000); got != 1.0 {
		t.Fatalf("duration = %v, want 1.0", got)
	}
	if got := PCM16LEDurationSeconds(pcm, 0); got != 1.0 {
		t.Fatalf("duration with defaulted rate = %v, want 1.0", got)
	}
}
