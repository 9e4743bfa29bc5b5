package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/msrishav-28/Living-Heirloom/internal/audio"
	"github.com/msrishav-28/Living-Heirloom/internal/voiceclone"
)

// Device is a microphone handle. Read returns the next PCM16LE chunk
// and io.EOF when the device has nothing more to deliver.
type Device interface {
	Start(sampleRate int) error
	Read() ([]byte, error)
	Close() error
}

type Recorder struct {
	device     Device
	sampleRate int
}

func NewRecorder(device Device, sampleRate int) *Recorder {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &Recorder{device: device, sampleRate: sampleRate}
}

// Start acquires the device and begins capturing. The returned session
// releases the device on Stop, on Abort, on a read error, and on
// context teardown; there is no path that leaves it held.
func (r *Recorder) Start(ctx context.Context) (*Session, error) {
	if err := r.device.Start(r.sampleRate); err != nil {
		return nil, fmt.Errorf("start recording device: %w", err)
	}
	s := &Session{
		device:     r.device,
		sampleRate: r.sampleRate,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.captureLoop(ctx)
	return s, nil
}

type Session struct {
	device     Device
	sampleRate int

	mu  sync.Mutex
	buf bytes.Buffer
	err error

	stopOnce    sync.Once
	stop        chan struct{}
	done        chan struct{}
	releaseOnce sync.Once
}

func (s *Session) captureLoop(ctx context.Context) {
	defer s.release()
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return
		case <-s.stop:
			return
		default:
		}

		chunk, err := s.device.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.setErr(fmt.Errorf("read recording device: %w", err))
			}
			return
		}
		s.mu.Lock()
		s.buf.Write(chunk)
		s.mu.Unlock()
	}
}

// Stop ends the capture and returns everything recorded as a WAV voice
// sample. The device is released before Stop returns.
func (s *Session) Stop() (voiceclone.VoiceSample, error) {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return voiceclone.VoiceSample{}, s.err
	}
	pcm := s.buf.Bytes()
	wav, err := audio.EncodeWAVPCM16LE(pcm, s.sampleRate)
	if err != nil {
		return voiceclone.VoiceSample{}, fmt.Errorf("encode recording: %w", err)
	}
	return voiceclone.VoiceSample{
		Data:     wav,
		Filename: fmt.Sprintf("recording_%d.wav", time.Now().UnixMilli()),
		Duration: audio.PCM16LEDurationSeconds(pcm, s.sampleRate),
	}, nil
}

// Abort discards the capture and releases the device.
func (s *Session) Abort() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Session) release() {
	s.releaseOnce.Do(func() {
		_ = s.device.Close()
	})
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
