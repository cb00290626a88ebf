package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
)

// Microphone is a Producing module that relays one participant's audio
// stream from a [Connection] into the pipeline as [iu.Audio] IUs, resampling
// to the pipeline's target format on the way in.
type Microphone struct {
	base     *module.Base
	frames   <-chan AudioFrame
	conv     *FormatConverter
	sampSize int
}

// NewMicrophone constructs a Microphone reading from frames, a single
// participant channel obtained from [Connection.InputStreams]. Captured
// frames are converted to (rate, channels) before being emitted.
func NewMicrophone(base *module.Base, frames <-chan AudioFrame, rate, sampleSize, channels int) *Microphone {
	return &Microphone{
		base:     base,
		frames:   frames,
		conv:     &FormatConverter{Target: Format{SampleRate: rate, Channels: channels}},
		sampSize: sampleSize,
	}
}

// ProduceLoop implements module.ProduceFunc: it blocks for the next frame
// from the platform connection and emits it as an Audio IU.
func (m *Microphone) ProduceLoop(ctx context.Context, emit func(iu.Unit)) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case frame, ok := <-m.frames:
		if !ok {
			return fmt.Errorf("audio: microphone input stream closed")
		}
		frame = m.conv.Convert(frame)
		emit(&iu.Audio{
			Header:     iu.NewHeader(m.base.ID(), m.base.NextIUID(), nil, nil),
			RawAudio:   frame.Data,
			Rate:       frame.SampleRate,
			SampleSize: m.sampSize,
			Channels:   frame.Channels,
		})
		return nil
	}
}

// Speaker is a Consuming module that writes DispatchedAudio frames to a
// [Connection]'s output stream.
type Speaker struct {
	out chan<- AudioFrame
}

// NewSpeaker constructs a Speaker writing to out, obtained from
// [Connection.OutputStream].
func NewSpeaker(out chan<- AudioFrame) *Speaker { return &Speaker{out: out} }

// ProcessIU implements module.Consumer.
func (s *Speaker) ProcessIU(in iu.Unit) error {
	d := in.(*iu.DispatchedAudio)
	select {
	case s.out <- AudioFrame{Data: d.RawAudio, SampleRate: d.Rate, Channels: d.Channels}:
		return nil
	default:
		return fmt.Errorf("audio: speaker output stream full, dropping frame")
	}
}

// Recorder is a Consuming module that appends every DispatchedAudio (or raw
// Audio) frame it sees to a WAV file on disk, grounded on the original's
// AudioRecorderModule. A placeholder header is written when the file is
// created and rewritten at Close, once the total sample count is known,
// matching the deferred-header-patch idiom common to streaming WAV writers.
type Recorder struct {
	f          *os.File
	rate       int
	sampleSize int
	channels   int
	dataBytes  int
}

// NewRecorder creates (or truncates) path and prepares it to receive PCM
// frames at the given format.
func NewRecorder(path string, rate, sampleSize, channels int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audio: create recording file: %w", err)
	}
	r := &Recorder{f: f, rate: rate, sampleSize: sampleSize, channels: channels}
	if err := r.writeHeader(0); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// ProcessIU appends the frame's raw PCM bytes to the file.
func (r *Recorder) ProcessIU(in iu.Unit) error {
	var data []byte
	switch v := in.(type) {
	case *iu.DispatchedAudio:
		data = v.RawAudio
	case *iu.Audio:
		data = v.RawAudio
	default:
		return fmt.Errorf("audio: recorder cannot handle kind %s", in.Kind())
	}
	if _, err := r.f.Write(data); err != nil {
		return fmt.Errorf("audio: write recording: %w", err)
	}
	r.dataBytes += len(data)
	return nil
}

// Close patches the WAV header with the final data size and closes the
// underlying file.
func (r *Recorder) Close() error {
	if _, err := r.f.Seek(0, 0); err != nil {
		return err
	}
	if err := r.writeHeader(r.dataBytes); err != nil {
		return err
	}
	return r.f.Close()
}

func (r *Recorder) writeHeader(dataBytes int) error {
	byteRate := r.rate * r.channels * r.sampleSize
	blockAlign := r.channels * r.sampleSize
	h := make([]byte, 44)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+dataBytes))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], uint16(r.channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(r.rate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], uint16(r.sampleSize*8))
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataBytes))
	_, err := r.f.Write(h)
	return err
}
