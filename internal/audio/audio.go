// Package audio stores voice memos recorded against a project.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sitewalk/planmark/internal/storage"
	"github.com/sitewalk/planmark/pkg/core"
)

// Info describes a decoded WAV header.
type Info struct {
	SampleRate  int
	NumChannels int
	BitDepth    int
	Duration    time.Duration
}

// Inspect validates a WAV payload and reads its format.
func Inspect(r io.ReadSeeker) (Info, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return Info{}, fmt.Errorf("%w: input is not a valid WAV audio file", core.ErrValidation)
	}
	if decoder.NumChans == 0 || decoder.BitDepth == 0 {
		return Info{}, fmt.Errorf("%w: WAV header has no format", core.ErrValidation)
	}
	if err := decoder.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("%w: WAV has no PCM data: %w", core.ErrValidation, err)
	}
	bytesPerSecond := int64(decoder.SampleRate) * int64(decoder.NumChans) * int64(decoder.BitDepth/8)
	if bytesPerSecond == 0 {
		return Info{}, fmt.Errorf("%w: WAV header has no sample rate", core.ErrValidation)
	}
	duration := time.Duration(decoder.PCMLen() * int64(time.Second) / bytesPerSecond)
	return Info{
		SampleRate:  int(decoder.SampleRate),
		NumChannels: int(decoder.NumChans),
		BitDepth:    int(decoder.BitDepth),
		Duration:    duration,
	}, nil
}

// EncodePCM writes 16-bit PCM samples as a WAV stream.
func EncodePCM(w io.WriteSeeker, samples []int, sampleRate, channels int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}
	return enc.Close()
}

// Notes records and lists audio notes of one project.
type Notes struct {
	store     storage.Store
	projectID core.ID
	log       *slog.Logger
	now       func() time.Time
}

// New creates a note book for projectID.
func New(store storage.Store, projectID core.ID, log *slog.Logger) *Notes {
	if log == nil {
		log = slog.Default()
	}
	return &Notes{store: store, projectID: projectID, log: log, now: time.Now}
}

// Ingest validates data as WAV and persists it.
func (n *Notes) Ingest(ctx context.Context, drawingName string, data []byte) (core.AudioNote, error) {
	info, err := Inspect(bytes.NewReader(data))
	if err != nil {
		return core.AudioNote{}, err
	}
	note := core.AudioNote{
		ID:          core.NewID(),
		ProjectID:   n.projectID,
		DrawingName: drawingName,
		Data:        data,
		RecordedAt:  n.now(),
		Duration:    info.Duration,
	}
	if err := n.store.SaveAudioNote(ctx, note); err != nil {
		return core.AudioNote{}, err
	}
	n.log.Debug("Audio note stored", "note", note.ID.String(), "duration", info.Duration, "sampleRate", info.SampleRate)
	return note, nil
}

// IngestFile reads a WAV file from disk and persists it.
func (n *Notes) IngestFile(ctx context.Context, drawingName, path string) (core.AudioNote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.AudioNote{}, fmt.Errorf("%w: %w", core.ErrIO, err)
	}
	return n.Ingest(ctx, drawingName, data)
}

// List returns the project's notes, oldest first.
func (n *Notes) List(ctx context.Context) ([]core.AudioNote, error) {
	return n.store.LoadAudioNotes(ctx, n.projectID)
}

// Delete removes a note.
func (n *Notes) Delete(ctx context.Context, id core.ID) error {
	return n.store.DeleteAudioNote(ctx, id)
}
