package export

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sitewalk/planmark/internal/storage"
	"github.com/sitewalk/planmark/pkg/core"
)

// Build collects the drawing, its project's layers and every annotation on it.
func Build(ctx context.Context, store storage.Store, drawingID core.ID) (Bundle, error) {
	drawing, err := store.LoadDrawing(ctx, drawingID)
	if err != nil {
		return Bundle{}, err
	}
	project, err := store.LoadProject(ctx, drawing.ProjectID)
	if err != nil {
		return Bundle{}, err
	}
	b := Bundle{
		Version:    FormatVersion,
		ExportedAt: time.Now().UTC(),
		Project:    project,
		Drawing:    drawing,
	}
	if b.Layers, err = store.LoadLayers(ctx, project.ID); err != nil {
		return Bundle{}, err
	}
	if b.Lines, err = store.LoadLines(ctx, drawingID); err != nil {
		return Bundle{}, err
	}
	if b.Polylines, err = store.LoadPolylines(ctx, drawingID); err != nil {
		return Bundle{}, err
	}
	if b.Rectangles, err = store.LoadRectangles(ctx, drawingID); err != nil {
		return Bundle{}, err
	}
	if b.Points, err = store.LoadPoints(ctx, drawingID); err != nil {
		return Bundle{}, err
	}
	if b.Texts, err = store.LoadTexts(ctx, drawingID); err != nil {
		return Bundle{}, err
	}
	if b.Photos, err = store.LoadPhotos(ctx, drawingID); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// Write encodes the bundle as JSON, gzip-compressed when compress is set.
func Write(w io.Writer, b Bundle, compress bool) error {
	if !compress {
		return json.NewEncoder(w).Encode(b)
	}
	gzWriter := gzip.NewWriter(w)
	if err := json.NewEncoder(gzWriter).Encode(b); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// WriteFile writes the bundle to path.
func WriteFile(path string, b Bundle, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Write(f, b, compress); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read decodes a bundle, detecting gzip input from its magic bytes.
func Read(r io.Reader) (Bundle, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		gzReader, err := gzip.NewReader(br)
		if err != nil {
			return Bundle{}, fmt.Errorf("%w: %w", core.ErrValidation, err)
		}
		defer gzReader.Close()
		src = gzReader
	}
	var b Bundle
	if err := json.NewDecoder(src).Decode(&b); err != nil {
		return Bundle{}, fmt.Errorf("%w: decoding bundle: %w", core.ErrValidation, err)
	}
	if b.Version != FormatVersion {
		return Bundle{}, fmt.Errorf("%w: unsupported bundle version %d", core.ErrValidation, b.Version)
	}
	return b, nil
}
