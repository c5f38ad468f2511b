// Package upload validates and gathers local source files for a batch
// upload to the analysis service.
package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/otel"
)

// MaxFileSize is the largest file the service accepts.
const MaxFileSize = 10 << 20

// maxConcurrentReads bounds how many files Collect reads at once.
const maxConcurrentReads = 8

// File is one validated file ready to send.
type File struct {
	Name string
	Data []byte
}

// InvalidFileError reports a file that failed local validation.
type InvalidFileError struct {
	Name   string
	Reason string
}

func (e *InvalidFileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Reason)
}

// Validate checks a single file against the service's upload rules.
func Validate(name string, size int64, lang model.Language) error {
	if strings.TrimSpace(name) == "" {
		return &InvalidFileError{Name: "(unnamed)", Reason: "empty file name"}
	}
	if size <= 0 {
		return &InvalidFileError{Name: name, Reason: "file is empty"}
	}
	if size > MaxFileSize {
		return &InvalidFileError{Name: name, Reason: fmt.Sprintf("file exceeds %d MiB", MaxFileSize>>20)}
	}
	if _, ok := model.ParseLanguage(string(lang)); !ok {
		return &InvalidFileError{Name: name, Reason: fmt.Sprintf("unsupported language %q", lang)}
	}
	if !lang.Accepts(name) {
		return &InvalidFileError{
			Name:   name,
			Reason: fmt.Sprintf("extension not valid for %s (want %s)", lang, strings.Join(lang.Extensions(), ", ")),
		}
	}
	return nil
}

// Collect reads and validates paths concurrently. The returned files keep
// the order of paths. The first failure cancels the remaining reads.
func Collect(ctx context.Context, paths []string, lang model.Language) ([]File, error) {
	if len(paths) == 0 {
		return nil, &InvalidFileError{Name: "(none)", Reason: "no files given"}
	}

	files := make([]File, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := readFile(path, lang)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func readFile(path string, lang model.Language) (File, error) {
	name := filepath.Base(path)
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, &InvalidFileError{Name: name, Reason: "is a directory"}
	}
	if err := Validate(name, info.Size(), lang); err != nil {
		return File{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return File{Name: name, Data: data}, nil
}

// Sender delivers a batch to the service and returns its confirmation
// message. internal/api.Client implements it.
type Sender interface {
	UploadFiles(ctx context.Context, lang model.Language, files []File) (string, error)
}

// Send uploads files through s and reports progress to log.
func Send(ctx context.Context, s Sender, lang model.Language, files []File, log *otel.Logger) (string, error) {
	start := time.Now()
	log.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindUploadStart,
		Comp:  "upload",
		Count: len(files),
		Msg:   string(lang),
	})

	msg, err := s.UploadFiles(ctx, lang, files)
	if err != nil {
		log.Emit(otel.Event{
			Level: otel.LevelError,
			Kind:  otel.KindUploadError,
			Comp:  "upload",
			Count: len(files),
			Dur:   time.Since(start),
			Err:   err.Error(),
		})
		return "", err
	}

	log.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindUploadComplete,
		Comp:  "upload",
		Count: len(files),
		Dur:   time.Since(start),
		Msg:   msg,
	})
	return msg, nil
}
