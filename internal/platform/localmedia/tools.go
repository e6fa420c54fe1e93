package localmedia

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/mediarag-backend/internal/logger"
)

// Tools wraps the system binaries the media pipelines depend on.
//
// REQUIRED BINARIES in the processor runtime:
// - ffprobe for duration probing
// - ffmpeg for fixed-window segmentation and audio extraction
//
// Synchronous and deterministic; call from pipeline code, never from
// request handlers directly.
type Tools interface {
	AssertReady(ctx context.Context) error

	ProbeDurationSec(ctx context.Context, path string) (float64, error)
	ExtractSegment(ctx context.Context, inputPath, outPath string, startSec, lengthSec float64) error
	ExtractAudio(ctx context.Context, inputPath, outPath string, opts AudioExtractOptions) error

	// For callers who only have bytes:
	WriteTempFile(ctx context.Context, data []byte, suffix string) (string, func(), error)
	MakeWorkDir(prefix string) (string, func(), error)
}

type AudioExtractOptions struct {
	SampleRateHz int
	Channels     int
	Format       string // "wav" or "flac"
}

type tools struct {
	log *logger.Logger

	ffmpegPath  string
	ffprobePath string

	workRoot string

	defaultTimeout time.Duration
}

func New(log *logger.Logger) Tools {
	return &tools{
		log:            log.With("service", "MediaTools"),
		ffmpegPath:     "ffmpeg",
		ffprobePath:    "ffprobe",
		workRoot:       "/tmp/mediarag-media",
		defaultTimeout: 10 * time.Minute,
	}
}

func (m *tools) AssertReady(ctx context.Context) error {
	for _, bin := range []string{m.ffmpegPath, m.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

func (m *tools) WriteTempFile(ctx context.Context, data []byte, suffix string) (string, func(), error) {
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir workRoot: %w", err)
	}
	h := sha256.Sum256(data)
	base := hex.EncodeToString(h[:])[:16]
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	path := filepath.Join(m.workRoot, fmt.Sprintf("%s%s", base, suffix))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", func() {}, fmt.Errorf("write temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(path) }
	return path, cleanup, nil
}

func (m *tools) MakeWorkDir(prefix string) (string, func(), error) {
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir workRoot: %w", err)
	}
	dir, err := os.MkdirTemp(m.workRoot, prefix+"-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("mkdir work dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	return dir, cleanup, nil
}

func (m *tools) ProbeDurationSec(ctx context.Context, path string) (float64, error) {
	if path == "" {
		return 0, fmt.Errorf("path required")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w; out=%s", err, string(out))
	}
	raw := strings.TrimSpace(string(out))
	dur, err := strconv.ParseFloat(raw, 64)
	if err != nil || dur < 0 {
		return 0, fmt.Errorf("ffprobe returned unusable duration %q", raw)
	}
	return dur, nil
}

// ExtractSegment copies [startSec, startSec+lengthSec) into outPath without
// re-encoding. Stream copy keeps segmentation cheap; accuracy at segment
// boundaries is keyframe-granular, which is acceptable for transcription and
// description windows.
func (m *tools) ExtractSegment(ctx context.Context, inputPath, outPath string, startSec, lengthSec float64) error {
	if inputPath == "" || outPath == "" {
		return fmt.Errorf("inputPath and outPath required")
	}
	if lengthSec <= 0 {
		return fmt.Errorf("lengthSec must be > 0")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("mkdir outPath dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffmpegPath,
		"-y",
		"-ss", strconv.FormatFloat(startSec, 'f', 3, 64),
		"-i", inputPath,
		"-t", strconv.FormatFloat(lengthSec, 'f', 3, 64),
		"-c", "copy",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg segment failed: %w; out=%s", err, string(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("segment output missing at %s", outPath)
	}
	return nil
}

func (m *tools) ExtractAudio(ctx context.Context, inputPath, outPath string, opts AudioExtractOptions) error {
	if inputPath == "" || outPath == "" {
		return fmt.Errorf("inputPath and outPath required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("mkdir outPath dir: %w", err)
	}

	sr := opts.SampleRateHz
	if sr <= 0 {
		sr = 16000
	}
	ch := opts.Channels
	if ch <= 0 {
		ch = 1
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "wav"
	}
	if format != "wav" && format != "flac" {
		return fmt.Errorf("unsupported audio format: %s", format)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffmpegPath,
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", strconv.Itoa(ch),
		"-ar", strconv.Itoa(sr),
		"-f", format,
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio failed: %w; out=%s", err, string(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("audio output missing at %s", outPath)
	}
	return nil
}
