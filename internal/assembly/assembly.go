package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chrimage/content-mill/internal/logging"
	"github.com/chrimage/content-mill/internal/media/ffprobe"
	"github.com/chrimage/content-mill/internal/services"
)

var commandContext = exec.CommandContext

// Config selects the binaries and encoding settings.
type Config struct {
	FFmpegBinary  string
	FFprobeBinary string
	FPS           int
	VideoCodec    string
	AudioCodec    string
}

// Assembler turns a clip directory into one video.
type Assembler struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs an Assembler, filling unset fields with defaults.
func New(cfg Config, logger *slog.Logger) *Assembler {
	if strings.TrimSpace(cfg.FFmpegBinary) == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(cfg.FFprobeBinary) == "" {
		cfg.FFprobeBinary = "ffprobe"
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 24
	}
	if strings.TrimSpace(cfg.VideoCodec) == "" {
		cfg.VideoCodec = "libx264"
	}
	if strings.TrimSpace(cfg.AudioCodec) == "" {
		cfg.AudioCodec = "aac"
	}
	return &Assembler{cfg: cfg, logger: logging.NewComponentLogger(logger, "assembly")}
}

// Segment describes one rendered segment of the output.
type Segment struct {
	Pair
	Duration float64
}

// Result summarizes an assembly.
type Result struct {
	Output   string
	Segments []Segment
	Width    int
	Height   int
	// Duration is the sum of the segment durations in seconds.
	Duration float64
}

// Assemble pairs the stills and clips in dir, holds each still for the length
// of its clip, and concatenates the segments into output at the configured
// frame rate. Intermediate files are removed on every exit path and output
// only appears once the final encode has succeeded.
func (a *Assembler) Assemble(ctx context.Context, dir, output string) (Result, error) {
	result := Result{Output: output}
	plan, err := Discover(dir)
	if err != nil {
		return result, services.Wrap(services.ErrValidation, "assemble", "discover", dir, err)
	}
	if len(plan.Pairs) == 0 {
		return result, services.Wrap(services.ErrValidation, "assemble", "discover",
			fmt.Sprintf("no image/audio pairs in %s (%d images, %d clips)", dir, plan.Images, plan.Audio), nil)
	}
	if plan.Mismatched() {
		logging.WarnWithContext(a.logger, "image and clip counts differ; pairing the shorter list", "clip_count_mismatch",
			logging.Int("images", plan.Images),
			logging.Int("clips", plan.Audio),
			logging.Int("pairs", len(plan.Pairs)),
			logging.String(logging.FieldErrorHint, "rerun rendering with --resume to regenerate missing files"),
			logging.String(logging.FieldImpact, "trailing files without a partner are left out of the video"),
		)
	}

	width, height, err := a.frameSize(ctx, plan.Pairs[0].Image)
	if err != nil {
		return result, err
	}
	result.Width, result.Height = width, height

	for _, pair := range plan.Pairs {
		duration, err := a.clipDuration(ctx, pair.Audio)
		if err != nil {
			return result, err
		}
		result.Segments = append(result.Segments, Segment{Pair: pair, Duration: duration})
		result.Duration += duration
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return result, fmt.Errorf("assemble: create output dir: %w", err)
	}
	workDir, err := os.MkdirTemp(filepath.Dir(output), ".segments-*")
	if err != nil {
		return result, fmt.Errorf("assemble: create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	segmentPaths := make([]string, 0, len(result.Segments))
	for _, seg := range result.Segments {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		path := filepath.Join(workDir, fmt.Sprintf("segment_%05d.mp4", seg.Index))
		if err := a.run(ctx, a.segmentArgs(seg, width, height, path)); err != nil {
			return result, services.Wrap(services.ErrExternalTool, "assemble", fmt.Sprintf("segment %d", seg.Index), filepath.Base(seg.Image), err)
		}
		segmentPaths = append(segmentPaths, path)
		a.logger.Debug("segment rendered",
			logging.Int(logging.FieldTurnIndex, seg.Index),
			logging.Float64("duration_seconds", seg.Duration),
		)
	}

	listPath := filepath.Join(workDir, "segments.txt")
	if err := writeConcatList(listPath, segmentPaths); err != nil {
		return result, err
	}

	partial := output + ".partial"
	defer os.Remove(partial)
	if err := a.run(ctx, a.concatArgs(listPath, partial, containerFormat(output))); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "assemble", "concat", "", err)
	}
	if err := os.Rename(partial, output); err != nil {
		return result, fmt.Errorf("assemble: finalize %s: %w", output, err)
	}
	a.logger.Info("video assembled",
		logging.String("output", output),
		logging.Int("segments", len(result.Segments)),
		logging.Float64("duration_seconds", math.Round(result.Duration*100)/100),
		logging.String("frame", fmt.Sprintf("%dx%d", width, height)),
	)
	return result, nil
}

func (a *Assembler) frameSize(ctx context.Context, image string) (int, int, error) {
	probe, err := ffprobe.Inspect(ctx, a.cfg.FFprobeBinary, image)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrExternalTool, "assemble", "probe image", filepath.Base(image), err)
	}
	w, h, ok := probe.Dimensions()
	if !ok {
		return 0, 0, services.Wrap(services.ErrExternalTool, "assemble", "probe image", filepath.Base(image)+": no dimensions reported", nil)
	}
	return even(w), even(h), nil
}

func (a *Assembler) clipDuration(ctx context.Context, audio string) (float64, error) {
	probe, err := ffprobe.Inspect(ctx, a.cfg.FFprobeBinary, audio)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "assemble", "probe clip", filepath.Base(audio), err)
	}
	d := probe.DurationSeconds()
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, services.Wrap(services.ErrExternalTool, "assemble", "probe clip", fmt.Sprintf("%s: unusable duration %v", filepath.Base(audio), d), nil)
	}
	return d, nil
}

func (a *Assembler) segmentArgs(seg Segment, width, height int, dest string) []string {
	fps := strconv.Itoa(a.cfg.FPS)
	filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,format=yuv420p",
		width, height, width, height)
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-loop", "1",
		"-framerate", fps,
		"-i", seg.Image,
		"-i", seg.Audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-t", strconv.FormatFloat(seg.Duration, 'f', 3, 64),
		"-vf", filter,
		"-r", fps,
		"-c:v", a.cfg.VideoCodec,
		"-tune", "stillimage",
		"-c:a", a.cfg.AudioCodec,
		"-ar", "44100",
		"-ac", "2",
		dest,
	}
}

func (a *Assembler) concatArgs(listPath, dest, format string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-r", strconv.Itoa(a.cfg.FPS),
		"-c:v", a.cfg.VideoCodec,
		"-pix_fmt", "yuv420p",
		"-c:a", a.cfg.AudioCodec,
		"-movflags", "+faststart",
		"-f", format,
		dest,
	}
}

func (a *Assembler) run(ctx context.Context, args []string) error {
	cmd := commandContext(ctx, a.cfg.FFmpegBinary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(ctxErr, err)
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func writeConcatList(path string, segments []string) error {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(seg, "'", `'\''`))
		b.WriteString("'\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("assemble: write concat list: %w", err)
	}
	return nil
}

func containerFormat(output string) string {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".mov":
		return "mov"
	case ".mkv":
		return "matroska"
	default:
		return "mp4"
	}
}

func even(v int) int {
	if v%2 != 0 {
		return v + 1
	}
	return v
}
