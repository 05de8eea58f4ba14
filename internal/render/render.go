package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chrimage/content-mill/internal/fileutil"
	"github.com/chrimage/content-mill/internal/logging"
	"github.com/chrimage/content-mill/internal/services"
	"github.com/chrimage/content-mill/internal/services/synth"
)

const (
	// AudioExt is the extension of rendered narration clips.
	AudioExt = ".mp3"
	// ImageExt is the extension of rendered stills.
	ImageExt = ".png"
)

// Line is one unit to render: a narration and the still shown with it.
type Line struct {
	Speaker          string
	Text             string
	ImageDescription string
}

// ImagePrompt is the prompt sent for the line's still. Lines without a
// description fall back to depicting the speaker saying the text.
func (l Line) ImagePrompt() string {
	if desc := strings.TrimSpace(l.ImageDescription); desc != "" {
		return desc
	}
	if l.Speaker != "" {
		return fmt.Sprintf("Image of %s saying: %s", l.Speaker, l.Text)
	}
	return l.Text
}

// Narrator synthesizes one narration clip.
type Narrator interface {
	Speech(ctx context.Context, text string, voice synth.Voice, dest string) error
}

// Renderer turns lines into numbered audio clips and stills in a directory.
type Renderer struct {
	Narrator  Narrator
	Painter   Painter
	Rephraser Rephraser
	// Refused classifies image failures caused by the prompt itself. Only
	// those are rephrased; other failures retry the same prompt. A nil
	// Refused rephrases after every failure.
	Refused     func(error) bool
	Voices      VoicePolicy
	MaxAttempts int
	// FillGaps copies a neighbouring still into slots whose image was skipped
	// so that image and audio indexes stay aligned for assembly.
	FillGaps bool
	// Resume keeps clips and stills that already exist instead of
	// regenerating them.
	Resume bool
	Logger *slog.Logger
	// OnLine, when set, observes each line before it is rendered.
	OnLine func(index, total int, line Line)
}

// Report summarizes a render.
type Report struct {
	Clips   int
	Images  int
	Skipped []int
	Filled  []int
	Reused  int
}

// Render writes NNN.mp3 and NNN.png for every line. A narration failure
// aborts the render; an image that still fails after the retry budget is
// skipped with a warning.
func (r *Renderer) Render(ctx context.Context, dir string, lines []Line) (Report, error) {
	var report Report
	logger := logging.NewComponentLogger(r.Logger, "render")
	if len(lines) == 0 {
		return report, services.Wrap(services.ErrValidation, "render", "render", "nothing to render", nil)
	}
	if r.Narrator == nil || r.Painter == nil {
		return report, services.Wrap(services.ErrConfiguration, "render", "render", "narrator and painter required", nil)
	}
	voices := r.Voices
	if voices == nil {
		voices = FixedVoice(synth.VoiceAlloy)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return report, fmt.Errorf("render: create %s: %w", dir, err)
	}
	loop := imageLoop{painter: r.Painter, rephraser: r.Rephraser, refused: r.Refused, maxAttempts: r.MaxAttempts, logger: logger}

	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if r.OnLine != nil {
			r.OnLine(i, len(lines), line)
		}

		audioPath := filepath.Join(dir, IndexName(i, len(lines), AudioExt))
		if r.Resume && fileutil.NonEmpty(audioPath) {
			report.Reused++
		} else {
			voice := voices.Voice(i, line)
			if err := r.Narrator.Speech(ctx, line.Text, voice, audioPath); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return report, ctxErr
				}
				return report, services.Wrap(services.ErrSynthesis, "render", fmt.Sprintf("speech %d (%s)", i, line.Speaker), "", err)
			}
			logger.Debug("clip written", logging.Args(append(logging.Turn(i, line.Speaker), logging.String("voice", string(voice)))...)...)
		}
		report.Clips++

		imagePath := filepath.Join(dir, IndexName(i, len(lines), ImageExt))
		if r.Resume && fileutil.NonEmpty(imagePath) {
			report.Reused++
			report.Images++
			continue
		}
		result, err := loop.run(ctx, i, line.ImagePrompt(), imagePath)
		if err != nil {
			return report, err
		}
		if result.Skipped {
			report.Skipped = append(report.Skipped, i)
			logging.WarnWithContext(logger, "image skipped after retries", "image_skipped",
				append(logging.Turn(i, line.Speaker),
					logging.Int("attempts", result.Attempts),
					logging.Error(services.Wrap(services.ErrSynthesis, "render", fmt.Sprintf("image %d", i), "", result.Err)),
					logging.String(logging.FieldErrorHint, "rephrase the image description or rerun with --resume"),
					logging.String(logging.FieldImpact, "segment has no generated image"),
				)...)
			continue
		}
		report.Images++
	}

	if r.FillGaps && len(report.Skipped) > 0 {
		filled, err := fillGaps(dir, len(lines), report.Skipped)
		if err != nil {
			return report, err
		}
		report.Filled = filled
		if len(filled) < len(report.Skipped) {
			logging.WarnWithContext(logger, "no image available to fill gaps", "image_gap_unfilled",
				logging.Int("skipped", len(report.Skipped)),
				logging.String(logging.FieldErrorHint, "every image failed; check the image provider"),
				logging.String(logging.FieldImpact, "assembly will pair fewer segments than clips"),
			)
		}
	}
	logger.Info("render complete",
		logging.Int("clips", report.Clips),
		logging.Int("images", report.Images),
		logging.Int("skipped", len(report.Skipped)),
		logging.Int("filled", len(report.Filled)),
		logging.Int("reused", report.Reused),
	)
	return report, nil
}

// IndexName returns the zero-padded file name for index i of total. The
// width grows past three digits only when needed, so lexicographic order
// always matches numeric order.
func IndexName(i, total int, ext string) string {
	width := 3
	if total > 0 {
		if w := len(strconv.Itoa(total - 1)); w > width {
			width = w
		}
	}
	return fmt.Sprintf("%0*d%s", width, i, ext)
}

// fillGaps copies the nearest earlier still into each skipped slot, or the
// nearest later one when no earlier still exists.
func fillGaps(dir string, total int, skipped []int) ([]int, error) {
	missing := make(map[int]bool, len(skipped))
	for _, i := range skipped {
		missing[i] = true
	}
	var filled []int
	for _, i := range skipped {
		src := -1
		for j := i - 1; j >= 0; j-- {
			if !missing[j] {
				src = j
				break
			}
		}
		if src < 0 {
			for j := i + 1; j < total; j++ {
				if !missing[j] {
					src = j
					break
				}
			}
		}
		if src < 0 {
			continue
		}
		from := filepath.Join(dir, IndexName(src, total, ImageExt))
		to := filepath.Join(dir, IndexName(i, total, ImageExt))
		if err := fileutil.CopyFile(from, to); err != nil {
			return filled, fmt.Errorf("fill image gap %d from %d: %w", i, src, err)
		}
		filled = append(filled, i)
	}
	return filled, nil
}
