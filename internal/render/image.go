package render

import (
	"context"
	"log/slog"

	"github.com/chrimage/content-mill/internal/logging"
)

// Painter generates one still image for a prompt.
type Painter interface {
	Image(ctx context.Context, prompt, dest string) (string, error)
}

type imageState int

const (
	imageAttempt imageState = iota
	imageRephrase
	imageGiveUp
)

// ImageResult reports how an image slot was resolved.
type ImageResult struct {
	// Prompt is the last prompt sent to the generator.
	Prompt   string
	Attempts int
	Skipped  bool
	// Err is the final generator failure when Skipped is set.
	Err error
}

// imageLoop runs Attempt, then on failure Rephrase and Attempt again, until
// an attempt succeeds or maxAttempts attempts have failed. A failure that
// refused does not blame on the prompt goes straight back to Attempt. Only
// context cancellation is returned as an error; exhausting attempts skips
// the image.
type imageLoop struct {
	painter     Painter
	rephraser   Rephraser
	refused     func(error) bool
	maxAttempts int
	logger      *slog.Logger
}

func (l imageLoop) run(ctx context.Context, index int, prompt, dest string) (ImageResult, error) {
	result := ImageResult{Prompt: prompt}
	maxAttempts := l.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	state := imageAttempt
	for {
		switch state {
		case imageAttempt:
			result.Attempts++
			_, err := l.painter.Image(ctx, result.Prompt, dest)
			if err == nil {
				result.Err = nil
				return result, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.Err = err
			l.logger.Info("image attempt failed",
				logging.Args(append(logging.Turn(index, ""),
					logging.Int("attempt", result.Attempts),
					logging.Int("max_attempts", maxAttempts),
					logging.Error(err),
				)...)...)
			if result.Attempts >= maxAttempts {
				state = imageGiveUp
			} else {
				state = imageRephrase
			}

		case imageRephrase:
			state = imageAttempt
			if l.rephraser == nil {
				continue
			}
			if l.refused != nil && !l.refused(result.Err) {
				l.logger.Debug("image failure not caused by the prompt; retrying unchanged",
					logging.Args(logging.Turn(index, "")...)...)
				continue
			}
			rewritten, err := l.rephraser.Rephrase(ctx, result.Prompt, result.Err)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return result, ctxErr
				}
				l.logger.Info("image prompt rephrase failed; retrying original prompt",
					logging.Args(append(logging.Turn(index, ""), logging.Error(err))...)...)
				continue
			}
			l.logger.Debug("image prompt rephrased",
				logging.Args(append(logging.Turn(index, ""), logging.String("prompt", rewritten))...)...)
			result.Prompt = rewritten

		case imageGiveUp:
			result.Skipped = true
			return result, nil
		}
	}
}
