package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chrimage/content-mill/internal/logging"
	"github.com/chrimage/content-mill/internal/schema"
	"github.com/chrimage/content-mill/internal/services"
	"github.com/chrimage/content-mill/internal/services/llm"
)

type sectionReply struct {
	Section []Segment `json:"section" jsonschema:"minItems=1"`
}

var (
	scriptSchema  = schema.MustNew[Script]("script.schema.json")
	outlineSchema = schema.MustNew[Outline]("outline.schema.json")
	sectionSchema = schema.MustNew[sectionReply]("section.schema.json")
)

// Completer is the slice of the llm client the writer uses.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Writer asks the language model for scripts and outlines.
type Writer struct {
	Client      Completer
	Model       string
	Temperature float64
	Logger      *slog.Logger
}

func (w *Writer) logger() *slog.Logger {
	return logging.NewComponentLogger(w.Logger, "script")
}

// Write produces a script of the given kind about topic. Only the one-shot
// kinds (explainer, listicle, haiku) are accepted.
func (w *Writer) Write(ctx context.Context, kind Kind, topic string) (Script, error) {
	system, ok := systemPrompts[kind]
	if !ok {
		return Script{}, services.Wrap(services.ErrValidation, "", "write script", fmt.Sprintf("kind %q is not a one-shot script", kind), nil)
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Script{}, services.Wrap(services.ErrValidation, "", "write script", "topic required", nil)
	}
	s, err := complete(ctx, w, scriptSchema, system, fmt.Sprintf(userPrompts[kind], topic), w.Temperature)
	if err != nil {
		return Script{}, fmt.Errorf("write %s: %w", kind, err)
	}
	w.logger().Info("script written",
		logging.String("kind", string(kind)),
		logging.String("title", s.Title),
		logging.Int("segments", len(s.Segments)),
	)
	return s, nil
}

// Revise turns an operator draft into a structured script.
func (w *Writer) Revise(ctx context.Context, draft string) (Script, error) {
	draft = strings.TrimSpace(draft)
	if draft == "" {
		return Script{}, services.Wrap(services.ErrValidation, "", "revise script", "draft is empty", nil)
	}
	s, err := complete(ctx, w, scriptSchema, reviseSystem, "Write a revised version of this script:\n\n"+draft, w.Temperature)
	if err != nil {
		return Script{}, fmt.Errorf("revise draft: %w", err)
	}
	w.logger().Info("draft revised", logging.String("title", s.Title), logging.Int("segments", len(s.Segments)))
	return s, nil
}

// Outline plans a long video about topic.
func (w *Writer) Outline(ctx context.Context, topic string) (Outline, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Outline{}, services.Wrap(services.ErrValidation, "", "outline", "topic required", nil)
	}
	o, err := complete(ctx, w, outlineSchema, outlineSystem, fmt.Sprintf("Write an outline for a video about '%s'.", topic), outlineTemperature)
	if err != nil {
		return Outline{}, fmt.Errorf("outline: %w", err)
	}
	for i, unit := range o.Flatten() {
		if strings.TrimSpace(unit.WritingPrompt) == "" {
			return Outline{}, services.Wrap(services.ErrMalformedResponse, "", "outline", fmt.Sprintf("section %d (%s) has no writing prompt", i, unit.Title), nil)
		}
	}
	w.logger().Info("outline written", logging.String("title", o.Title), logging.Int("sections", len(o.Sections)))
	return o, nil
}

// Expand writes every outline unit in order, feeding each request the script
// written so far. onUnit, when set, observes each unit before it is written.
func (w *Writer) Expand(ctx context.Context, outline Outline, onUnit func(index, total int, unit OutlineItem)) (Script, error) {
	units := outline.Flatten()
	if len(units) == 0 {
		return Script{}, services.Wrap(services.ErrValidation, "", "expand outline", "outline has no sections", nil)
	}
	result := Script{Title: outline.Title}
	for i, unit := range units {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if onUnit != nil {
			onUnit(i, len(units), unit)
		}
		soFar, err := json.Marshal(result.Segments)
		if err != nil {
			return result, fmt.Errorf("encode script so far: %w", err)
		}
		next, err := json.Marshal(unit)
		if err != nil {
			return result, fmt.Errorf("encode section: %w", err)
		}
		user := fmt.Sprintf("Video Title: %s\n\nHere's the script so far: %s\n\nThe next section to write is: %s", outline.Title, soFar, next)
		reply, err := complete(ctx, w, sectionSchema, sectionSystem, user, sectionTemperature)
		if err != nil {
			return result, fmt.Errorf("expand section %d (%s): %w", i, unit.Title, err)
		}
		result.Segments = append(result.Segments, reply.Section...)
		w.logger().Info("section written",
			logging.String("section", unit.Title),
			logging.Int("segments", len(reply.Section)),
			logging.Int("total_segments", len(result.Segments)),
		)
	}
	return result, nil
}

func complete[T any](ctx context.Context, w *Writer, v *schema.Validator[T], system, user string, temperature float64) (T, error) {
	var zero T
	if w.Client == nil {
		return zero, services.Wrap(services.ErrConfiguration, "", "script", "llm client required", nil)
	}
	raw, err := w.Client.Complete(ctx, llm.Request{
		Model:       w.Model,
		Temperature: temperature,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system + "\n\nThe JSON object must satisfy this JSON Schema:\n" + v.Document()},
			{Role: llm.RoleUser, Content: user},
		},
	})
	if err != nil {
		return zero, err
	}
	return v.Decode(raw)
}
