package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/chrimage/content-mill/internal/dialogue"
	"github.com/chrimage/content-mill/internal/render"
	"github.com/chrimage/content-mill/internal/script"
	"github.com/chrimage/content-mill/internal/services"
)

// Content is what the writing stage hands to rendering.
type Content struct {
	Title string
	Lines []render.Line
}

// TurnLines converts transcript turns into render lines.
func TurnLines(turns []dialogue.Turn) []render.Line {
	out := make([]render.Line, len(turns))
	for i, turn := range turns {
		out[i] = render.Line{
			Speaker:          turn.Speaker,
			Text:             strings.TrimSpace(turn.Content),
			ImageDescription: strings.TrimSpace(turn.ImageDescription),
		}
	}
	return out
}

// SegmentLines converts script segments into narrator-only render lines.
func SegmentLines(segments []script.Segment) []render.Line {
	out := make([]render.Line, len(segments))
	for i, seg := range segments {
		out[i] = render.Line{
			Text:             strings.TrimSpace(seg.Voiceover),
			ImageDescription: strings.TrimSpace(seg.ImageDescription),
		}
	}
	return out
}

// LoadContent reads a saved transcript or script. Scripts are recognized by
// their object form or by voiceover keys in a bare array.
func LoadContent(path string) (Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Content{}, services.Wrap(services.ErrNotFound, "load", "read content", path, err)
	}
	if isScript(data) {
		s, err := script.Load(path)
		if err != nil {
			return Content{}, services.Wrap(services.ErrValidation, "load", "decode script", "", err)
		}
		return Content{Title: s.Title, Lines: SegmentLines(s.Lines())}, nil
	}
	t, err := dialogue.LoadTranscript[dialogue.Turn](path)
	if err != nil {
		return Content{}, services.Wrap(services.ErrValidation, "load", "decode transcript", "", err)
	}
	lines := TurnLines(t.Lines())
	for i, line := range lines {
		if line.Text == "" {
			return Content{}, services.Wrap(services.ErrValidation, "load", "decode transcript",
				fmt.Sprintf("turn %d has no content", i), nil)
		}
	}
	return Content{Lines: lines}, nil
}

func isScript(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("{")) {
		return true
	}
	var probe []map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil || len(probe) == 0 {
		return false
	}
	_, ok := probe[0]["voiceover"]
	return ok
}
