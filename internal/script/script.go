package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/chrimage/content-mill/internal/fileutil"
)

// Kind names a script-driven video format.
type Kind string

const (
	KindExplainer Kind = "explainer"
	KindListicle  Kind = "listicle"
	KindHaiku     Kind = "haiku"
	KindScripted  Kind = "scripted"
	KindLong      Kind = "long"
)

// Segment is one narrated still: the line read aloud and the image shown while
// it plays.
type Segment struct {
	Voiceover        string `json:"voiceover" jsonschema:"minLength=1,pattern=\\S" jsonschema_description:"Narration read aloud for this segment."`
	ImageDescription string `json:"image_description" jsonschema:"minLength=1,pattern=\\S" jsonschema_description:"Self-contained description of the image shown during the narration."`
}

// Script is a titled, ordered list of segments.
type Script struct {
	Title    string    `json:"title" jsonschema:"minLength=1,pattern=\\S"`
	Segments []Segment `json:"script" jsonschema:"minItems=1"`
}

// Save writes the script as indented JSON.
func (s Script) Save(path string) error {
	return saveJSON(path, s)
}

// Load reads a saved script. A bare segment array is accepted as well, with
// the title left empty.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var segments []Segment
		if err := json.Unmarshal(trimmed, &segments); err != nil {
			return Script{}, fmt.Errorf("decode script %s: %w", path, err)
		}
		return Script{Segments: segments}, nil
	}
	var s Script
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return Script{}, fmt.Errorf("decode script %s: %w", path, err)
	}
	return s, nil
}

// OutlineItem is one writable unit of a long video.
type OutlineItem struct {
	Title         string `json:"title" jsonschema:"minLength=1"`
	WritingPrompt string `json:"writing_prompt" jsonschema:"minLength=1"`
}

// OutlineSection is either a writable unit itself or a heading over items.
type OutlineSection struct {
	Title         string        `json:"title" jsonschema:"minLength=1"`
	WritingPrompt string        `json:"writing_prompt,omitempty"`
	Items         []OutlineItem `json:"items,omitempty"`
}

// Outline is the plan of a long video.
type Outline struct {
	Title    string           `json:"title" jsonschema:"minLength=1,pattern=\\S"`
	Sections []OutlineSection `json:"sections" jsonschema:"minItems=1"`
}

// Flatten lists the writable units in order. Sections with items contribute
// one unit per item titled "Section - Item".
func (o Outline) Flatten() []OutlineItem {
	var out []OutlineItem
	for _, section := range o.Sections {
		if len(section.Items) == 0 {
			out = append(out, OutlineItem{Title: section.Title, WritingPrompt: section.WritingPrompt})
			continue
		}
		for _, item := range section.Items {
			out = append(out, OutlineItem{
				Title:         section.Title + " - " + item.Title,
				WritingPrompt: item.WritingPrompt,
			})
		}
	}
	return out
}

// Save writes the outline as indented JSON.
func (o Outline) Save(path string) error {
	return saveJSON(path, o)
}

func saveJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := fileutil.WriteAtomic(path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Lines returns voiceover/image pairs with surrounding whitespace removed.
func (s Script) Lines() []Segment {
	out := make([]Segment, len(s.Segments))
	for i, seg := range s.Segments {
		out[i] = Segment{
			Voiceover:        strings.TrimSpace(seg.Voiceover),
			ImageDescription: strings.TrimSpace(seg.ImageDescription),
		}
	}
	return out
}
