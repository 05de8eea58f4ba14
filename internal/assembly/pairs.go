package assembly

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}
	audioExts = map[string]bool{".mp3": true, ".wav": true, ".m4a": true, ".aac": true, ".ogg": true}
)

// Pair is one still and the narration clip it is shown for.
type Pair struct {
	Index int
	Image string
	Audio string
}

// Plan is the positional pairing of a clip directory.
type Plan struct {
	Pairs  []Pair
	Images int
	Audio  int
}

// Mismatched reports whether one list was longer than the other.
func (p Plan) Mismatched() bool {
	return p.Images != p.Audio
}

// Discover lists stills and clips in dir, sorts each by file name, and pairs
// them by position up to the shorter list.
func Discover(dir string) (Plan, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Plan{}, fmt.Errorf("list clips: %w", err)
	}
	var images, audio []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		switch {
		case imageExts[ext]:
			images = append(images, name)
		case audioExts[ext]:
			audio = append(audio, name)
		}
	}
	sort.Strings(images)
	sort.Strings(audio)

	n := min(len(images), len(audio))
	plan := Plan{Pairs: make([]Pair, 0, n), Images: len(images), Audio: len(audio)}
	for i := 0; i < n; i++ {
		plan.Pairs = append(plan.Pairs, Pair{
			Index: i,
			Image: filepath.Join(dir, images[i]),
			Audio: filepath.Join(dir, audio[i]),
		})
	}
	return plan, nil
}
