package context

import (
	"github.com/congde/emochat/internal/shortterm"
)

// EstimateSize computes the weighted character footprint of a bundle,
// summed recursively over all fields. Compacted payloads contribute only
// their preview.
func EstimateSize(b *Bundle) float64 {
	if b == nil {
		return 0
	}
	size := shortterm.TextWeight(b.Profile) +
		shortterm.TextWeight(b.Message) +
		shortterm.TextWeight(b.EmotionTrend)

	for _, t := range b.Turns {
		size += shortterm.TextWeight(t.Role) +
			shortterm.TextWeight(t.Content) +
			shortterm.TextWeight(t.Emotion)
	}
	for _, m := range b.Memories {
		size += shortterm.TextWeight(m.Content) + shortterm.TextWeight(m.Type)
	}
	for _, p := range b.ToolPayloads {
		size += shortterm.TextWeight(p.Name)
		if p.Compacted != nil {
			size += shortterm.TextWeight(p.Compacted.Preview) +
				shortterm.TextWeight(p.Compacted.StoragePath)
		} else {
			size += shortterm.TextWeight(p.Content)
		}
	}
	if s := b.Synopsis; s != nil {
		for _, group := range [][]string{s.Topics, s.Goals, s.Decisions, s.Unresolved} {
			for _, item := range group {
				size += shortterm.TextWeight(item)
			}
		}
		size += shortterm.TextWeight(s.EmotionArc) + shortterm.TextWeight(s.LastStop)
	}
	return size
}
