package dto

import (
	"image"
	"sort"
	"time"
)

// DetectionSample is one observation from the detection source: the label set
// found in a frame, when the frame was captured, and the frame itself.
type DetectionSample struct {
	Labels     []string
	Detections []DetectionResult
	CapturedAt time.Time
	Frame      image.Image
}

// NewDetectionSample builds a sample whose label set is derived from the
// detections.
func NewDetectionSample(frame image.Image, capturedAt time.Time, detections []DetectionResult) DetectionSample {
	labels := make([]string, 0, len(detections))
	for _, d := range detections {
		labels = append(labels, d.Label)
	}
	return DetectionSample{
		Labels:     LabelSet(labels),
		Detections: detections,
		CapturedAt: capturedAt,
		Frame:      frame,
	}
}

// HasLabels reports whether anything was detected.
func (s DetectionSample) HasLabels() bool {
	return len(s.Labels) > 0
}

// LabelSet deduplicates labels and sorts them. Empty strings are dropped.
func LabelSet(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	set := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		set = append(set, l)
	}
	sort.Strings(set)
	return set
}
