package dto

import (
	"image"
	"time"
)

// Location is where an incident was observed.
type Location struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Text string  `json:"locationText,omitempty"`
}

// IncidentPayload is everything needed to report one incident. The frame is
// encoded by the dispatcher right before sending.
type IncidentPayload struct {
	Frame      image.Image
	Labels     []string
	Location   *Location
	CapturedAt time.Time
}

// NewIncidentPayload copies the sample's label set so the payload stays
// immutable once handed to the dispatcher.
func NewIncidentPayload(sample DetectionSample, location *Location) IncidentPayload {
	var loc *Location
	if location != nil {
		l := *location
		loc = &l
	}
	return IncidentPayload{
		Frame:      sample.Frame,
		Labels:     LabelSet(sample.Labels),
		Location:   loc,
		CapturedAt: sample.CapturedAt,
	}
}

// IncidentRequest is the JSON body accepted by the incident collector.
type IncidentRequest struct {
	Image        string   `json:"image"`
	Labels       []string `json:"labels"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
	LocationText string   `json:"locationText,omitempty"`
}
