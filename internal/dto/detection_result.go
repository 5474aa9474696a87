package dto

// DetectionResult is a single object found in a frame by the vision model.
type DetectionResult struct {
	Label      string
	Confidence float64
	X          int
	Y          int
	Width      int
	Height     int
}
