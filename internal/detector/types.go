package detector

// InferenceRequest is the body of a box detection request
type InferenceRequest struct {
	Model               string   `json:"model"`
	Image               string   `json:"image"` // Base64-encoded JPEG
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	EnabledClasses      []int    `json:"enabled_classes,omitempty"`
}

// BoundingBox is a detection as returned by the inference service
type BoundingBox struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
}

// InferenceResponse is the box detection response
type InferenceResponse struct {
	BoundingBoxes   []BoundingBox `json:"bounding_boxes"`
	InferenceTimeMs float64       `json:"inference_time_ms"`
	FrameShape      []int         `json:"frame_shape"` // [height, width]
	DetectionCount  int           `json:"detection_count"`
}

// PoseRequest is the body of a pose estimation request
type PoseRequest struct {
	Model                  string  `json:"model"`
	Image                  string  `json:"image"`
	MinDetectionConfidence float64 `json:"min_detection_confidence,omitempty"`
}

// Landmark is one body keypoint with coordinates normalized to [0, 1]
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// PoseResponse holds the 33 landmarks of the most prominent person, or
// none when nobody was found
type PoseResponse struct {
	Landmarks       []Landmark `json:"landmarks"`
	InferenceTimeMs float64    `json:"inference_time_ms"`
}

// errorResponse is the JSON error body of the inference service
type errorResponse struct {
	Detail string `json:"detail"`
}
