package entity

// KeyframeRole identifies one of the five fixed positions in a keyframe set.
// The F1..F5 ordering is a contract with the downstream classifier: its
// prompts assume F1 shows the item still held, F3 the disposal action and F5
// the final state. Never reorder.
type KeyframeRole string

const (
	RolePreHold    KeyframeRole = "f1_pre_hold"
	RolePreAction  KeyframeRole = "f2_pre_action"
	RoleAction     KeyframeRole = "f3_action"
	RolePostAction KeyframeRole = "f4_post_action"
	RoleFinalState KeyframeRole = "f5_final_state"
)

// KeyframeRoles returns the five roles in their contractual order.
func KeyframeRoles() [5]KeyframeRole {
	return [5]KeyframeRole{RolePreHold, RolePreAction, RoleAction, RolePostAction, RoleFinalState}
}

// FrameQualityReport holds the focus/exposure measurements for one selected
// frame. Passed is false when neither the original target nor any frame in
// the local search radius met both thresholds.
type FrameQualityReport struct {
	Sharpness  float64 `json:"sharpness"`
	Brightness float64 `json:"brightness"`
	Passed     bool    `json:"passed"`
}

// Keyframe is one selected frame. WindowPosition is relative to the analysis
// window, FrameIndex is absolute within the decoded video.
type Keyframe struct {
	Role           KeyframeRole
	WindowPosition int
	FrameIndex     int
	JPEG           []byte
	Quality        FrameQualityReport
}

// KeyframeSet is the sole output of the extraction pipeline: exactly five
// frames in F1..F5 order plus the diagnostics needed to reproduce the
// selection without re-decoding the video.
type KeyframeSet struct {
	Frames []Keyframe

	FPS                float64
	DurationSeconds    float64
	TotalFrames        int
	WindowStart        int
	WindowLength       int
	PeakWindowPosition int
	PeakScore          float64
}

// QualityPassedCount reports how many of the five frames met both quality
// thresholds.
func (s *KeyframeSet) QualityPassedCount() int {
	n := 0
	for _, f := range s.Frames {
		if f.Quality.Passed {
			n++
		}
	}
	return n
}
