package vision

// Config holds every tunable of the keyframe extraction pipeline. Defaults
// match the behavior the downstream classifier was calibrated against; change
// them only together with the classifier prompts.
type Config struct {
	// MinDurationSeconds is a firm floor: below it there is no reliable
	// separation between setup, action and result phases.
	MinDurationSeconds float64
	// NominalDurationSeconds is assumed when the container reports fps as 0.
	NominalDurationSeconds float64

	// Lead/tail margins excluded from the analysis window.
	LeadMarginSeconds float64
	TailMarginSeconds float64
	MinWindowFrames   int

	// Canny thresholds for the edge-delta term of the motion score.
	CannyLowThreshold  float32
	CannyHighThreshold float32

	// Fractional positions of the pre-hold and final-state frames.
	EarlyFraction float64
	LateFraction  float64
	// Real-time offset of the pre/post-action frames around the peak.
	ActionOffsetSeconds float64

	// Quality thresholds and the local search radius for substitutes.
	MinSharpness        float64
	MinBrightness       float64
	MaxBrightness       float64
	SearchRadiusSeconds float64

	JPEGQuality int
}

func DefaultConfig() Config {
	return Config{
		MinDurationSeconds:     2.0,
		NominalDurationSeconds: 3.0,
		LeadMarginSeconds:      0.2,
		TailMarginSeconds:      0.3,
		MinWindowFrames:        5,
		CannyLowThreshold:      50,
		CannyHighThreshold:     150,
		EarlyFraction:          0.10,
		LateFraction:           0.90,
		ActionOffsetSeconds:    0.30,
		MinSharpness:           100,
		MinBrightness:          30,
		MaxBrightness:          220,
		SearchRadiusSeconds:    0.20,
		JPEGQuality:            90,
	}
}
