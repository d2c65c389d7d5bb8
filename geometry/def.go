package geometry

// Joint indexes a keypoint inside a PersonPose (COCO order).
type Joint int

const (
	Nose Joint = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	NumJoints
)

var jointNames = [NumJoints]string{
	"nose", "left_eye", "right_eye", "left_ear", "right_ear",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_hip", "right_hip",
	"left_knee", "right_knee", "left_ankle", "right_ankle",
}

func (j Joint) String() string {
	if j < 0 || j >= NumJoints {
		return "invalid"
	}
	return jointNames[j]
}

// Limbs pairs joints that are joined by a skeleton line.
var Limbs = [][2]Joint{
	{LeftAnkle, LeftKnee}, {LeftKnee, LeftHip},
	{RightAnkle, RightKnee}, {RightKnee, RightHip},
	{LeftHip, RightHip},
	{LeftShoulder, LeftHip}, {RightShoulder, RightHip},
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow}, {LeftElbow, LeftWrist},
	{RightShoulder, RightElbow}, {RightElbow, RightWrist},
	{LeftEye, RightEye}, {Nose, LeftEye}, {Nose, RightEye},
	{LeftEye, LeftEar}, {RightEye, RightEar},
}

type Keypoint struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Confidence float32 `json:"confidence"`
}

// PersonPose holds one person's keypoints indexed by Joint. A well-formed pose has
// NumJoints entries; joints past the end of a short slice are treated as absent.
type PersonPose []Keypoint

// At returns the keypoint for j and whether the slot exists.
func (p PersonPose) At(j Joint) (Keypoint, bool) {
	if j < 0 || int(j) >= len(p) {
		return Keypoint{}, false
	}
	return p[j], true
}

// Reliable returns the keypoint for j when it exists with at least minConfidence.
func (p PersonPose) Reliable(j Joint, minConfidence float32) (Keypoint, bool) {
	kp, ok := p.At(j)
	if !ok || kp.Confidence < minConfidence {
		return Keypoint{}, false
	}
	return kp, true
}

type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

type Posture int

const (
	PostureUnknown Posture = iota
	PostureStanding
	PostureSitting
)

func (p Posture) String() string {
	switch p {
	case PostureStanding:
		return "standing"
	case PostureSitting:
		return "sitting"
	default:
		return "unknown"
	}
}

// Thresholds are empirical; none of them has been calibrated against real posture data.
type Thresholds struct {
	ArmGap             int     `yaml:"armGap" json:"armGap"`
	ArmConfidence      float32 `yaml:"armConfidence" json:"armConfidence"`
	StandingRatio      float64 `yaml:"standingRatio" json:"standingRatio"`
	StandingConfidence float32 `yaml:"standingConfidence" json:"standingConfidence"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		ArmGap:             0,
		ArmConfidence:      0.7,
		StandingRatio:      0.5,
		StandingConfidence: 0.7,
	}
}

// PersonReport is the per-person, per-frame judgment.
type PersonReport struct {
	Raised   []Side  `json:"raised"`
	Standing bool    `json:"standing"`
	Posture  Posture `json:"posture"`
}
