package geometry

// Image coordinates: y grows downwards, so "higher in the frame" means a smaller y.

func armJoints(side Side) (shoulder, wrist Joint, ok bool) {
	switch side {
	case Right:
		return RightShoulder, RightWrist, true
	case Left:
		return LeftShoulder, LeftWrist, true
	default:
		return 0, 0, false
	}
}

// ArmRaised reports whether the wrist on side is more than minGap pixels above the
// shoulder. Absent or low-confidence keypoints and unknown sides give false.
func ArmRaised(pose PersonPose, side Side, minGap int, minConfidence float32) bool {
	shoulderJ, wristJ, ok := armJoints(side)
	if !ok {
		return false
	}
	shoulder, ok := pose.Reliable(shoulderJ, minConfidence)
	if !ok {
		return false
	}
	wrist, ok := pose.Reliable(wristJ, minConfidence)
	if !ok {
		return false
	}
	return wrist.Y < shoulder.Y-minGap
}

var legJoints = [6]Joint{LeftShoulder, RightShoulder, LeftHip, RightHip, LeftKnee, RightKnee}

// extents returns the torso (shoulder->hip) and thigh (hip->knee) vertical extents,
// averaged over both sides. ok is false if any of the six keypoints is unreliable.
func extents(pose PersonPose, minConfidence float32) (trunk, upperLeg float64, ok bool) {
	var kp [len(legJoints)]Keypoint
	for i, j := range legJoints {
		k, reliable := pose.Reliable(j, minConfidence)
		if !reliable {
			return 0, 0, false
		}
		kp[i] = k
	}
	shoulderY := float64(kp[0].Y+kp[1].Y) / 2
	hipY := float64(kp[2].Y+kp[3].Y) / 2
	kneeY := float64(kp[4].Y+kp[5].Y) / 2
	return hipY - shoulderY, kneeY - hipY, true
}

// Standing compares the thigh's vertical extent to the torso's. A seated thigh
// projects to almost nothing, a standing one approaches the torso length. The ratio
// does not depend on the distance to the camera or on the frame resolution.
func Standing(pose PersonPose, minRatio float64, minConfidence float32) bool {
	return ClassifyPosture(pose, minRatio, minConfidence) == PostureStanding
}

// ClassifyPosture is the tri-state form of Standing: PostureUnknown when a landmark is
// missing or unreliable, or when the landmarks are in an inconsistent vertical order.
func ClassifyPosture(pose PersonPose, minRatio float64, minConfidence float32) Posture {
	trunk, upperLeg, ok := extents(pose, minConfidence)
	if !ok || trunk <= 0 || upperLeg <= 0 {
		return PostureUnknown
	}
	if upperLeg/trunk > minRatio {
		return PostureStanding
	}
	return PostureSitting
}

// Assess builds the report for one person.
func Assess(pose PersonPose, th Thresholds) PersonReport {
	report := PersonReport{Raised: []Side{}}
	for _, side := range []Side{Right, Left} {
		if ArmRaised(pose, side, th.ArmGap, th.ArmConfidence) {
			report.Raised = append(report.Raised, side)
		}
	}
	report.Posture = ClassifyPosture(pose, th.StandingRatio, th.StandingConfidence)
	report.Standing = report.Posture == PostureStanding
	return report
}

func (r PersonReport) IsRaised(side Side) bool {
	for _, s := range r.Raised {
		if s == side {
			return true
		}
	}
	return false
}

// Message is the overlay text for the raised arms, empty when none is raised.
func (r PersonReport) Message() string {
	right, left := r.IsRaised(Right), r.IsRaised(Left)
	switch {
	case right && left:
		return "Right & Left arm raised!"
	case right:
		return "Right arm raised!"
	case left:
		return "Left arm raised!"
	default:
		return ""
	}
}
