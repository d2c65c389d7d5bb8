package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func blankPose() PersonPose {
	return make(PersonPose, NumJoints)
}

func armPose(side Side, wrist, shoulder Keypoint) PersonPose {
	p := blankPose()
	s, w, _ := armJoints(side)
	p[s] = shoulder
	p[w] = wrist
	return p
}

// seated/standing body with shoulders, hips and knees at the given heights
func bodyPose(shoulderY, hipY, kneeY int, conf float32) PersonPose {
	p := blankPose()
	p[LeftShoulder] = Keypoint{X: 90, Y: shoulderY, Confidence: conf}
	p[RightShoulder] = Keypoint{X: 130, Y: shoulderY, Confidence: conf}
	p[LeftHip] = Keypoint{X: 95, Y: hipY, Confidence: conf}
	p[RightHip] = Keypoint{X: 125, Y: hipY, Confidence: conf}
	p[LeftKnee] = Keypoint{X: 95, Y: kneeY, Confidence: conf}
	p[RightKnee] = Keypoint{X: 125, Y: kneeY, Confidence: conf}
	return p
}

func TestArmRaised(t *testing.T) {
	t.Run("Left wrist above shoulder", func(t *testing.T) {
		p := armPose(Left, Keypoint{X: 100, Y: 50, Confidence: 0.9}, Keypoint{X: 100, Y: 150, Confidence: 0.9})
		assert.True(t, ArmRaised(p, Left, 10, 0.7))
		assert.False(t, ArmRaised(p, Right, 10, 0.7))
	})

	t.Run("Low wrist confidence fails closed", func(t *testing.T) {
		p := armPose(Left, Keypoint{X: 100, Y: 50, Confidence: 0.4}, Keypoint{X: 100, Y: 150, Confidence: 0.9})
		assert.False(t, ArmRaised(p, Left, 10, 0.7))
	})

	t.Run("Low shoulder confidence fails closed", func(t *testing.T) {
		p := armPose(Right, Keypoint{X: 100, Y: 50, Confidence: 0.9}, Keypoint{X: 100, Y: 150, Confidence: 0.69})
		assert.False(t, ArmRaised(p, Right, 0, 0.7))
	})

	t.Run("Confidence equal to threshold is accepted", func(t *testing.T) {
		p := armPose(Right, Keypoint{Y: 10, Confidence: 0.7}, Keypoint{Y: 100, Confidence: 0.7})
		assert.True(t, ArmRaised(p, Right, 0, 0.7))
	})

	t.Run("Gap is strict", func(t *testing.T) {
		p := armPose(Right, Keypoint{Y: 140, Confidence: 0.9}, Keypoint{Y: 150, Confidence: 0.9})
		assert.False(t, ArmRaised(p, Right, 10, 0.7))
		p[RightWrist].Y = 139
		assert.True(t, ArmRaised(p, Right, 10, 0.7))
	})

	t.Run("Unknown side", func(t *testing.T) {
		p := armPose(Left, Keypoint{Y: 50, Confidence: 0.9}, Keypoint{Y: 150, Confidence: 0.9})
		assert.False(t, ArmRaised(p, Side("up"), 0, 0.7))
	})

	t.Run("Short pose has no wrists", func(t *testing.T) {
		p := armPose(Right, Keypoint{Y: 50, Confidence: 0.9}, Keypoint{Y: 150, Confidence: 0.9})
		assert.False(t, ArmRaised(p[:int(RightShoulder)+1], Right, 0, 0.7))
		assert.False(t, ArmRaised(nil, Right, 0, 0.7))
	})

	t.Run("Translation invariant", func(t *testing.T) {
		base := armPose(Right, Keypoint{X: 10, Y: 80, Confidence: 0.8}, Keypoint{X: 12, Y: 100, Confidence: 0.8})
		for _, d := range [][2]int{{0, 0}, {300, -40}, {-5, 700}, {1000, 1000}} {
			moved := make(PersonPose, len(base))
			for i, kp := range base {
				moved[i] = Keypoint{X: kp.X + d[0], Y: kp.Y + d[1], Confidence: kp.Confidence}
			}
			for _, gap := range []int{0, 10, 19, 20, 25} {
				assert.Equal(t, ArmRaised(base, Right, gap, 0.7), ArmRaised(moved, Right, gap, 0.7), "offset %v gap %d", d, gap)
			}
		}
	})
}

func TestStanding(t *testing.T) {
	t.Run("Standing scenario", func(t *testing.T) {
		// trunk 60, upper leg 80, ratio 1.33
		assert.True(t, Standing(bodyPose(200, 260, 340, 0.9), 0.5, 0.7))
	})

	t.Run("Sitting scenario", func(t *testing.T) {
		// trunk 60, upper leg 10, ratio 0.17
		assert.False(t, Standing(bodyPose(200, 260, 270, 0.9), 0.5, 0.7))
		assert.Equal(t, PostureSitting, ClassifyPosture(bodyPose(200, 260, 270, 0.9), 0.5, 0.7))
	})

	t.Run("Ratio equal to threshold is not standing", func(t *testing.T) {
		assert.False(t, Standing(bodyPose(200, 260, 290, 0.9), 0.5, 0.7))
	})

	t.Run("Averages both sides", func(t *testing.T) {
		p := bodyPose(200, 260, 340, 0.9)
		p[LeftKnee].Y = 330
		p[RightKnee].Y = 350
		assert.True(t, Standing(p, 0.5, 0.7))
	})

	t.Run("Non-positive extents", func(t *testing.T) {
		cases := []struct {
			name                string
			shoulder, hip, knee int
		}{
			{"zero trunk", 260, 260, 340},
			{"negative trunk", 300, 260, 340},
			{"zero upper leg", 200, 260, 260},
			{"negative upper leg", 200, 260, 250},
		}
		for _, c := range cases {
			for _, conf := range []float32{0, 0.5, 0.9, 1} {
				assert.False(t, Standing(bodyPose(c.shoulder, c.hip, c.knee, conf), 0.5, 0.7), c.name)
				assert.False(t, Standing(bodyPose(c.shoulder, c.hip, c.knee, conf), 0.5, 0), c.name)
			}
		}
	})

	t.Run("Any unreliable landmark fails closed", func(t *testing.T) {
		for _, j := range legJoints {
			p := bodyPose(200, 260, 340, 0.9)
			p[j].Confidence = 0.3
			assert.False(t, Standing(p, 0.5, 0.7), j.String())
			assert.Equal(t, PostureUnknown, ClassifyPosture(p, 0.5, 0.7), j.String())
		}
	})

	t.Run("Missing knees", func(t *testing.T) {
		p := bodyPose(200, 260, 340, 0.9)
		assert.False(t, Standing(p[:int(LeftKnee)], 0.5, 0.7))
	})

	t.Run("Scale invariant", func(t *testing.T) {
		for _, heights := range [][3]int{{200, 260, 340}, {200, 260, 270}, {100, 160, 190}, {50, 80, 96}} {
			base := bodyPose(heights[0], heights[1], heights[2], 0.9)
			for _, k := range []int{2, 3, 7} {
				scaled := make(PersonPose, len(base))
				for i, kp := range base {
					scaled[i] = Keypoint{X: kp.X, Y: kp.Y * k, Confidence: kp.Confidence}
				}
				assert.Equal(t, Standing(base, 0.5, 0.7), Standing(scaled, 0.5, 0.7), "heights %v k %d", heights, k)
			}
		}
	})
}

func TestAssess(t *testing.T) {
	p := bodyPose(200, 260, 340, 0.9)
	p[LeftWrist] = Keypoint{X: 80, Y: 120, Confidence: 0.95}
	p[RightWrist] = Keypoint{X: 140, Y: 320, Confidence: 0.95}

	th := DefaultThresholds()
	th.ArmGap = 10
	report := Assess(p, th)
	assert.Equal(t, []Side{Left}, report.Raised)
	assert.True(t, report.Standing)
	assert.Equal(t, PostureStanding, report.Posture)
	assert.Equal(t, "Left arm raised!", report.Message())

	p[RightWrist].Y = 100
	report = Assess(p, th)
	assert.Equal(t, []Side{Right, Left}, report.Raised)
	assert.Equal(t, "Right & Left arm raised!", report.Message())

	empty := Assess(blankPose(), th)
	assert.Empty(t, empty.Raised)
	assert.False(t, empty.Standing)
	assert.Equal(t, "", empty.Message())
	assert.Equal(t, "unknown", empty.Posture.String())
}

func TestJointString(t *testing.T) {
	assert.Equal(t, "nose", Nose.String())
	assert.Equal(t, "right_ankle", RightAnkle.String())
	assert.Equal(t, "invalid", NumJoints.String())
	assert.Equal(t, 17, int(NumJoints))
}
