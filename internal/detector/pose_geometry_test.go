package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var defaultThresholds = PoseThresholds{
	MinVisibility: 0.7,
	StraightArm:   160,
	Vertical:      20,
	Horizontal:    25,
}

// bodyWith returns 33 visible landmarks with the given arm points
func bodyWith(ls, le, lw, rs, re, rw Landmark) []Landmark {
	lm := make([]Landmark, landmarkCount)
	for i := range lm {
		lm[i] = Landmark{X: 0.5, Y: 0.5, Visibility: 0.9}
	}
	lm[LeftShoulder], lm[LeftElbow], lm[LeftWrist] = ls, le, lw
	lm[RightShoulder], lm[RightElbow], lm[RightWrist] = rs, re, rw
	return lm
}

func pt(x, y float64) Landmark {
	return Landmark{X: x, Y: y, Visibility: 0.95}
}

func TestJointAngle(t *testing.T) {
	assert.InDelta(t, 180, jointAngle(pt(0, 0), pt(1, 0), pt(2, 0)), 1e-9)
	assert.InDelta(t, 90, jointAngle(pt(0, 1), pt(0, 0), pt(1, 0)), 1e-9)
	// Order of the outer points does not matter
	assert.InDelta(t, 90, jointAngle(pt(1, 0), pt(0, 0), pt(0, 1)), 1e-9)
}

func TestArmAngleFromVertical(t *testing.T) {
	shoulder := pt(0.5, 0.5)
	assert.InDelta(t, 0, armAngleFromVertical(shoulder, pt(0.5, 0.3)), 1e-9)   // up
	assert.InDelta(t, 180, armAngleFromVertical(shoulder, pt(0.5, 0.7)), 1e-9) // down
	assert.InDelta(t, 90, armAngleFromVertical(shoulder, pt(0.7, 0.5)), 1e-9)  // right
	assert.InDelta(t, -90, armAngleFromVertical(shoulder, pt(0.3, 0.5)), 1e-9) // left
}

func TestIsLPose(t *testing.T) {
	tests := []struct {
		name string
		lm   []Landmark
		want bool
	}{
		{
			name: "left up, right out",
			lm: bodyWith(
				pt(0.4, 0.5), pt(0.4, 0.3), pt(0.4, 0.1),
				pt(0.6, 0.5), pt(0.8, 0.5), pt(1.0, 0.5),
			),
			want: true,
		},
		{
			name: "right down, left out",
			lm: bodyWith(
				pt(0.4, 0.5), pt(0.2, 0.5), pt(0.0, 0.5),
				pt(0.6, 0.5), pt(0.6, 0.7), pt(0.6, 0.9),
			),
			want: true,
		},
		{
			name: "slightly tilted arms within tolerance",
			lm: bodyWith(
				pt(0.4, 0.5), pt(0.43, 0.3), pt(0.46, 0.1),
				pt(0.6, 0.5), pt(0.8, 0.55), pt(1.0, 0.6),
			),
			want: true,
		},
		{
			name: "T pose",
			lm: bodyWith(
				pt(0.4, 0.5), pt(0.2, 0.5), pt(0.0, 0.5),
				pt(0.6, 0.5), pt(0.8, 0.5), pt(1.0, 0.5),
			),
			want: false,
		},
		{
			name: "both arms up",
			lm: bodyWith(
				pt(0.4, 0.5), pt(0.4, 0.3), pt(0.4, 0.1),
				pt(0.6, 0.5), pt(0.6, 0.3), pt(0.6, 0.1),
			),
			want: false,
		},
		{
			name: "bent vertical arm",
			lm: bodyWith(
				pt(0.4, 0.5), pt(0.4, 0.3), pt(0.6, 0.3),
				pt(0.6, 0.5), pt(0.8, 0.5), pt(1.0, 0.5),
			),
			want: false,
		},
		{
			name: "too few landmarks",
			lm:   []Landmark{pt(0, 0)},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLPose(tt.lm, defaultThresholds))
		})
	}
}

func TestIsLPose_RequiresVisibility(t *testing.T) {
	lm := bodyWith(
		pt(0.4, 0.5), pt(0.4, 0.3), pt(0.4, 0.1),
		pt(0.6, 0.5), pt(0.8, 0.5), pt(1.0, 0.5),
	)
	assert.True(t, IsLPose(lm, defaultThresholds))

	// Visibility equal to the threshold is not enough
	lm[RightWrist].Visibility = 0.7
	assert.False(t, IsLPose(lm, defaultThresholds))
}
