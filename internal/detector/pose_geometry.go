package detector

import "math"

// Landmark indices of the 33-point body model
const (
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24
	LeftKnee      = 25
	RightKnee     = 26
	LeftAnkle     = 27
	RightAnkle    = 28

	landmarkCount = 33
)

// PoseThresholds are the angle and visibility limits for the L-pose
type PoseThresholds struct {
	MinVisibility float64
	StraightArm   float64 // elbow angle above which an arm counts as straight
	Vertical      float64 // tolerance around 0/180 degrees
	Horizontal    float64 // tolerance around 90 degrees
}

// jointAngle returns the angle ABC at b in degrees, in [0, 180]
func jointAngle(a, b, c Landmark) float64 {
	angle := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	deg := math.Abs(angle * 180 / math.Pi)
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}

// armAngleFromVertical returns the signed angle in degrees between the
// shoulder-to-elbow segment and straight up in image coordinates
func armAngleFromVertical(shoulder, elbow Landmark) float64 {
	dx := elbow.X - shoulder.X
	dy := elbow.Y - shoulder.Y
	return math.Atan2(dx, -dy) * 180 / math.Pi
}

type armState struct {
	straight   bool
	vertical   bool
	horizontal bool
}

func evaluateArm(shoulder, elbow, wrist Landmark, th PoseThresholds) armState {
	a := armAngleFromVertical(shoulder, elbow)
	abs := math.Abs(a)
	return armState{
		straight:   jointAngle(shoulder, elbow, wrist) > th.StraightArm,
		vertical:   abs <= th.Vertical || math.Abs(abs-180) <= th.Vertical,
		horizontal: math.Abs(abs-90) <= th.Horizontal,
	}
}

// IsLPose reports whether both arms are straight with one vertical and the
// other horizontal. Every arm landmark must be more visible than the
// threshold, otherwise the pose is not evaluated.
func IsLPose(lm []Landmark, th PoseThresholds) bool {
	if len(lm) <= RightWrist {
		return false
	}
	for _, i := range []int{LeftShoulder, RightShoulder, LeftElbow, RightElbow, LeftWrist, RightWrist} {
		if lm[i].Visibility <= th.MinVisibility {
			return false
		}
	}

	left := evaluateArm(lm[LeftShoulder], lm[LeftElbow], lm[LeftWrist], th)
	right := evaluateArm(lm[RightShoulder], lm[RightElbow], lm[RightWrist], th)

	if !left.straight || !right.straight {
		return false
	}
	return (left.vertical && right.horizontal) || (right.vertical && left.horizontal)
}
