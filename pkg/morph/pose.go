package morph

import (
	"math"

	"cogentcore.org/core/math32"
)

var (
	axisX = math32.Vec3(1, 0, 0)
	axisY = math32.Vec3(0, 1, 0)
	axisZ = math32.Vec3(0, 0, 1)
)

// Mix linearly interpolates between the assembled and exploded positions.
func Mix(structural, scatter math32.Vector3, s float32) math32.Vector3 {
	return structural.Lerp(scatter, s)
}

// GroupRotation is the ambient rotation of the whole tree about +Y.
func GroupRotation(yaw float32) math32.Quat {
	return math32.NewQuatAxisAngle(axisY, yaw)
}

// ToWorld maps a group-local position into world space.
func ToWorld(local math32.Vector3, groupYaw float32) math32.Vector3 {
	if groupYaw == 0 {
		return local
	}
	return local.MulQuat(GroupRotation(groupYaw))
}

// LookRotation returns the rotation whose local +Z axis points from target
// toward eye, i.e. a plane at target with that rotation faces eye.
func LookRotation(eye, target math32.Vector3) math32.Quat {
	return lookRotation(eye, target)
}

// billboard orients a group-local entity at worldPos toward the camera,
// cancelling the group rotation the renderer will apply on top.
func billboard(camera, worldPos math32.Vector3, groupYaw float32) math32.Quat {
	world := lookRotation(camera, worldPos)
	if groupYaw == 0 {
		return world
	}
	inv := GroupRotation(-groupYaw)
	return inv.Mul(world)
}

// sway rocks the basis about its own Z axis.
func sway(basis math32.Quat, angle float32) math32.Quat {
	return basis.Mul(math32.NewQuatAxisAngle(axisZ, angle))
}

// spin applies accumulated free rotation about local Y then Z.
func spin(basis math32.Quat, y, z float32) math32.Quat {
	q := basis.Mul(math32.NewQuatAxisAngle(axisY, y))
	return q.Mul(math32.NewQuatAxisAngle(axisZ, z))
}

// tilt rotates about X by angle.
func tilt(angle float32) math32.Quat {
	return math32.NewQuatAxisAngle(axisX, angle)
}

// breathe pushes p along its own direction by sin(rate*t+offset)*amp.
func breathe(p math32.Vector3, t, rate, offset, amp float32) math32.Vector3 {
	if p.LengthSquared() == 0 {
		return p
	}
	b := float32(math.Sin(float64(t*rate+offset))) * amp
	return p.Add(p.Normal().MulScalar(b))
}
