package aead

import "math"

const (
	// MaxSealsPerKey is the ceiling on seals under one key with random
	// 96-bit nonces (NIST SP 800-38D, section 8.3).
	MaxSealsPerKey uint64 = 1 << 32

	// RotationAdvisedSeals is the seal count at which rotation is recommended.
	RotationAdvisedSeals uint64 = 1 << 31
)

// CollisionProbability approximates the chance that any two of n random
// 96-bit nonces collide (birthday bound n²/2^97).
func CollisionProbability(n uint64) float64 {
	f := float64(n)
	return f * f / math.Exp2(97)
}

// RotationAdvised reports whether a key with the given seal count should be
// rotated.
func RotationAdvised(seals uint64) bool {
	return seals >= RotationAdvisedSeals
}
