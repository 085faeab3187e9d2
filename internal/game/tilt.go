package game

// Orientation is a device-orientation sample in degrees.
// Gamma tilts left/right and drives dx; beta tilts front/back and drives dy.
type Orientation struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// TiltMapper turns orientation angles into a clamped velocity.
type TiltMapper struct {
	MaxTiltDegrees float64
	MaxSpeed       float64
}

// DefaultTiltMapper uses the 30 degree / 6 unit reference tuning.
func DefaultTiltMapper() TiltMapper {
	return TiltMapper{MaxTiltDegrees: DefaultMaxTiltDegrees, MaxSpeed: DefaultMaxSpeed}
}

// Velocity maps o to (dx, dy), each clamped to [-MaxSpeed, MaxSpeed].
func (m TiltMapper) Velocity(o Orientation) Vec2 {
	if m.MaxTiltDegrees == 0 {
		return Vec2{}
	}
	v := Vec2{
		X: o.Gamma / m.MaxTiltDegrees * m.MaxSpeed,
		Y: o.Beta / m.MaxTiltDegrees * m.MaxSpeed,
	}
	return m.Clamp(v)
}

// Clamp limits each component of v to the mapper's max speed.
func (m TiltMapper) Clamp(v Vec2) Vec2 {
	return v.ClampComponents(m.MaxSpeed)
}

// AverageTilt returns the mean of samples, or zero when there are none.
func AverageTilt(samples []Vec2) Vec2 {
	if len(samples) == 0 {
		return Vec2{}
	}
	var sum Vec2
	for _, s := range samples {
		sum = sum.Plus(s)
	}
	return sum.Times(1 / float64(len(samples)))
}
