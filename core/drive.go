package core

// DriveActuator moves the robot. Speeds are -ServoSpeedMax..ServoSpeedMax.
// The 91° turns block the caller for the calibrated duration and leave the
// wheels stopped.
type DriveActuator interface {
	Forward(speed int)
	Backward(speed int)
	RotateLeft(speed int)
	RotateRight(speed int)
	Stop()
	RotateRight91()
	RotateLeft91()
}

// Calibration holds the per-robot wheel trims and turn durations.
type Calibration struct {
	// ForwardTrim is added to the left wheel speed when driving forward.
	ForwardTrim int `json:"forward_trim" yaml:"forward_trim"`
	// BackwardTrim is added to the right wheel speed when reversing.
	BackwardTrim int `json:"backward_trim" yaml:"backward_trim"`
	// RotateRight91MS and RotateLeft91MS are the durations of a ~91° turn.
	RotateRight91MS uint32 `json:"rotate_right_91_ms" yaml:"rotate_right_91_ms"`
	RotateLeft91MS  uint32 `json:"rotate_left_91_ms" yaml:"rotate_left_91_ms"`
}

// Wheel speeds used for the fixed-angle turns.
const (
	Rotate91RightSpeed = 160
	Rotate91LeftSpeed  = 190
)

// Drive is a two-wheel differential drive on continuous-rotation servos.
// The servos are mounted mirrored, so driving straight needs opposite signs.
type Drive struct {
	servo ServoDriver
	delay Delayer
	cal   Calibration

	left, right int
}

// NewDrive configures both servo channels and parks them.
func NewDrive(servo ServoDriver, delay Delayer, cal Calibration) (*Drive, error) {
	for ch := ServoChannel(0); ch < ServoCount; ch++ {
		if err := servo.ConfigureServo(ch); err != nil {
			return nil, err
		}
	}
	d := &Drive{servo: servo, delay: delay, cal: cal}
	d.Stop()
	return d, nil
}

// Calibration returns the calibration the drive was built with.
func (d *Drive) Calibration() Calibration {
	return d.cal
}

// Speeds returns the last commanded wheel speeds.
func (d *Drive) Speeds() (left, right int) {
	return d.left, d.right
}

func (d *Drive) set(left, right int) {
	d.left, d.right = left, right
	_ = d.servo.SetPulse(ServoLeft, ServoPulse(left))
	_ = d.servo.SetPulse(ServoRight, ServoPulse(right))
}

// Forward drives both wheels ahead at speed, with the forward trim applied
// to the left wheel.
func (d *Drive) Forward(speed int) {
	d.set(speed+d.cal.ForwardTrim, -speed)
}

// Backward drives both wheels in reverse at speed, with the backward trim
// applied to the right wheel.
func (d *Drive) Backward(speed int) {
	d.set(-speed, speed+d.cal.BackwardTrim)
}

// RotateRight spins clockwise in place at speed.
func (d *Drive) RotateRight(speed int) {
	d.set(speed, speed)
}

// RotateLeft spins counter-clockwise in place at speed.
func (d *Drive) RotateLeft(speed int) {
	d.set(-speed, -speed)
}

// Stop parks both wheels.
func (d *Drive) Stop() {
	d.set(0, 0)
}

// RotateRight91 turns roughly 91 degrees clockwise using the calibrated
// duration, then stops. It blocks for the turn.
func (d *Drive) RotateRight91() {
	d.set(Rotate91RightSpeed, Rotate91RightSpeed)
	d.delay.Sleep(d.cal.RotateRight91MS)
	d.Stop()
}

// RotateLeft91 is the counter-clockwise twin of RotateRight91.
func (d *Drive) RotateLeft91() {
	d.set(-Rotate91LeftSpeed, -Rotate91LeftSpeed)
	d.delay.Sleep(d.cal.RotateLeft91MS)
	d.Stop()
}
