package core

// ADCChannelID identifies a logical analog input channel.
type ADCChannelID uint8

// ADCValue is an analog reading scaled to 12 bits (0..ADCMax).
// A failed read is reported as ADCFault instead of an error so that a
// sampling pass over several channels always yields an index-aligned result.
type ADCValue int32

const (
	ADCMax   ADCValue = 4095
	ADCFault ADCValue = -1
)

// ADCDriver is the abstract analog sampling interface that core code uses.
type ADCDriver interface {
	// Init powers up and configures the converter.
	Init() error

	// ConfigureChannel prepares a channel for analog input.
	// Returns ErrInvalidChannel if the channel does not exist.
	ConfigureChannel(ch ADCChannelID) error

	// ReadRaw performs a one-shot sample from the given channel.
	ReadRaw(ch ADCChannelID) (ADCValue, error)
}

// Global singleton used by target code.
var adcDriver ADCDriver

// SetADCDriver is called by target-specific code to register its driver.
func SetADCDriver(d ADCDriver) {
	adcDriver = d
}

// MustADC returns the configured driver or panics if missing.
func MustADC() ADCDriver {
	if adcDriver == nil {
		panic("ADC driver not configured")
	}
	return adcDriver
}

// Sample reads one channel, substituting ADCFault on failure.
func Sample(d ADCDriver, ch ADCChannelID) ADCValue {
	v, err := d.ReadRaw(ch)
	if err != nil {
		return ADCFault
	}
	return v
}

// SampleSet reads every channel in chs into out (same index).
// out must be at least as long as chs.
func SampleSet(d ADCDriver, chs []ADCChannelID, out []ADCValue) {
	for i, ch := range chs {
		out[i] = Sample(d, ch)
	}
}

// ConfigureChannels configures each channel and stops at the first failure.
func ConfigureChannels(d ADCDriver, chs []ADCChannelID) error {
	for _, ch := range chs {
		if err := d.ConfigureChannel(ch); err != nil {
			return err
		}
	}
	return nil
}
