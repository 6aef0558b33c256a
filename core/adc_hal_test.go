package core

import (
	"errors"
	"testing"
)

type fakeADC struct {
	values map[ADCChannelID]ADCValue
}

func (f *fakeADC) Init() error { return nil }

func (f *fakeADC) ConfigureChannel(ch ADCChannelID) error {
	if _, ok := f.values[ch]; !ok {
		return ErrInvalidChannel
	}
	return nil
}

func (f *fakeADC) ReadRaw(ch ADCChannelID) (ADCValue, error) {
	v, ok := f.values[ch]
	if !ok {
		return 0, errors.New("read failed")
	}
	return v, nil
}

func TestSampleSetSubstitutesFault(t *testing.T) {
	adc := &fakeADC{values: map[ADCChannelID]ADCValue{0: 100, 2: 4095}}
	chs := []ADCChannelID{0, 1, 2}
	out := make([]ADCValue, len(chs))

	SampleSet(adc, chs, out)

	want := []ADCValue{100, ADCFault, 4095}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestConfigureChannelsStopsAtInvalid(t *testing.T) {
	adc := &fakeADC{values: map[ADCChannelID]ADCValue{0: 0}}
	err := ConfigureChannels(adc, []ADCChannelID{0, 5})
	if !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("ConfigureChannels error = %v, want ErrInvalidChannel", err)
	}
}
