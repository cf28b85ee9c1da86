package analysis

import (
	"testing"

	"scope/pkg/utils"
)

func TestBandsTone(t *testing.T) {
	wave := utils.GenerateSineWave(testFFTSize, testSampleRate, 440)
	sp := NewSpectrum(NewAnalyzer(Hann).Compute(wave), testFFTSize, testSampleRate)

	bands := Bands(sp)
	if len(bands) != 6 {
		t.Fatalf("got %d bands, want 6", len(bands))
	}
	for _, b := range bands {
		switch b.Name {
		case "lowMid":
			if b.Level != 1 {
				t.Errorf("lowMid level = %g, want 1", b.Level)
			}
		default:
			if b.Level >= 0.5 {
				t.Errorf("%s level = %g, want < 0.5 for a 440 Hz tone", b.Name, b.Level)
			}
		}
	}
	if top := bands[len(bands)-1]; top.HighHz != testSampleRate/2 {
		t.Errorf("top band ends at %g, want Nyquist", top.HighHz)
	}
}

func TestBandsEmptySpectrum(t *testing.T) {
	for _, b := range Bands(NewSpectrum(nil, 0, testSampleRate)) {
		if b.Level != 0 {
			t.Errorf("%s level = %g, want 0", b.Name, b.Level)
		}
	}
}

func TestSpectrumPeakBin(t *testing.T) {
	tests := []struct {
		bins []float64
		want int
	}{
		{nil, -1},
		{[]float64{0, 0, 0}, 0},
		{[]float64{0.1, 0.7, 0.3}, 1},
	}
	for _, tt := range tests {
		if got, _ := NewSpectrum(tt.bins, 2*len(tt.bins), 8000).PeakBin(); got != tt.want {
			t.Errorf("PeakBin(%v) = %d, want %d", tt.bins, got, tt.want)
		}
	}
}
