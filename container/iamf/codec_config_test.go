package iamf

import (
	"testing"

	"github.com/ausocean/iamf/container/iamf/bits"
	"github.com/ausocean/iamf/container/iamf/decoderconfig"
)

func lpcmCodecConfig(t *testing.T) CodecConfig {
	t.Helper()
	c, err := NewCodecConfig(1, FourCCLPCM, 960, 0, false)
	if err != nil {
		t.Fatalf("NewCodecConfig: %v", err)
	}
	c.LPCM = decoderconfig.LPCM{SampleSize: 16, SampleRate: 48000}
	return c
}

func TestCodecConfigLPCMRoundTrip(t *testing.T) {
	c := lpcmCodecConfig(t)
	w := bits.NewWriter(bits.Minimal)
	if err := c.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadCodecConfig(bits.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.CodecConfigID != c.CodecConfigID || got.CodecID != c.CodecID || got.LPCM != c.LPCM {
		t.Errorf("got %+v, want %+v", got, c)
	}
	if !got.IsLossless() {
		t.Error("expected LPCM to be lossless")
	}
}

func TestCodecConfigFooterRoundTrip(t *testing.T) {
	c := lpcmCodecConfig(t)
	c.footer = []byte{0xAA, 0xBB}
	w := bits.NewWriter(bits.Minimal)
	if err := c.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadCodecConfig(bits.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got.Footer()) != string(c.footer) {
		t.Errorf("got footer %v, want %v", got.Footer(), c.footer)
	}
}

func TestCodecConfigOpusOverridesRollDistance(t *testing.T) {
	c, err := NewCodecConfig(2, FourCCOpus, 960, 0, true)
	if err != nil {
		t.Fatalf("NewCodecConfig: %v", err)
	}
	c.Opus = decoderconfig.Opus{Version: 1, OutputChannelCount: 2, InputSampleRate: 48000}
	if c.AudioRollDistance != -4 {
		t.Errorf("got audio_roll_distance %d, want -4", c.AudioRollDistance)
	}
}

func TestCodecConfigSetCodecDelayOnlyAffectsOpus(t *testing.T) {
	c := lpcmCodecConfig(t)
	c.SetCodecDelay(312)
	if c.LPCM != (decoderconfig.LPCM{SampleSize: 16, SampleRate: 48000}) {
		t.Error("SetCodecDelay must be a no-op for LPCM")
	}

	opus, err := NewCodecConfig(2, FourCCOpus, 960, 0, false)
	if err != nil {
		t.Fatalf("NewCodecConfig: %v", err)
	}
	opus.Opus = decoderconfig.Opus{Version: 1, OutputChannelCount: 2, InputSampleRate: 48000}
	opus.SetCodecDelay(312)
	if opus.Opus.PreSkip != 312 {
		t.Errorf("got pre_skip %d, want 312", opus.Opus.PreSkip)
	}
}

func TestCodecConfigRejectsZeroSamplesPerFrame(t *testing.T) {
	c := lpcmCodecConfig(t)
	c.NumSamplesPerFrame = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for zero num_samples_per_frame")
	}
}

func TestCodecConfigAacLCRoundTrip(t *testing.T) {
	c, err := NewCodecConfig(3, FourCCAACLC, 1024, 0, true)
	if err != nil {
		t.Fatalf("NewCodecConfig: %v", err)
	}
	if c.AudioRollDistance != -1 {
		t.Errorf("got audio_roll_distance %d, want -1", c.AudioRollDistance)
	}
	c.AacLC = decoderconfig.AacLC{MaxBitrate: 128000, AverageBitRate: 128000, SampleFrequencyIndex: 3, ChannelConfiguration: 2}

	w := bits.NewWriter(bits.Minimal)
	if err := c.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadCodecConfig(bits.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.AacLC != c.AacLC {
		t.Errorf("got %+v, want %+v", got.AacLC, c.AacLC)
	}
	if rate, err := got.GetOutputSampleRate(); err != nil || rate != 48000 {
		t.Errorf("got output sample rate %d, %v; want 48000, nil", rate, err)
	}
}

func flacCodecConfig(t *testing.T, md5 [16]byte) CodecConfig {
	t.Helper()
	c, err := NewCodecConfig(4, FourCCFLAC, 4096, 0, false)
	if err != nil {
		t.Fatalf("NewCodecConfig: %v", err)
	}
	c.Flac = decoderconfig.Flac{MetadataBlocks: []decoderconfig.FlacMetadataBlock{
		{
			Last:      true,
			BlockType: decoderconfig.FlacStreamInfo,
			StreamInfo: decoderconfig.FlacStreamInfoData{
				SampleRate:    48000,
				BitsPerSample: 15, // effective 16
				MD5:           md5,
			},
		},
	}}
	return c
}

func TestCodecConfigFlacRoundTrip(t *testing.T) {
	c := flacCodecConfig(t, [16]byte{})
	w := bits.NewWriter(bits.Minimal)
	if err := c.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadCodecConfig(bits.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Flac.MetadataBlocks[0].StreamInfo.SampleRate != 48000 {
		t.Errorf("got sample_rate %d, want 48000", got.Flac.MetadataBlocks[0].StreamInfo.SampleRate)
	}
}

// A foreign FLAC stream may carry a genuine (non-zero) MD5 checksum, which
// IAMF's own strict StreamInfo constraints forbid but which ReadCodecConfig
// accepts loosely; Write must still be able to re-serialize it.
func TestCodecConfigFlacWithGenuineMD5RoundTrips(t *testing.T) {
	c := flacCodecConfig(t, [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})
	w := bits.NewWriter(bits.Minimal)
	if err := c.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadCodecConfig(bits.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Flac.MetadataBlocks[0].StreamInfo.MD5 != c.Flac.MetadataBlocks[0].StreamInfo.MD5 {
		t.Error("expected the genuine MD5 to survive the round trip")
	}
}

func TestCodecConfigFlacEmptyChainDoesNotPanic(t *testing.T) {
	c := flacCodecConfig(t, [16]byte{})
	c.Flac.MetadataBlocks = nil
	// GetOutputSampleRate/GetBitDepthToMeasureLoudness do not themselves
	// validate; an empty metadata chain must return a zero value rather
	// than panic on MetadataBlocks[0].
	if rate, err := c.GetOutputSampleRate(); err != nil || rate != 0 {
		t.Errorf("got %d, %v; want 0, nil for an empty metadata chain", rate, err)
	}
	if depth, err := c.GetBitDepthToMeasureLoudness(); err != nil || depth != 0 {
		t.Errorf("got %d, %v; want 0, nil for an empty metadata chain", depth, err)
	}
}
