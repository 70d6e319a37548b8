package iamf

import (
	"strings"
	"testing"

	"github.com/ausocean/iamf/container/iamf/bits"
	"github.com/ausocean/iamf/container/iamf/decoderconfig"
)

type testLogger struct {
	warnings []string
}

func (l *testLogger) Debug(msg string, params ...interface{})   {}
func (l *testLogger) Info(msg string, params ...interface{})    {}
func (l *testLogger) Warning(msg string, params ...interface{}) { l.warnings = append(l.warnings, msg) }
func (l *testLogger) Error(msg string, params ...interface{})   {}
func (l *testLogger) Fatal(msg string, params ...interface{})   {}

func sequencerDescriptors() DescriptorSet {
	codecConfig, _ := NewCodecConfig(1, FourCCLPCM, 960, 0, false)
	codecConfig.LPCM = decoderconfig.LPCM{SampleSize: 16, SampleRate: 48000}
	return DescriptorSet{
		IASequenceHeader: IASequenceHeader{PrimaryProfile: ProfileSimple, AdditionalProfile: ProfileBase},
		CodecConfigs:     []CodecConfig{codecConfig},
		AudioElements: []AudioElement{
			{AudioElementID: 2, AudioElementType: AudioElementChannelBased, CodecConfigID: 1, SubstreamIDs: []uint64{5},
				ChannelBased: ChannelBasedConfig{Layers: []ChannelAudioLayerConfig{{LoudspeakerLayout: LoudspeakerLayoutMono, SubstreamCount: 1}}}},
			{AudioElementID: 1, AudioElementType: AudioElementChannelBased, CodecConfigID: 1, SubstreamIDs: []uint64{3, 4},
				ChannelBased: ChannelBasedConfig{Layers: []ChannelAudioLayerConfig{{LoudspeakerLayout: LoudspeakerLayoutStereo, SubstreamCount: 2, CoupledSubstreamCount: 1}}}},
		},
		MixPresentations: []MixPresentation{
			{MixPresentationID: 1, SubMixes: []SubMix{{
				AudioElements: []SubMixAudioElement{{AudioElementID: 1, ElementMixGain: mixGainDefinition(0)}},
				OutputMixGain: mixGainDefinition(0),
			}}},
		},
	}
}

func TestSequencerDescriptorOrderingIsCanonicalRegardlessOfPushOrder(t *testing.T) {
	s := NewObuSequencer(bits.Minimal, nil)
	if err := s.PushDescriptors(sequencerDescriptors(), nil); err != nil {
		t.Fatalf("PushDescriptors: %v", err)
	}
	data, ok := s.GetSerializedDescriptorObus()
	if !ok {
		t.Fatal("expected serialized descriptors")
	}

	ds, err := CreateFromDescriptors(data, nil)
	if err != nil {
		t.Fatalf("CreateFromDescriptors: %v", err)
	}
	if len(ds.AudioElements) != 2 || ds.AudioElements[0].AudioElementID != 1 || ds.AudioElements[1].AudioElementID != 2 {
		t.Errorf("got audio elements %+v, want ascending id order [1, 2]", ds.AudioElements)
	}
}

func TestSequencerPreserveOrderKeepsPushOrder(t *testing.T) {
	s := &ObuSequencer{Policy: bits.Minimal, PreserveOrder: true}
	if err := s.PushDescriptors(sequencerDescriptors(), nil); err != nil {
		t.Fatalf("PushDescriptors: %v", err)
	}
	data, ok := s.GetSerializedDescriptorObus()
	if !ok {
		t.Fatal("expected serialized descriptors")
	}
	ds, err := CreateFromDescriptors(data, nil)
	if err != nil {
		t.Fatalf("CreateFromDescriptors: %v", err)
	}
	if len(ds.AudioElements) != 2 || ds.AudioElements[0].AudioElementID != 2 || ds.AudioElements[1].AudioElementID != 1 {
		t.Errorf("got audio elements %+v, want push order [2, 1]", ds.AudioElements)
	}
}

func TestSequencerInsertionHooksPlaceArbitraryObus(t *testing.T) {
	s := NewObuSequencer(bits.Minimal, nil)
	arbitrary := []Arbitrary{
		{Payload: []byte{0xAA}, InsertionHook: InsertBeforeDescriptors},
		{Payload: []byte{0xBB}, InsertionHook: InsertAfterDescriptors},
	}
	if err := s.PushDescriptors(sequencerDescriptors(), arbitrary); err != nil {
		t.Fatalf("PushDescriptors: %v", err)
	}
	data, ok := s.GetSerializedDescriptorObus()
	if !ok {
		t.Fatal("expected serialized descriptors")
	}

	r := bits.NewReader(data)
	firstType, _, err := PeekObuTypeAndTotalObuSize(r)
	if err != nil {
		t.Fatalf("PeekObuTypeAndTotalObuSize: %v", err)
	}
	if firstType != DefaultArbitraryObuType {
		t.Errorf("got first obu_type %v, want an arbitrary obu (InsertBeforeDescriptors)", firstType)
	}
}

func TestSequencerArbitraryRequiringTickWithoutOneRejected(t *testing.T) {
	s := NewObuSequencer(bits.Minimal, nil)
	tu := TemporalUnit{
		Arbitrary: []Arbitrary{
			{Payload: []byte{0x01}, InsertionHook: InsertBeforeParameterBlocksWithTick},
		},
	}
	if _, err := s.WriteTemporalUnit(tu); err == nil {
		t.Fatal("expected error: tick-relative hook without HasInsertionTick")
	}
}

func TestSequencerTemporalUnitOrdersParameterBlocksAndAudioFrames(t *testing.T) {
	s := NewObuSequencer(bits.Minimal, nil)
	if err := s.PushDescriptors(sequencerDescriptors(), nil); err != nil {
		t.Fatalf("PushDescriptors: %v", err)
	}

	tu := TemporalUnit{
		Delimiter: &TemporalDelimiter{},
		AudioFrames: []AudioFrame{
			{SubstreamID: 5, Payload: []byte{0x01}},
			{SubstreamID: 3, Payload: []byte{0x02}},
			{SubstreamID: 4, Payload: []byte{0x03}},
		},
	}
	data, err := s.WriteTemporalUnit(tu)
	if err != nil {
		t.Fatalf("WriteTemporalUnit: %v", err)
	}
	got, ok := s.GetPreviousSerializedTemporalUnit()
	if !ok {
		t.Fatal("expected a previous serialized temporal unit")
	}
	if string(got) != string(data) {
		t.Error("GetPreviousSerializedTemporalUnit does not match WriteTemporalUnit's return value")
	}

	serialized, _ := s.GetSerializedDescriptorObus()
	d := NewStreamDecoder(nil)
	if err := d.Decode(serialized); err != nil {
		t.Fatalf("Decode descriptors: %v", err)
	}
	if err := d.Decode(data); err != nil {
		t.Fatalf("Decode temporal unit: %v", err)
	}
	d.Flush()
	unit, ok := d.NextTemporalUnit()
	if !ok {
		t.Fatal("expected a completed temporal unit")
	}
	if len(unit.AudioFrames) != 3 {
		t.Fatalf("got %d audio frames, want 3", len(unit.AudioFrames))
	}
	// Audio element 1 owns substreams 3 and 4, audio element 2 owns
	// substream 5; frames must be ordered (audio_element_id, substream_id).
	wantOrder := []uint64{3, 4, 5}
	for i, f := range unit.AudioFrames {
		if f.SubstreamID != wantOrder[i] {
			t.Errorf("got audio frame order %v, want %v", frameSubstreamIDs(unit.AudioFrames), wantOrder)
			break
		}
	}
}

func frameSubstreamIDs(frames []AudioFrame) []uint64 {
	ids := make([]uint64, len(frames))
	for i, f := range frames {
		ids[i] = f.SubstreamID
	}
	return ids
}

func TestSequencerUnownedSubstreamLogsWarning(t *testing.T) {
	log := &testLogger{}
	s := NewObuSequencer(bits.Minimal, log)
	if err := s.PushDescriptors(sequencerDescriptors(), nil); err != nil {
		t.Fatalf("PushDescriptors: %v", err)
	}

	tu := TemporalUnit{
		AudioFrames: []AudioFrame{
			{SubstreamID: 99, Payload: []byte{0x01}},
			{SubstreamID: 3, Payload: []byte{0x02}},
		},
	}
	if _, err := s.WriteTemporalUnit(tu); err != nil {
		t.Fatalf("WriteTemporalUnit: %v", err)
	}

	if len(log.warnings) == 0 {
		t.Fatal("expected a warning for the unowned substream id")
	}
	if !strings.Contains(log.warnings[0], "not owned") {
		t.Errorf("got warning %q, want it to mention an unowned substream", log.warnings[0])
	}
}

func TestSequencerAbortClearsState(t *testing.T) {
	s := NewObuSequencer(bits.Minimal, nil)
	if err := s.PushDescriptors(sequencerDescriptors(), nil); err != nil {
		t.Fatalf("PushDescriptors: %v", err)
	}
	if _, err := s.WriteTemporalUnit(TemporalUnit{Delimiter: &TemporalDelimiter{}}); err != nil {
		t.Fatalf("WriteTemporalUnit: %v", err)
	}

	s.Abort()

	if _, ok := s.GetSerializedDescriptorObus(); ok {
		t.Error("expected no serialized descriptors after Abort")
	}
	if _, ok := s.GetPreviousSerializedTemporalUnit(); ok {
		t.Error("expected no previous temporal unit after Abort")
	}
}
