/*
NAME
  sequencer.go - the ObuSequencer (§4.14): orders descriptor OBUs per IAMF
  rules, interleaves temporal units in timestamp order, and honors
  Arbitrary-OBU insertion hooks at each boundary.

DESCRIPTION
  Grounded on container/mts/encoder.go's pattern of a stateful writer that
  accumulates a most-recently-serialized unit the caller can retrieve, and
  container/flv/encoder.go's ordered-section-then-payload framing style.

AUTHOR
  Saxon A. Nelson-Milton <saxon.milton@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package iamf

import (
	"sort"

	"github.com/ausocean/iamf/container/iamf/bits"
	"github.com/ausocean/utils/logging"
)

// ObuSequencer writes a well-formed IAMF OBU sequence: a fixed-order
// descriptor block followed by any number of timestamp-ordered temporal
// units, with Arbitrary OBUs honored at their requested insertion hooks.
// ObuSequencer is not safe for concurrent use.
type ObuSequencer struct {
	// Policy is the ULEB128 encoding policy used for every OBU this
	// sequencer writes; it must match the policy any corresponding reader
	// expects for byte-exact round-tripping (spec.md §9).
	Policy bits.Uleb128Policy

	// PreserveOrder disables the default ascending-id sort within each
	// descriptor class, emitting Codec Configs/Audio Elements/Mix
	// Presentations in the order passed to PushDescriptors.
	PreserveOrder bool

	substreamOwner map[uint64]uint64 // substream id -> audio_element_id

	serializedDescriptors []byte
	haveDescriptors       bool

	lastTemporalUnit []byte
	haveTemporalUnit bool

	// log receives notice of recoverable anomalies. A nil log is valid;
	// log calls are skipped.
	log logging.Logger
}

// NewObuSequencer returns an ObuSequencer using policy for ULEB128
// encoding. log may be nil.
func NewObuSequencer(policy bits.Uleb128Policy, log logging.Logger) *ObuSequencer {
	return &ObuSequencer{Policy: policy, log: log}
}

func (s *ObuSequencer) warn(msg string, params ...interface{}) {
	if s.log == nil {
		return
	}
	s.log.Warning(msg, params...)
}

func arbitraryForHook(arb []Arbitrary, hook InsertionHook) []Arbitrary {
	var out []Arbitrary
	for _, a := range arb {
		if a.InsertionHook == hook {
			out = append(out, a)
		}
	}
	return out
}

func writeArbitraryList(w *bits.Writer, list []Arbitrary) error {
	for _, a := range list {
		if err := a.Write(w, false); err != nil {
			return err
		}
	}
	return nil
}

// PushDescriptors serializes ds's descriptor OBUs in the fixed order IA
// Sequence Header -> Codec Configs -> Audio Elements -> Mix Presentations
// -> Metadata, honoring arbitrary's insertion hooks at each boundary. The
// result is retrievable via GetSerializedDescriptorObus.
func (s *ObuSequencer) PushDescriptors(ds DescriptorSet, arbitrary []Arbitrary) error {
	codecConfigs := append([]CodecConfig(nil), ds.CodecConfigs...)
	audioElements := append([]AudioElement(nil), ds.AudioElements...)
	mixPresentations := append([]MixPresentation(nil), ds.MixPresentations...)
	if !s.PreserveOrder {
		sort.Slice(codecConfigs, func(i, j int) bool { return codecConfigs[i].CodecConfigID < codecConfigs[j].CodecConfigID })
		sort.Slice(audioElements, func(i, j int) bool { return audioElements[i].AudioElementID < audioElements[j].AudioElementID })
		sort.Slice(mixPresentations, func(i, j int) bool { return mixPresentations[i].MixPresentationID < mixPresentations[j].MixPresentationID })
	}

	w := bits.NewWriter(s.Policy)

	if err := writeArbitraryList(w, arbitraryForHook(arbitrary, InsertBeforeDescriptors)); err != nil {
		return err
	}
	if err := ds.IASequenceHeader.Write(w); err != nil {
		return err
	}
	if err := writeArbitraryList(w, arbitraryForHook(arbitrary, InsertAfterIASequenceHeader)); err != nil {
		return err
	}
	for _, c := range codecConfigs {
		if err := c.Write(w); err != nil {
			return err
		}
	}
	if err := writeArbitraryList(w, arbitraryForHook(arbitrary, InsertAfterCodecConfigs)); err != nil {
		return err
	}
	for _, a := range audioElements {
		if err := a.Write(w); err != nil {
			return err
		}
	}
	if err := writeArbitraryList(w, arbitraryForHook(arbitrary, InsertAfterAudioElements)); err != nil {
		return err
	}
	for _, m := range mixPresentations {
		if err := m.Write(w); err != nil {
			return err
		}
	}
	if err := writeArbitraryList(w, arbitraryForHook(arbitrary, InsertAfterMixPresentations)); err != nil {
		return err
	}
	for _, m := range ds.Metadata {
		if err := m.Write(w); err != nil {
			return err
		}
	}
	if err := writeArbitraryList(w, arbitraryForHook(arbitrary, InsertAfterDescriptors)); err != nil {
		return err
	}

	s.substreamOwner = make(map[uint64]uint64)
	for _, a := range audioElements {
		for _, id := range a.SubstreamIDs {
			s.substreamOwner[id] = a.AudioElementID
		}
	}

	s.serializedDescriptors = w.Bytes()
	s.haveDescriptors = true
	return nil
}

// GetSerializedDescriptorObus returns the bytes written by the most recent
// PushDescriptors call.
func (s *ObuSequencer) GetSerializedDescriptorObus() ([]byte, bool) {
	return s.serializedDescriptors, s.haveDescriptors
}

func (s *ObuSequencer) audioElementIDFor(substreamID uint64) uint64 {
	if s.substreamOwner == nil {
		return 0
	}
	id, ok := s.substreamOwner[substreamID]
	if !ok {
		s.warn("audio frame references a substream id not owned by any pushed audio element", "substream_id", substreamID)
		return 0
	}
	return id
}

// WriteTemporalUnit serializes tu: a leading Temporal Delimiter (if
// present), then parameter blocks ordered by parameter id, then audio
// frames ordered by (audio-element-id, substream-id), with tick-relative
// arbitrary OBUs placed at their requested hook. The result is retrievable
// via GetPreviousSerializedTemporalUnit.
func (s *ObuSequencer) WriteTemporalUnit(tu TemporalUnit) ([]byte, error) {
	paramBlocks := append([]ParameterBlock(nil), tu.ParameterBlocks...)
	sort.Slice(paramBlocks, func(i, j int) bool { return paramBlocks[i].ParameterID < paramBlocks[j].ParameterID })

	frames := append([]AudioFrame(nil), tu.AudioFrames...)
	sort.Slice(frames, func(i, j int) bool {
		ei, ej := s.audioElementIDFor(frames[i].SubstreamID), s.audioElementIDFor(frames[j].SubstreamID)
		if ei != ej {
			return ei < ej
		}
		return frames[i].SubstreamID < frames[j].SubstreamID
	})

	w := bits.NewWriter(s.Policy)
	if tu.Delimiter != nil {
		if err := tu.Delimiter.Write(w); err != nil {
			return nil, err
		}
	}
	if err := writeArbitraryList(w, arbitraryForHook(tu.Arbitrary, InsertBeforeParameterBlocksWithTick)); err != nil {
		return nil, err
	}
	for _, p := range paramBlocks {
		if err := p.Write(w); err != nil {
			return nil, err
		}
	}
	if err := writeArbitraryList(w, arbitraryForHook(tu.Arbitrary, InsertAfterParameterBlocksWithTick)); err != nil {
		return nil, err
	}
	for _, f := range frames {
		if err := f.Write(w); err != nil {
			return nil, err
		}
	}
	if err := writeArbitraryList(w, arbitraryForHook(tu.Arbitrary, InsertAfterAudioFramesWithTick)); err != nil {
		return nil, err
	}

	s.lastTemporalUnit = w.Bytes()
	s.haveTemporalUnit = true
	return s.lastTemporalUnit, nil
}

// GetPreviousSerializedTemporalUnit returns the bytes written by the most
// recent WriteTemporalUnit call.
func (s *ObuSequencer) GetPreviousSerializedTemporalUnit() ([]byte, bool) {
	return s.lastTemporalUnit, s.haveTemporalUnit
}

// Abort clears both the serialized descriptor block and the previous
// temporal unit, as if PushDescriptors/WriteTemporalUnit had never been
// called.
func (s *ObuSequencer) Abort() {
	s.serializedDescriptors = nil
	s.haveDescriptors = false
	s.lastTemporalUnit = nil
	s.haveTemporalUnit = false
}
