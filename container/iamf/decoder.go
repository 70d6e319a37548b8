/*
NAME
  decoder.go - the streaming decoder front-end (§4.13): ingests raw IAMF
  bytes, classifies OBUs as descriptors vs temporal units, and yields a
  descriptor set followed by a stream of temporal units.

DESCRIPTION
  Grounded on container/mts/mpegts.go's pattern of a backlog buffer that
  accumulates partial input and only consumes whole framed units once
  enough bytes have arrived, and protocol/rtp/client.go's state-machine
  style for a stream that transitions between a small number of named
  phases.

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
	"github.com/pkg/errors"

	"github.com/ausocean/iamf/container/iamf/bits"
	"github.com/ausocean/iamf/container/iamf/paramdefinition"
	"github.com/ausocean/utils/logging"
)

// DecoderState names the streaming decoder's three phases (§4.13).
type DecoderState uint8

const (
	// AwaitingDescriptors consumes descriptor OBUs (and descriptor-adjacent
	// Metadata/Arbitrary OBUs) until the first temporal-unit OBU or a
	// Temporal Delimiter is seen.
	AwaitingDescriptors DecoderState = iota
	// DescriptorProcessingComplete is a one-shot transitional state; the
	// decoder moves to DecodingTemporalUnits on the next Temporal Delimiter
	// or temporal-unit OBU. Descriptor OBUs leave the state unchanged.
	DescriptorProcessingComplete
	// DecodingTemporalUnits consumes Parameter Block and Audio Frame OBUs,
	// grouped into temporal units delimited by Temporal Delimiter OBUs.
	DecodingTemporalUnits
)

// paramRegistration is what the decoder remembers about a parameter id so
// it can parse later Parameter Block OBUs that reference it.
type paramRegistration struct {
	definition         paramdefinition.Definition
	numReconGainLayers int
}

// DescriptorSet is the accumulated, "frozen" set of descriptor OBUs once
// IsDescriptorProcessingComplete is true.
type DescriptorSet struct {
	IASequenceHeader IASequenceHeader
	CodecConfigs     []CodecConfig
	AudioElements    []AudioElement
	MixPresentations []MixPresentation
	Metadata         []Metadata
	Arbitrary        []Arbitrary // descriptor-adjacent arbitrary OBUs, in arrival order
}

// TemporalUnit is the set of OBUs sharing one presentation tick (§4.13).
type TemporalUnit struct {
	Delimiter       *TemporalDelimiter
	ParameterBlocks []ParameterBlock
	AudioFrames     []AudioFrame
	Arbitrary       []Arbitrary
}

// StreamDecoder parses a raw IAMF byte stream into a DescriptorSet followed
// by a sequence of TemporalUnits, tolerating chunk boundaries that split an
// OBU. StreamDecoder is not safe for concurrent use.
type StreamDecoder struct {
	backlog []byte
	state   DecoderState

	descriptors DescriptorSet
	params      map[uint64]paramRegistration

	pending    TemporalUnit
	haveTick   bool
	completed  []TemporalUnit

	// log receives notice of recoverable anomalies, e.g. a descriptor OBU
	// arriving after the descriptor set has been frozen. A nil log is
	// valid; log calls are skipped.
	log logging.Logger
}

// NewStreamDecoder returns a StreamDecoder ready to receive bytes via
// Decode. log may be nil.
func NewStreamDecoder(log logging.Logger) *StreamDecoder {
	return &StreamDecoder{
		state:  AwaitingDescriptors,
		params: make(map[uint64]paramRegistration),
		log:    log,
	}
}

// IsDescriptorProcessingComplete reports whether the descriptor set has
// been finalized (i.e. the decoder has observed the first temporal-unit
// OBU or a Temporal Delimiter).
func (d *StreamDecoder) IsDescriptorProcessingComplete() bool {
	return d.state != AwaitingDescriptors
}

// Descriptors returns the decoder's accumulated descriptor set. Valid to
// call at any time; the set grows until IsDescriptorProcessingComplete.
func (d *StreamDecoder) Descriptors() DescriptorSet {
	return d.descriptors
}

// NextTemporalUnit dequeues the oldest fully-decoded temporal unit, if
// any.
func (d *StreamDecoder) NextTemporalUnit() (TemporalUnit, bool) {
	if len(d.completed) == 0 {
		return TemporalUnit{}, false
	}
	tu := d.completed[0]
	d.completed = d.completed[1:]
	return tu, true
}

// registerParamDefinition records def (and, for ReconGain parameters, the
// owning audio element's recon-gain layer count) so later Parameter Block
// OBUs referencing this id can be parsed.
func (d *StreamDecoder) registerParamDefinition(def paramdefinition.Definition, numReconGainLayers int) {
	d.params[def.ParameterID] = paramRegistration{definition: def, numReconGainLayers: numReconGainLayers}
}

func (d *StreamDecoder) absorbAudioElement(a AudioElement) {
	numReconGainLayers := 0
	if a.AudioElementType == AudioElementChannelBased {
		for _, l := range a.ChannelBased.Layers {
			if l.ReconGainIsPresentFlag {
				numReconGainLayers++
			}
		}
	}
	for _, p := range a.Parameters {
		d.registerParamDefinition(p.Definition, numReconGainLayers)
	}
}

func (d *StreamDecoder) warn(msg string, params ...interface{}) {
	if d.log == nil {
		return
	}
	d.log.Warning(msg, params...)
}

func (d *StreamDecoder) absorbMixPresentation(m MixPresentation) {
	for _, sm := range m.SubMixes {
		d.registerParamDefinition(sm.OutputMixGain, 0)
		for _, e := range sm.AudioElements {
			d.registerParamDefinition(e.ElementMixGain, 0)
		}
	}
}

// Decode appends chunk to the internal backlog and parses as many complete
// OBUs as are available. Partial trailing bytes remain buffered for the
// next call. Decode returns success even when the backlog ends mid-OBU;
// it fails only when a complete OBU is malformed.
func (d *StreamDecoder) Decode(chunk []byte) error {
	d.backlog = append(d.backlog, chunk...)

	for {
		r := bits.NewReader(d.backlog)
		obuType, totalSize, err := PeekObuTypeAndTotalObuSize(r)
		if err != nil {
			if errors.Is(err, bits.ErrNeedMoreData) {
				return nil
			}
			return err
		}
		if totalSize > len(d.backlog) {
			return nil
		}

		obuBytes := d.backlog[:totalSize]
		if err := d.decodeOne(obuType, obuBytes); err != nil {
			return err
		}
		d.backlog = d.backlog[totalSize:]
	}
}

func (d *StreamDecoder) decodeOne(obuType ObuType, obuBytes []byte) error {
	r := bits.NewReader(obuBytes)

	if obuType == ObuTemporalDelimiter {
		td, err := ReadTemporalDelimiter(r)
		if err != nil {
			return err
		}
		d.finishTemporalUnit()
		d.pending.Delimiter = &td
		d.state = DecodingTemporalUnits
		return nil
	}

	switch d.state {
	case AwaitingDescriptors, DescriptorProcessingComplete:
		if obuType.IsDescriptor() || obuType == DefaultMetadataObuType {
			return d.decodeDescriptor(obuType, r)
		}
		if _, implicit := obuType.IsAudioFrameImplicit(); !implicit && obuType != ObuParameterBlock && obuType != ObuAudioFrame {
			// An arbitrary OBU seen before any temporal-unit OBU is
			// descriptor-adjacent and joins the descriptor set.
			a, err := ReadArbitrary(r)
			if err != nil {
				return err
			}
			d.descriptors.Arbitrary = append(d.descriptors.Arbitrary, a)
			return nil
		}
		// A temporal-unit OBU finalizes the descriptor set per §4.13.
		d.state = DecodingTemporalUnits
		return d.decodeTemporalUnitObu(obuType, r)
	default: // DecodingTemporalUnits
		if obuType.IsDescriptor() {
			// Current contract tolerates descriptor OBUs arriving after
			// the descriptor set is frozen (spec.md §9 Open Questions);
			// absorb them into the running set rather than rejecting.
			d.warn("descriptor obu arrived after descriptor processing completed", "obu_type", obuType.String())
			return d.decodeDescriptor(obuType, r)
		}
		return d.decodeTemporalUnitObu(obuType, r)
	}
}

func (d *StreamDecoder) decodeDescriptor(obuType ObuType, r *bits.Reader) error {
	switch obuType {
	case ObuIASequenceHeader:
		h, err := ReadIASequenceHeader(r)
		if err != nil {
			return err
		}
		d.descriptors.IASequenceHeader = h
	case ObuCodecConfig:
		c, err := ReadCodecConfig(r)
		if err != nil {
			return err
		}
		d.descriptors.CodecConfigs = append(d.descriptors.CodecConfigs, c)
	case ObuAudioElement:
		a, err := ReadAudioElement(r)
		if err != nil {
			return err
		}
		d.absorbAudioElement(a)
		d.descriptors.AudioElements = append(d.descriptors.AudioElements, a)
	case ObuMixPresentation:
		m, err := ReadMixPresentation(r)
		if err != nil {
			return err
		}
		d.absorbMixPresentation(m)
		d.descriptors.MixPresentations = append(d.descriptors.MixPresentations, m)
	default:
		if obuType == DefaultMetadataObuType {
			m, err := ReadMetadata(r)
			if err != nil {
				return err
			}
			d.descriptors.Metadata = append(d.descriptors.Metadata, m)
			return nil
		}
		return errors.Errorf("iamf: obu_type %s is not a descriptor type", obuType)
	}
	return nil
}

func (d *StreamDecoder) decodeTemporalUnitObu(obuType ObuType, r *bits.Reader) error {
	switch {
	case obuType == ObuParameterBlock:
		pb, err := d.readParameterBlock(r)
		if err != nil {
			return err
		}
		d.pending.ParameterBlocks = append(d.pending.ParameterBlocks, pb)
	case obuType == ObuAudioFrame:
		f, err := ReadAudioFrame(r)
		if err != nil {
			return err
		}
		d.pending.AudioFrames = append(d.pending.AudioFrames, f)
	default:
		if _, ok := obuType.IsAudioFrameImplicit(); ok {
			f, err := ReadAudioFrame(r)
			if err != nil {
				return err
			}
			d.pending.AudioFrames = append(d.pending.AudioFrames, f)
			return nil
		}
		a, err := ReadArbitrary(r)
		if err != nil {
			return err
		}
		d.pending.Arbitrary = append(d.pending.Arbitrary, a)
	}
	return nil
}

// readParameterBlock peeks the parameter id inline (without disturbing r's
// position for the real parse) so it can look up the registered
// definition ReadParameterBlock needs.
func (d *StreamDecoder) readParameterBlock(r *bits.Reader) (ParameterBlock, error) {
	remaining, err := r.Remaining()
	if err != nil {
		return ParameterBlock{}, err
	}
	// The header has already been validated once by the caller's peek of
	// obu_size; re-derive it here to find the byte offset of parameter_id.
	var hdr ObuHeader
	headerReader := bits.NewReader(remaining)
	if _, err := hdr.ReadAndValidate(headerReader); err != nil {
		return ParameterBlock{}, err
	}
	paramID, _, err := headerReader.PeekULeb128()
	if err != nil {
		return ParameterBlock{}, err
	}
	reg, ok := d.params[paramID]
	if !ok {
		return ParameterBlock{}, errors.Wrapf(ErrInvalidArgument, "iamf: parameter_block references unregistered parameter_id %d", paramID)
	}
	return ReadParameterBlock(r, reg.definition, reg.numReconGainLayers)
}

func (d *StreamDecoder) finishTemporalUnit() {
	if d.pending.Delimiter == nil && len(d.pending.ParameterBlocks) == 0 && len(d.pending.AudioFrames) == 0 && len(d.pending.Arbitrary) == 0 {
		return
	}
	d.completed = append(d.completed, d.pending)
	d.pending = TemporalUnit{}
}

// Flush finalizes any in-progress temporal unit, making it available from
// NextTemporalUnit. Call this once the caller knows no more bytes for the
// current unit are coming (e.g. at end of stream).
func (d *StreamDecoder) Flush() {
	d.finishTemporalUnit()
}

// CreateFromDescriptors parses a complete descriptor set from data in one
// call: unlike the incremental Decode/IsDescriptorProcessingComplete pair,
// it treats data as the entire descriptor block and does not require a
// trailing Temporal Delimiter to recognize completion. It fails if data
// ends mid-OBU (the set is incomplete) or contains a malformed OBU. log
// may be nil.
func CreateFromDescriptors(data []byte, log logging.Logger) (DescriptorSet, error) {
	d := NewStreamDecoder(log)
	if err := d.Decode(data); err != nil {
		return DescriptorSet{}, err
	}
	if len(d.backlog) > 0 {
		return DescriptorSet{}, errors.Wrap(ErrNeedMoreData, "iamf: descriptor set is incomplete")
	}
	if d.state == AwaitingDescriptors {
		d.state = DescriptorProcessingComplete
	}
	return d.descriptors, nil
}
