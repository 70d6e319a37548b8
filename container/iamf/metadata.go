/*
NAME
  metadata.go - the Metadata OBU (§4.11): ITU-T T.35 user data or IAMF
  Tags, a descriptor-adjacent OBU carrying informational metadata.

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
)

// MetadataType discriminates a Metadata OBU's payload.
type MetadataType uint8

// Metadata types per §4.11.
const (
	MetadataITUTT35   MetadataType = 0
	MetadataIamfTags  MetadataType = 1
	MetadataReserved  MetadataType = 2
)

// ItuTT35 carries ITU-T T.35 registered user data.
type ItuTT35 struct {
	CountryCode          uint8
	CountryCodeExtension uint8 // valid iff CountryCode == 0xFF
	Payload              []byte
}

// Tag is one (name, value) pair of an IAMF Tags metadata block.
type Tag struct {
	Name  string
	Value string
}

// IamfTags is an ordered list of NUL-terminated (name, value) string pairs.
type IamfTags struct {
	Tags []Tag
}

// Metadata is the Metadata OBU (§4.11).
type Metadata struct {
	Type     MetadataType
	ItuTT35  ItuTT35  // valid iff Type == MetadataITUTT35
	IamfTags IamfTags // valid iff Type == MetadataIamfTags

	// ObuType overrides the wire obu_type carried in the reserved range;
	// the zero value is treated as DefaultMetadataObuType.
	ObuType ObuType
	header  ObuHeader

	// footer holds trailing bytes not consumed by the IamfTags variant's
	// known fields; the ITUTT35 variant has no residual concept since its
	// Payload field is itself the opaque remainder.
	footer []byte
}

// Footer returns any trailing bytes not consumed by this OBU's known
// fields, preserved for bit-exact round-tripping. Always empty for the
// ITUTT35 variant, whose Payload already captures every remaining byte.
func (m Metadata) Footer() []byte { return m.footer }

func (m Metadata) obuType() ObuType {
	if m.ObuType == 0 {
		return DefaultMetadataObuType
	}
	return m.ObuType
}

func (m Metadata) writePayload(w *bits.Writer) error {
	if err := w.WriteUleb128(uint64(m.Type)); err != nil {
		return err
	}
	switch m.Type {
	case MetadataITUTT35:
		if err := w.WriteUnsignedLiteral(uint64(m.ItuTT35.CountryCode), 8); err != nil {
			return err
		}
		if m.ItuTT35.CountryCode == 0xFF {
			if err := w.WriteUnsignedLiteral(uint64(m.ItuTT35.CountryCodeExtension), 8); err != nil {
				return err
			}
		}
		return w.WriteUint8Span(m.ItuTT35.Payload)
	case MetadataIamfTags:
		if len(m.IamfTags.Tags) > 0xFF {
			return errors.Wrapf(ErrInvalidArgument, "iamf tags: tag count %d exceeds a byte", len(m.IamfTags.Tags))
		}
		if err := w.WriteUnsignedLiteral(uint64(len(m.IamfTags.Tags)), 8); err != nil {
			return err
		}
		for _, tag := range m.IamfTags.Tags {
			if err := w.WriteString(tag.Name); err != nil {
				return err
			}
			if err := w.WriteString(tag.Value); err != nil {
				return err
			}
		}
		return w.WriteUint8Span(m.footer)
	default:
		return errors.Errorf("iamf: unknown metadata_type %d", m.Type)
	}
}

// Write serializes m, including its OBU header, to w.
func (m Metadata) Write(w *bits.Writer) error {
	payload := bits.NewWriter(w.PolicyForScratch())
	if err := m.writePayload(payload); err != nil {
		return err
	}

	hdr := m.header
	hdr.ObuType = m.obuType()
	if err := hdr.ValidateAndWrite(payload.Len(), w); err != nil {
		return err
	}
	return w.WriteUint8Span(payload.Bytes())
}

// ReadMetadata parses a Metadata OBU, including its header, from r.
func ReadMetadata(r *bits.Reader) (Metadata, error) {
	var hdr ObuHeader
	payloadSize, err := hdr.ReadAndValidate(r)
	if err != nil {
		return Metadata{}, err
	}
	start := r.BytePosition()

	typeU, _, err := r.ReadUleb128()
	if err != nil {
		return Metadata{}, err
	}
	m := Metadata{Type: MetadataType(typeU), ObuType: hdr.ObuType, header: hdr}

	switch m.Type {
	case MetadataITUTT35:
		code, err := r.ReadUnsignedLiteral(8)
		if err != nil {
			return Metadata{}, err
		}
		m.ItuTT35.CountryCode = uint8(code)
		if m.ItuTT35.CountryCode == 0xFF {
			ext, err := r.ReadUnsignedLiteral(8)
			if err != nil {
				return Metadata{}, err
			}
			m.ItuTT35.CountryCodeExtension = uint8(ext)
		}
		consumed := r.BytePosition() - start
		remaining := int(payloadSize) - consumed
		m.ItuTT35.Payload, err = r.ReadUint8Span(remaining)
		if err != nil {
			return Metadata{}, err
		}
	case MetadataIamfTags:
		count, err := r.ReadUnsignedLiteral(8)
		if err != nil {
			return Metadata{}, err
		}
		m.IamfTags.Tags = make([]Tag, count)
		for i := range m.IamfTags.Tags {
			name, err := r.ReadString()
			if err != nil {
				return Metadata{}, err
			}
			value, err := r.ReadString()
			if err != nil {
				return Metadata{}, err
			}
			m.IamfTags.Tags[i] = Tag{Name: name, Value: value}
		}
		consumed := r.BytePosition() - start
		m.footer, err = r.ReadUint8Span(int(payloadSize) - consumed)
		if err != nil {
			return Metadata{}, err
		}
	default:
		return Metadata{}, errors.Errorf("iamf: unknown metadata_type %d", m.Type)
	}
	return m, nil
}
