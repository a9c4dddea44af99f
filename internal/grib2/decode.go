package grib2

import (
	"encoding/binary"
	"fmt"
)

// GridKind distinguishes the two Section 3 templates this package decodes.
type GridKind int

const (
	GridLambert GridKind = iota
	GridRegular
)

// Message is a decoded GRIB2 field: grid metadata (one of Lambert or
// Regular, selected by Kind) plus the row-major float64 values.
// Vals is indexed [j*Ni+i] with i eastward; j runs northward on Lambert
// grids (scan mode 0x40) and from La1 toward La2 on regular grids (scan
// mode 0x00).
type Message struct {
	Kind    GridKind
	Lambert LambertGrid
	Regular RegularGrid
	Vals    []float64
}

// Ni and Nj return the grid's dimensions regardless of Kind.
func (m *Message) Ni() int {
	if m.Kind == GridRegular {
		return m.Regular.Ni
	}
	return m.Lambert.Ni
}

func (m *Message) Nj() int {
	if m.Kind == GridRegular {
		return m.Regular.Nj
	}
	return m.Lambert.Nj
}

// DecodeMessage decodes a raw GRIB2 message (all sections) into a Message.
func DecodeMessage(raw []byte) (*Message, error) {
	if _, err := parseSection0(raw); err != nil {
		return nil, err
	}

	off := 16 // skip Section 0

	var err error
	var kind GridKind
	var lambert *LambertGrid
	var regular *RegularGrid
	drsTemplate := -1
	var drs0P drs0Params
	var drs53P drs53Params
	hasDRS := false
	var sec7 []byte
	var bitmapData bitmapSection // non-nil when Section 6 flag=0 (bitmap present)

	for off < len(raw) {
		if off+4 <= len(raw) && raw[off] == '7' && raw[off+1] == '7' && raw[off+2] == '7' && raw[off+3] == '7' {
			break
		}
		sLen, sNum, sec, next, err := sectionAt(raw, off)
		if err != nil {
			return nil, err
		}
		_ = sLen

		switch sNum {
		case 1, 2, 4:
			// Identification / local use / product definition — not needed for decode
		case 3:
			tmpl, terr := gdtTemplateNumber(sec)
			if terr != nil {
				return nil, fmt.Errorf("section 3: %w", terr)
			}
			switch tmpl {
			case 30:
				g, perr := parseSection3Lambert(sec)
				if perr != nil {
					return nil, fmt.Errorf("section 3: %w", perr)
				}
				lambert = &g
				kind = GridLambert
			case 0:
				g, perr := parseSection3Regular(sec)
				if perr != nil {
					return nil, fmt.Errorf("section 3: %w", perr)
				}
				regular = &g
				kind = GridRegular
			default:
				return nil, fmt.Errorf("unsupported grid definition template 3.%d (supported: 3.0, 3.30)", tmpl)
			}
		case 5:
			if len(sec) < 11 {
				return nil, fmt.Errorf("section 5 too short")
			}
			tmplNum := int(binary.BigEndian.Uint16(sec[9:11]))
			switch tmplNum {
			case 0:
				drs0P, err = parseDRS0(sec)
				if err != nil {
					return nil, fmt.Errorf("section 5: %w", err)
				}
			case 3:
				drs53P, err = parseDRS53(sec)
				if err != nil {
					return nil, fmt.Errorf("section 5: %w", err)
				}
			default:
				return nil, fmt.Errorf("unsupported DRS template %d (supported: 5.0, 5.3)", tmplNum)
			}
			drsTemplate = tmplNum
			hasDRS = true
		case 6:
			if len(sec) < 6 {
				return nil, fmt.Errorf("section 6 too short")
			}
			switch sec[5] {
			case 255:
				// No bitmap — all grid points have data
			case 0:
				bitmapData = sec[6:]
			default:
				return nil, fmt.Errorf("bitmap section: unsupported indicator %d", sec[5])
			}
		case 7:
			sec7 = sec
		}
		off = next
	}

	if lambert == nil && regular == nil {
		return nil, fmt.Errorf("no Section 3 found in message")
	}
	if !hasDRS {
		return nil, fmt.Errorf("no Section 5 found in message")
	}
	if sec7 == nil {
		return nil, fmt.Errorf("no Section 7 found in message")
	}

	var ni, nj int
	if kind == GridLambert {
		ni, nj = lambert.Ni, lambert.Nj
	} else {
		ni, nj = regular.Ni, regular.Nj
	}

	var vals []float64
	switch drsTemplate {
	case 0:
		vals, err = unpackDRS0(sec7, drs0P)
		if err != nil {
			return nil, fmt.Errorf("unpack DRS 5.0: %w", err)
		}
	case 3:
		vals, err = unpackDRS53(sec7, drs53P)
		if err != nil {
			return nil, fmt.Errorf("unpack DRS 5.3: %w", err)
		}
	}

	if bitmapData != nil {
		vals, err = applyBitmap(vals, bitmapData, ni*nj)
		if err != nil {
			return nil, fmt.Errorf("applying bitmap: %w", err)
		}
	}

	expected64 := int64(ni) * int64(nj)
	if int64(len(vals)) != expected64 {
		return nil, fmt.Errorf("decoded %d values, expected %d (%dx%d)",
			len(vals), expected64, ni, nj)
	}

	msg := &Message{Kind: kind, Vals: vals}
	if kind == GridLambert {
		msg.Lambert = *lambert
	} else {
		msg.Regular = *regular
	}
	return msg, nil
}
