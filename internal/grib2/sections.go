package grib2

import (
	"encoding/binary"
	"fmt"
)

// section0 is the GRIB2 Indicator Section (16 bytes).
type section0 struct {
	Discipline  byte
	Edition     byte
	TotalLength uint64
}

// parseSection0 decodes the 16-byte indicator section.
func parseSection0(b []byte) (section0, error) {
	if len(b) < 16 {
		return section0{}, fmt.Errorf("section 0: need 16 bytes, got %d", len(b))
	}
	if string(b[0:4]) != "GRIB" {
		return section0{}, fmt.Errorf("section 0: missing GRIB magic: %q", b[0:4])
	}
	return section0{
		Discipline:  b[6],
		Edition:     b[7],
		TotalLength: binary.BigEndian.Uint64(b[8:16]),
	}, nil
}

// sectionAt finds a section starting at byte offset off in buf.
// Returns (sectionLen, sectionNum, sectionData, nextOffset).
func sectionAt(buf []byte, off int) (uint32, byte, []byte, int, error) {
	// Check for "7777" end marker first — it is only 4 bytes, not a normal section.
	if off+4 <= len(buf) && buf[off] == '7' && buf[off+1] == '7' && buf[off+2] == '7' && buf[off+3] == '7' {
		return 4, 8, buf[off : off+4], off + 4, nil
	}
	if off+5 > len(buf) {
		return 0, 0, nil, 0, fmt.Errorf("section header at %d: out of bounds (buf=%d)", off, len(buf))
	}
	sLen := binary.BigEndian.Uint32(buf[off : off+4])
	sNum := buf[off+4]
	end64 := uint64(off) + uint64(sLen)
	if end64 > uint64(len(buf)) {
		return 0, 0, nil, 0, fmt.Errorf("section %d at %d: length %d overflows buffer %d",
			sNum, off, sLen, len(buf))
	}
	end := int(end64)
	return sLen, sNum, buf[off:end], end, nil
}

// gdtTemplateNumber reads the Grid Definition Template number from a raw
// Section 3, at the fixed offset common to every GDT.
func gdtTemplateNumber(sec []byte) (int, error) {
	if len(sec) < 14 {
		return 0, fmt.Errorf("section 3: too short to hold a template number (%d bytes)", len(sec))
	}
	return int(binary.BigEndian.Uint16(sec[12:14])), nil
}

// parseSection3Lambert decodes GDT 3.30 (Lambert conformal) using the
// compact layout NOAA's HRRR/NAM CONUS nest messages publish: no
// basic-angle/subdivisions fields, with LaD inserted between the
// resolution flags and LoV. Template offsets (g = sec[14:], start of GDT data):
//
//	g+0       shape of earth (=6)
//	g+1..15   radius/major/minor (all zero for shape=6)
//	g+16..19  Ni
//	g+20..23  Nj
//	g+24..27  La1 (µdeg)
//	g+28..31  Lo1 (µdeg, 0-360)
//	g+32      resolution flags
//	g+33..36  LaD (µdeg, latitude at which Dx/Dy are specified)
//	g+37..40  LoV (µdeg, 0-360)
//	g+41..44  Dx (mm → /1000 = metres)
//	g+45..48  Dy (mm → /1000 = metres)
//	g+49      projection centre flag
//	g+50      scanning mode
//	g+51..54  Latin1 (µdeg)
//	g+55..58  Latin2 (µdeg)
func parseSection3Lambert(sec []byte) (LambertGrid, error) {
	if len(sec) < 14+59 {
		return LambertGrid{}, fmt.Errorf("section 3: too short (%d bytes)", len(sec))
	}
	g := sec[14:]

	u32 := func(off int) uint32 { return binary.BigEndian.Uint32(g[off : off+4]) }

	ni := int(u32(16))
	nj := int(u32(20))
	if ni <= 0 || ni > maxGridDim || nj <= 0 || nj > maxGridDim {
		return LambertGrid{}, fmt.Errorf("section 3: invalid grid dimensions %dx%d (max %d)",
			ni, nj, maxGridDim)
	}

	la1 := float64(int32(u32(24))) / 1e6
	lo1 := float64(u32(28)) / 1e6
	lov := float64(u32(37)) / 1e6
	dx := float64(u32(41)) / 1e3 // mm → m
	dy := float64(u32(45)) / 1e3
	scanMode := g[50]
	latin1 := float64(int32(u32(51))) / 1e6
	latin2 := float64(int32(u32(55))) / 1e6

	if scanMode != 0x40 {
		return LambertGrid{}, fmt.Errorf("section 3: unsupported scan mode 0x%02X (only 0x40 supported)", scanMode)
	}

	return LambertGrid{
		Ni:       ni,
		Nj:       nj,
		La1:      la1,
		Lo1:      lo1,
		LoV:      lov,
		Latin1:   latin1,
		Latin2:   latin2,
		Dx:       dx,
		Dy:       dy,
		ScanMode: scanMode,
	}, nil
}

// parseSection3Regular decodes GDT 3.0 (regular latitude/longitude) as
// published by GFS and ECMWF open-data. Template offsets (g = sec[14:]):
//
//	g+0       shape of earth (=6)
//	g+1..15   radius/major/minor
//	g+16..19  Ni
//	g+20..23  Nj
//	g+24..27  basic angle
//	g+28..31  subdivisions
//	g+32..35  La1 (µdeg)
//	g+36..39  Lo1 (µdeg, 0-360)
//	g+40      resolution flags
//	g+41..44  La2 (µdeg)
//	g+45..48  Lo2 (µdeg, 0-360)
//	g+49..52  Di (µdeg)
//	g+53..56  Dj (µdeg)
//	g+57      scanning mode
func parseSection3Regular(sec []byte) (RegularGrid, error) {
	if len(sec) < 14+58 {
		return RegularGrid{}, fmt.Errorf("section 3: too short (%d bytes)", len(sec))
	}
	g := sec[14:]

	u32 := func(off int) uint32 { return binary.BigEndian.Uint32(g[off : off+4]) }

	ni := int(u32(16))
	nj := int(u32(20))
	if ni <= 0 || ni > maxGridDim || nj <= 0 || nj > maxGridDim {
		return RegularGrid{}, fmt.Errorf("section 3: invalid grid dimensions %dx%d (max %d)",
			ni, nj, maxGridDim)
	}

	la1 := float64(int32(u32(32))) / 1e6
	lo1 := float64(u32(36)) / 1e6
	la2 := float64(int32(u32(41))) / 1e6
	lo2 := float64(u32(45)) / 1e6
	di := float64(u32(49)) / 1e6
	dj := float64(u32(53)) / 1e6
	scanMode := g[57]

	if scanMode != 0x00 {
		return RegularGrid{}, fmt.Errorf("section 3: unsupported scan mode 0x%02X (only 0x00 supported)", scanMode)
	}

	return RegularGrid{
		Ni:       ni,
		Nj:       nj,
		La1:      la1,
		Lo1:      lo1,
		La2:      la2,
		Lo2:      lo2,
		Di:       di,
		Dj:       dj,
		ScanMode: scanMode,
	}, nil
}
