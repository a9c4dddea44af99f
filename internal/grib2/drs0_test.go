package grib2

import (
	"encoding/binary"
	"math"
	"testing"
)

// buildDRS0Section assembles a synthetic Section 5 (DRS template 5.0).
func buildDRS0Section(n uint32, r float32, e, d int16, nBits, typeVal byte) []byte {
	sec := make([]byte, 11+10)
	binary.BigEndian.PutUint32(sec[0:4], uint32(len(sec)))
	sec[4] = 5
	binary.BigEndian.PutUint32(sec[5:9], n)
	binary.BigEndian.PutUint16(sec[9:11], 0) // template 5.0

	t := sec[11:]
	binary.BigEndian.PutUint32(t[0:4], math.Float32bits(r))
	binary.BigEndian.PutUint16(t[4:6], uint16(e))
	binary.BigEndian.PutUint16(t[6:8], uint16(d))
	t[8] = nBits
	t[9] = typeVal
	return sec
}

func buildSec7(data []byte) []byte {
	sec7 := make([]byte, 5+len(data))
	binary.BigEndian.PutUint32(sec7[0:4], uint32(len(sec7)))
	sec7[4] = 7
	copy(sec7[5:], data)
	return sec7
}

func TestParseDRS0(t *testing.T) {
	sec := buildDRS0Section(3, 10.0, 0, 0, 8, 0)
	p, err := parseDRS0(sec)
	if err != nil {
		t.Fatal(err)
	}
	if p.N != 3 || p.ReferenceValue != 10.0 || p.Nbits != 8 {
		t.Fatalf("parsed %+v", p)
	}
}

func TestParseDRS0TooShort(t *testing.T) {
	if _, err := parseDRS0([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error on truncated section 5")
	}
}

func TestParseDRS0NbitsTooLarge(t *testing.T) {
	sec := buildDRS0Section(1, 0, 0, 0, 255, 0)
	if _, err := parseDRS0(sec); err == nil {
		t.Fatal("expected error on Nbits exceeding maxBitWidth")
	}
}

func TestUnpackDRS0(t *testing.T) {
	p := drs0Params{
		ReferenceValue:     10.0,
		BinaryScaleFactor:  0,
		DecimalScaleFactor: 0,
		Nbits:              8,
		N:                  3,
	}
	sec7 := buildSec7([]byte{5, 10, 15})
	vals, err := unpackDRS0(sec7, p)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{15, 20, 25}
	for i, w := range want {
		if vals[i] != w {
			t.Errorf("vals[%d] = %v, want %v", i, vals[i], w)
		}
	}
}

func TestUnpackDRS0ConstantField(t *testing.T) {
	p := drs0Params{ReferenceValue: 42.0, Nbits: 0, N: 4}
	vals, err := unpackDRS0(buildSec7(nil), p)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range vals {
		if v != 42.0 {
			t.Errorf("constant field value = %v, want 42.0", v)
		}
	}
}

func TestUnpackDRS0SectionTooShort(t *testing.T) {
	p := drs0Params{N: 1, Nbits: 8}
	if _, err := unpackDRS0([]byte{1, 2}, p); err == nil {
		t.Fatal("expected error on undersized section 7")
	}
}
