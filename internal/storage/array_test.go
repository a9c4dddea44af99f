package storage

import (
	"context"
	"testing"
	"time"

	"github.com/synopticspread/spread/internal/domain"
)

func TestHandleKey(t *testing.T) {
	init := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	got := HandleKey(init, domain.Precip, 6)
	want := "2024011500/precip/fhr006"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestArrayStorePutGetRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenArrayStore(context.Background(), "file://"+dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	field := ArrayField{
		LatAxis: []float64{10, 10.25, 10.5},
		LonAxis: []float64{-100, -99.75},
		Values:  []float64{1, 2, 3, 4, 5, 6},
	}
	handle := HandleKey(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), domain.MSLP, 12)

	if err := store.Put(context.Background(), handle, field); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(context.Background(), handle)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Values) != len(field.Values) {
		t.Fatalf("got %d values, want %d", len(got.Values), len(field.Values))
	}
	for i := range field.Values {
		if got.Values[i] != field.Values[i] {
			t.Errorf("value[%d] = %v, want %v", i, got.Values[i], field.Values[i])
		}
	}
	for i := range field.LatAxis {
		if got.LatAxis[i] != field.LatAxis[i] {
			t.Errorf("lat_axis[%d] = %v, want %v", i, got.LatAxis[i], field.LatAxis[i])
		}
	}
}

func TestArrayStoreGetMissingHandle(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenArrayStore(context.Background(), "file://"+dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.Get(context.Background(), "2024011500/precip/fhr999"); err == nil {
		t.Fatal("expected error for missing handle")
	}
}

func TestArrayStoreDropTree(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenArrayStore(context.Background(), "file://"+dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	init := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	field := ArrayField{LatAxis: []float64{1}, LonAxis: []float64{1}, Values: []float64{1}}
	for _, lh := range []int{0, 6, 12} {
		handle := HandleKey(init, domain.Precip, lh)
		if err := store.Put(context.Background(), handle, field); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.DropTree(context.Background(), "2024011500/precip/"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), HandleKey(init, domain.Precip, 0)); err == nil {
		t.Fatal("expected handle to be gone after DropTree")
	}
}

func TestOpenArrayStoreUnsupportedScheme(t *testing.T) {
	if _, err := OpenArrayStore(context.Background(), "ftp://nope"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
