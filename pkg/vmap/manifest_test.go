package vmap

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func createTestManifest(t *testing.T, infos []ModelInfo) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteManifest(&buf, infos); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}
	return buf.Bytes()
}

func TestManifest_RoundTrip(t *testing.T) {
	infos := []ModelInfo{
		{DisplayID: 1, IsWMO: true, Name: "gate.wmo.vmo", Bound: box(-5, -1, 0, 5, 1, 8)},
		{DisplayID: 2, Name: "crate.m2.vmo", Bound: box(-0.5, -0.5, 0, 0.5, 0.5, 1)},
	}
	path := filepath.Join(t.TempDir(), "temp_gameobject_models")
	if err := os.WriteFile(path, createTestManifest(t, infos), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadManifestFile(path)
	if err != nil {
		t.Fatalf("ReadManifestFile failed: %v", err)
	}
	if len(got) != len(infos) {
		t.Fatalf("expected %d records, got %d", len(infos), len(got))
	}
	for i := range infos {
		if got[i] != infos[i] {
			t.Errorf("record %d: expected %+v, got %+v", i, infos[i], got[i])
		}
	}
}

func TestManifest_Empty(t *testing.T) {
	got, err := ReadManifest(bytes.NewReader(createTestManifest(t, nil)))
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}

func TestManifest_TruncatedRecord(t *testing.T) {
	data := createTestManifest(t, []ModelInfo{{DisplayID: 7, Name: "x.vmo"}})

	for _, cut := range []int{len(Magic) + 2, len(Magic) + 6, len(data) - 1} {
		_, err := ReadManifest(bytes.NewReader(data[:cut]))
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("cut at %d: expected ErrTruncated, got %v", cut, err)
		}
	}
}

func TestManifest_BadMagic(t *testing.T) {
	_, err := ReadManifest(bytes.NewReader([]byte("NOTVMAP!")))
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("expected ErrInvalidMagic, got %v", err)
	}
}
