package geo

import "testing"

func TestOpen_EmptyPath_ReturnsNoOpReader(t *testing.T) {
	r, err := Open("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil {
		t.Fatal("expected non-nil Reader")
	}
}

func TestOpen_MissingFile_ReturnsError(t *testing.T) {
	if _, err := Open("/nonexistent/geo.mmdb"); err == nil {
		t.Fatal("expected error for missing mmdb file")
	}
}

func TestLookup_NoOpReader_Misses(t *testing.T) {
	r, _ := Open("")
	if res, ok := r.Lookup("8.8.8.8"); ok {
		t.Errorf("expected miss, got %+v", res)
	}
}

func TestLookup_NilReader_Misses(t *testing.T) {
	var r *Reader
	if _, ok := r.Lookup("8.8.8.8"); ok {
		t.Error("expected miss on nil reader")
	}
}

func TestClose_NoOpReader_NoPanic(t *testing.T) {
	r, _ := Open("")
	r.Close() // should not panic
}
