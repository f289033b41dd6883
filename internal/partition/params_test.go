package partition

import (
	"errors"
	"testing"
)

func TestNewParams_Validation(t *testing.T) {
	cases := []struct {
		name     string
		diameter uint32
		width    uint32
		avoid    bool
		radius   uint32
		dir      string
		ok       bool
	}{
		{"valid", 2048, 512, false, 0, "combined", true},
		{"valid origin", 2048, 512, true, 512, "combined", true},
		{"origin radius ignored when disabled", 2048, 512, false, 100, "combined", true},
		{"zero slice", 2048, 0, false, 0, "combined", false},
		{"unaligned slice", 2048, 500, false, 0, "combined", false},
		{"diameter not multiple", 2560, 1024, false, 0, "combined", false},
		{"diameter smaller than slice", 0, 512, false, 0, "combined", false},
		{"origin radius mismatch", 2048, 512, true, 256, "combined", false},
		{"missing directory", 2048, 512, false, 0, "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := NewParams(c.diameter, c.width, c.avoid, c.radius, c.dir)
			if c.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if p.WorldDiameter != c.diameter || p.SliceWidth != c.width {
					t.Fatalf("params not populated: %+v", p)
				}
				return
			}
			if !errors.Is(err, ErrInvalidParams) {
				t.Fatalf("err=%v want ErrInvalidParams", err)
			}
		})
	}
}

func TestParams_SlicesPerRow(t *testing.T) {
	p := mustParams(t, 8192, 1024, false, 0)
	if got := p.SlicesPerRow(); got != 8 {
		t.Fatalf("slices per row=%d want 8", got)
	}
}

func mustParams(t *testing.T, diameter, width uint32, avoid bool, radius uint32) Params {
	t.Helper()
	p, err := NewParams(diameter, width, avoid, radius, t.TempDir())
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	return p
}
