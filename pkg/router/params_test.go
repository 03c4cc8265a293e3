package router

import (
	"errors"
	"testing"
)

func TestParamsGetAndClone(t *testing.T) {
	var nilParams Params
	if nilParams.Get("id") != "" || nilParams.Clone() != nil {
		t.Error("nil params should be empty")
	}

	p := Params{"id": "1"}
	c := p.Clone()
	c["id"] = "2"
	if p.Get("id") != "1" {
		t.Error("Clone should not share storage")
	}
}

func TestParamsDecode(t *testing.T) {
	type args struct {
		ID      string  `param:"id"`
		Page    int     `param:"page"`
		Limit   uint8   `param:"limit"`
		Ratio   float64 `param:"ratio"`
		Archive bool    `param:"archive"`
		Sort    string  `param:"sort"`
		Ignored string
	}

	got := args{Sort: "recent", Ignored: "kept"}
	p := Params{"id": "42", "page": "3", "limit": "20", "ratio": "0.5", "archive": "true", "Ignored": "x"}
	if err := p.Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := args{ID: "42", Page: 3, Limit: 20, Ratio: 0.5, Archive: true, Sort: "recent", Ignored: "kept"}
	if got != want {
		t.Errorf("Decode() = %+v, want %+v", got, want)
	}
}

func TestParamsDecodeErrors(t *testing.T) {
	var dst struct {
		Page  int      `param:"page"`
		Limit uint8    `param:"limit"`
		Tags  []string `param:"tags"`
	}

	tests := []struct {
		name    string
		params  Params
		target  any
		invalid bool
	}{
		{"not a number", Params{"page": "two"}, &dst, true},
		{"overflow", Params{"limit": "300"}, &dst, true},
		{"unsupported kind", Params{"tags": "a/b"}, &dst, true},
		{"non-pointer", Params{"page": "1"}, dst, false},
		{"nil pointer", Params{"page": "1"}, (*struct{})(nil), false},
		{"pointer to non-struct", Params{"page": "1"}, new(string), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Decode(tt.target)
			if err == nil {
				t.Fatal("Decode() error = nil")
			}
			if got := errors.Is(err, ErrInvalidParam); got != tt.invalid {
				t.Errorf("errors.Is(%v, ErrInvalidParam) = %v, want %v", err, got, tt.invalid)
			}
		})
	}
}
