package gpucore

import (
	"slices"
	"testing"
)

func TestFormatBytesPerTexel(t *testing.T) {
	tests := []struct {
		format Format
		want   int
	}{
		{FormatUndefined, 0},
		{FormatR8Unorm, 1},
		{FormatRGBA8Unorm, 4},
		{FormatBGRA8Unorm, 4},
		{FormatRG16Float, 4},
		{FormatRGBA16Float, 8},
		{FormatRGBA16Snorm, 8},
		{FormatR32Float, 4},
		{FormatDepth24PlusStencil8, 4},
		{FormatDepth32FloatStencil8, 8},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			if got := tt.format.BytesPerTexel(); got != tt.want {
				t.Errorf("BytesPerTexel() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatIsDepthStencil(t *testing.T) {
	for _, f := range []Format{FormatDepth24PlusStencil8, FormatDepth32FloatStencil8} {
		if !f.IsDepthStencil() {
			t.Errorf("%s should be depth-stencil", f)
		}
	}
	for _, f := range []Format{FormatUndefined, FormatBGRA8Unorm, FormatR32Float} {
		if f.IsDepthStencil() {
			t.Errorf("%s should not be depth-stencil", f)
		}
	}
}

func TestFormatEncodeColor(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		rgba   [4]float32
		want   []byte
		ok     bool
	}{
		{"rgba red", FormatRGBA8Unorm, [4]float32{1, 0, 0, 1}, []byte{255, 0, 0, 255}, true},
		{"bgra red", FormatBGRA8Unorm, [4]float32{1, 0, 0, 1}, []byte{0, 0, 255, 255}, true},
		{"r8 half", FormatR8Unorm, [4]float32{0.5, 1, 1, 1}, []byte{128}, true},
		{"clamped", FormatRGBA8Unorm, [4]float32{-1, 2, 0, 1}, []byte{0, 255, 0, 255}, true},
		{"float format", FormatRGBA16Float, [4]float32{}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.format.EncodeColor(tt.rgba)
			if ok != tt.ok || !slices.Equal(got, tt.want) {
				t.Errorf("EncodeColor = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLayoutString(t *testing.T) {
	tests := []struct {
		layout Layout
		want   string
	}{
		{LayoutUndefined, "Undefined"},
		{LayoutGeneral, "General"},
		{LayoutTransferDst, "TransferDst"},
		{LayoutShaderReadOnly, "ShaderReadOnly"},
		{LayoutDepthStencilAttachment, "DepthStencilAttachment"},
	}
	for _, tt := range tests {
		if got := tt.layout.String(); got != tt.want {
			t.Errorf("Layout(%d).String() = %q, want %q", tt.layout, got, tt.want)
		}
	}
}
