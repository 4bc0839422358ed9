package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in        string
		parts     []int
		update    int
		hasUpdate bool
		qualifier string
	}{
		{in: "6.10.0", parts: []int{6, 10, 0}},
		{in: "2.11", parts: []int{2, 11}},
		{in: "1.8.0_65", parts: []int{1, 8, 0}, update: 65, hasUpdate: true},
		{in: "1.8.0_265-b01", parts: []int{1, 8, 0}, update: 265, hasUpdate: true, qualifier: "-b01"},
		{in: "11.0.8+10-LTS", parts: []int{11, 0, 8}, qualifier: "+10-LTS"},
		{in: "2.20.1.windows.1", parts: []int{2, 20, 1}, qualifier: "windows.1"},
		{in: "2.15.1 (Apple Git-101)", parts: []int{2, 15, 1}, qualifier: "(Apple Git-101)"},
		{in: " 7.6.0 ", parts: []int{7, 6, 0}},
		{in: "v17", parts: []int{17}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.parts, v.Parts)
			assert.Equal(t, tt.update, v.Update)
			assert.Equal(t, tt.hasUpdate, v.HasUpdate)
			assert.Equal(t, tt.qualifier, v.Qualifier)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "java-11", "1..2"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalid, "input %q", in)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.8", "1.8.0", 0},
		{"1.8.0_65", "1.8.0_64", 1},
		{"1.8.0_65", "1.8.0_9999", -1},
		{"1.8.0_9999", "11", -1},
		{"11.0.7", "11.0.8", -1},
		{"11.0.8+10", "11.0.8", 1},
		{"11.0.20", "12", -1},
		{"2.9", "2.11", -1},
		{"6.9.5", "6.10.0", -1},
		{"7.3.0", "7.3", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got := MustParse(tt.a).Compare(MustParse(tt.b))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, -tt.want, MustParse(tt.b).Compare(MustParse(tt.a)))
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "1.8.0_65", MustParse("1.8.0_65").String())
	assert.Equal(t, "1.8.0_65", Version{Parts: []int{1, 8, 0}, Update: 65, HasUpdate: true}.String())
	assert.Equal(t, "2.20.windows", Version{Parts: []int{2, 20}, Qualifier: "windows"}.String())
	assert.Equal(t, "11.0.8-ea", Version{Parts: []int{11, 0, 8}, Qualifier: "-ea"}.String())
}

func TestMajor(t *testing.T) {
	assert.Equal(t, 7, MustParse("7.21.0").Major())
	assert.Equal(t, 0, Version{}.Major())
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("not-a-version") })
}
