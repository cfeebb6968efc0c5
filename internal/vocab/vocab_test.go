package vocab

import (
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultVocabulary(t *testing.T) {
	v := Default()

	assert.Equal(t, 72, v.Size())
	assert.True(t, v.Contains('a'))
	assert.True(t, v.Contains('A'), "upper case is normalised before lookup")
	assert.True(t, v.Contains('\t'))
	assert.False(t, v.Contains('é'))
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []int
	}{
		{
			name:  "empty input",
			input: "",
			want:  []int{},
		},
		{
			name:  "digits map to their value",
			input: "3173",
			want:  []int{3, 1, 7, 3},
		},
		{
			name:  "upper and lower case share codes",
			input: "Vic",
			want:  []int{31, 18, 12},
		},
		{
			name:  "separators",
			input: ", \n",
			want:  []int{47, 68, 70},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeLengthMatchesRuneCount(t *testing.T) {
	inputs := []string{
		"16 colville crescent,keysborough,vic,3173",
		"Dockland shopping centre\n777 Hill Road\nDockland\n3311\nVic",
		"PO BOX 32,Tanah Merah,QLD,3311",
		"a",
	}

	for _, in := range inputs {
		codes, err := Encode(in)
		require.NoError(t, err)
		assert.Len(t, codes, utf8.RuneCountInString(in), in)
		for _, c := range codes {
			assert.GreaterOrEqual(t, c, 0)
			assert.Less(t, c, Default().Size())
		}
	}
}

func TestEncodeRejectsUnknownCharacters(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantOffset int
		wantRune   rune
	}{
		{name: "accented letter", input: "12 rue é", wantOffset: 7, wantRune: 'é'},
		{name: "only unknown characters", input: "ßü", wantOffset: 0, wantRune: 'ß'},
		{name: "offset counts runes not bytes", input: "日本 1", wantOffset: 0, wantRune: '日'},
		{name: "vertical tab", input: "1\v2", wantOffset: 1, wantRune: '\v'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes, err := Encode(tt.input)
			require.Error(t, err)
			assert.Nil(t, codes)
			assert.True(t, errors.Is(err, ErrEncoding))

			var encErr *EncodingError
			require.True(t, errors.As(err, &encErr))
			assert.Equal(t, tt.wantOffset, encErr.Offset)
			assert.Equal(t, tt.wantRune, encErr.Rune)
		})
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	v := Default()

	codes, err := v.Encode("44 South Road, Green Hill")
	require.NoError(t, err)

	text, err := v.Decode(codes)
	require.NoError(t, err)
	assert.Equal(t, "44 south road, green hill", text)

	_, err = v.Decode([]int{0, v.Size()})
	assert.Error(t, err)
	_, err = v.Decode([]int{-1})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	v, err := New("ab ")
	require.NoError(t, err)
	assert.Equal(t, 3, v.Size())

	codes, err := v.Encode("BA ")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 2}, codes)

	_, err = New("aba")
	assert.Error(t, err)

	_, err = New("")
	assert.Error(t, err)
}
