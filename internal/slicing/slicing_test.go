package slicing

import (
	"math/big"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
)

// TestFileName tests extraction of the last path component.
func TestFileName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{key: "1700000000-a.txt", want: "1700000000-a.txt"},
		{key: "in/2024/1700000000-a.txt", want: "1700000000-a.txt"},
		{key: "/1-a", want: "1-a"},
		{key: "dir/", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.key))
		})
	}
}

// TestToken tests splitting on the first dash only.
func TestToken(t *testing.T) {
	assert.Equal(t, "1700000000", Token("1700000000-a-b.txt"))
	assert.Equal(t, "42", Token("42"))
	assert.Equal(t, "", Token("-leading.txt"))
	assert.Equal(t, "abc", Token("abc-file.txt"))
}

// TestIndex tests slice computation and its failure modes.
func TestIndex(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		slices   int
		want     int
		wantErr  error
	}{
		{name: "mod ten zero", fileName: "1700000000-a.txt", slices: 10, want: 0},
		{name: "mod ten five", fileName: "1700000005-b.txt", slices: 10, want: 5},
		{name: "mod two", fileName: "7-x", slices: 2, want: 1},
		{name: "single slice", fileName: "123-x", slices: 1, want: 0},
		{name: "no dash", fileName: "12", slices: 5, want: 2},
		{name: "explicit plus sign", fileName: "+13-x", slices: 10, want: 3},
		{name: "surrounding space", fileName: " 9 -x", slices: 4, want: 1},
		{name: "beyond int64", fileName: "123456789012345678901234567890-x", slices: 7, want: bigMod("123456789012345678901234567890", 7)},
		{name: "non numeric", fileName: "abc-file.txt", slices: 10, wantErr: errors.ErrKeyParse},
		{name: "extension without dash", fileName: "12345.txt", slices: 10, wantErr: errors.ErrKeyParse},
		{name: "empty token", fileName: "-x.txt", slices: 10, wantErr: errors.ErrKeyParse},
		{name: "underscore separators", fileName: "1_000-x", slices: 10, want: 0},
		{name: "underscore separators remainder", fileName: "1_2_3-x", slices: 10, want: 3},
		{name: "underscore beyond int64", fileName: "123_456789012345678901234567890-x", slices: 7, want: bigMod("123456789012345678901234567890", 7)},
		{name: "double underscore", fileName: "1__000-x", slices: 10, wantErr: errors.ErrKeyParse},
		{name: "leading underscore", fileName: "_1000-x", slices: 10, wantErr: errors.ErrKeyParse},
		{name: "trailing underscore", fileName: "1000_-x", slices: 10, wantErr: errors.ErrKeyParse},
		{name: "underscore after sign", fileName: "+_1000-x", slices: 10, wantErr: errors.ErrKeyParse},
		{name: "zero slices", fileName: "1-x", slices: 0, wantErr: errors.ErrInvalidConfig},
		{name: "negative slices", fileName: "1-x", slices: -3, wantErr: errors.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Index(tt.fileName, tt.slices)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// bigMod returns decimal mod m with math/big, for expectations beyond int64.
func bigMod(decimal string, m int64) int {
	n, ok := new(big.Int).SetString(decimal, 10)
	if !ok {
		panic("bad decimal " + decimal)
	}
	return int(new(big.Int).Mod(n, big.NewInt(m)).Int64())
}

// TestIndex_Range tests that every index lies in [0, slices).
func TestIndex_Range(t *testing.T) {
	for slices := 1; slices <= 13; slices++ {
		for n := 0; n < 200; n++ {
			idx, err := Index(strconv.Itoa(n)+"-f", slices)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, slices)
			assert.Equal(t, n%slices, idx)
		}
	}
}

// TestDestinationKey tests the full mapping, including the reference example.
func TestDestinationKey(t *testing.T) {
	tests := []struct {
		name      string
		dir       string
		key       string
		slices    int
		want      string
		wantSlice int
	}{
		{name: "example a", dir: "out", key: "1700000000-a.txt", slices: 10, want: "out/0/1700000000-a.txt", wantSlice: 0},
		{name: "example b", dir: "out", key: "1700000005-b.txt", slices: 10, want: "out/5/1700000005-b.txt", wantSlice: 5},
		{name: "example c", dir: "out", key: "1700000010-c.txt", slices: 10, want: "out/0/1700000010-c.txt", wantSlice: 0},
		{name: "nested source", dir: "out", key: "in/deep/3-x.bin", slices: 2, want: "out/1/3-x.bin", wantSlice: 1},
		{name: "trailing separator on dir", dir: "out/", key: "3-x.bin", slices: 2, want: "out/1/3-x.bin", wantSlice: 1},
		{name: "nested dir", dir: "a/b", key: "4-x", slices: 3, want: "a/b/1/4-x", wantSlice: 1},
		{name: "empty dir", dir: "", key: "4-x", slices: 3, want: "1/4-x", wantSlice: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, slice, err := DestinationKey(tt.dir, tt.key, tt.slices)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantSlice, slice)

			// pure function: same input, same output
			again, againSlice, err := DestinationKey(tt.dir, tt.key, tt.slices)
			require.NoError(t, err)
			assert.Equal(t, got, again)
			assert.Equal(t, slice, againSlice)
		})
	}
}

// TestDestinationKey_ParseError tests that a bad file name surfaces an error with key context.
func TestDestinationKey_ParseError(t *testing.T) {
	_, _, err := DestinationKey("out", "in/abc-file.txt", 10)
	require.Error(t, err)
	assert.True(t, errors.IsKeyParse(err))
	assert.Contains(t, err.Error(), "in/abc-file.txt")
}
