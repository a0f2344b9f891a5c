// Package slicing derives destination keys from source keys.
//
// A key's slice is the integer before the first "-" of its file name,
// modulo the slice count. The destination is dir/slice/fileName.
package slicing

import (
	"fmt"
	"math/big"
	"path"
	"strconv"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
)

const (
	// Separator is the object key path separator.
	Separator = "/"

	// tokenSeparator ends the numeric token of a file name.
	tokenSeparator = "-"
)

// FileName returns the component of key after its last separator.
func FileName(key string) string {
	if i := strings.LastIndex(key, Separator); i >= 0 {
		return key[i+1:]
	}
	return key
}

// Token returns the part of fileName before the first "-", or the whole
// name when it has none.
func Token(fileName string) string {
	token, _, _ := strings.Cut(fileName, tokenSeparator)
	return token
}

// ParseToken parses token as a base-10 integer of any size.
// Surrounding whitespace, a single leading sign and single underscores
// between digits ("1_000") are accepted.
func ParseToken(token string) (*big.Int, error) {
	s, ok := stripDigitSeparators(strings.TrimSpace(token))
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a base-10 integer", errors.ErrKeyParse, token)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return big.NewInt(n), nil
	}

	// ParseInt fails on overflow too; big.Int covers arbitrarily long digit runs
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a base-10 integer", errors.ErrKeyParse, token)
	}
	return n, nil
}

// stripDigitSeparators removes underscores from s. Each underscore must sit
// between two digits; anything else reports false.
func stripDigitSeparators(s string) (string, bool) {
	if !strings.Contains(s, "_") {
		return s, true
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' {
			b.WriteByte(c)
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return b.String(), true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Index returns the slice index of fileName for the given slice count.
func Index(fileName string, slices int) (int, error) {
	if slices <= 0 {
		return 0, fmt.Errorf("%w: slice count must be positive, got %d", errors.ErrInvalidConfig, slices)
	}

	n, err := ParseToken(Token(fileName))
	if err != nil {
		return 0, err
	}

	// Mod is Euclidean, so the index is never negative
	idx := new(big.Int).Mod(n, big.NewInt(int64(slices)))
	return int(idx.Int64()), nil
}

// DestinationKey maps sourceKey to dir/slice/fileName and returns the slice.
// A trailing separator on dir does not produce an empty path segment.
func DestinationKey(dir, sourceKey string, slices int) (string, int, error) {
	name := FileName(sourceKey)

	idx, err := Index(name, slices)
	if err != nil {
		return "", 0, errors.NewError(errors.OpSlice, err).WithKey(sourceKey)
	}

	return path.Join(dir, strconv.Itoa(idx), name), idx, nil
}
