package lines_test

import (
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/pod_sdk_go/pkg/lines"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "", lines.Encode(nil))
	assert.Equal(t, "", lines.Encode([]string{}))
	assert.Equal(t, "\n", lines.Encode([]string{""}))
	assert.Equal(t, "one\n2\ntrue\n", lines.Encode([]string{"one", "2", "true"}))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		blob     string
		expected []string
	}{
		{name: "empty", blob: "", expected: []string{}},
		{name: "single empty item", blob: "\n", expected: []string{""}},
		{name: "trailing newline", blob: "one\n2\ntrue\n", expected: []string{"one", "2", "true"}},
		{name: "no trailing newline", blob: "a\nb", expected: []string{"a", "b"}},
		{name: "inner empty items kept", blob: "a\n\nb\n\n", expected: []string{"a", "", "b", ""}},
		{name: "carriage returns kept", blob: "a\r\nb\r\n", expected: []string{"a\r", "b\r"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := lines.Decode(tc.blob)
			require.NotNil(t, got)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	fixed := [][]string{
		{},
		{""},
		{"", ""},
		{"a"},
		{"a", "", "b"},
		{"", "trailing", ""},
		{"  spaced  ", "\ttab", "ünïcødé"},
		{"a\r"},
		{"\r"},
		{"x", "y\r"},
		{"a\rb", "\r\r"},
	}
	for _, items := range fixed {
		assert.Equal(t, items, lines.Decode(lines.Encode(items)), "items %q", items)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	alphabet := []rune("ab \t\r,;é")
	for i := 0; i < 500; i++ {
		items := make([]string, rng.Intn(6))
		for j := range items {
			var b strings.Builder
			for k := rng.Intn(4); k > 0; k-- {
				b.WriteRune(alphabet[rng.Intn(len(alphabet))])
			}
			items[j] = b.String()
		}
		require.Equal(t, items, lines.Decode(lines.Encode(items)), "items %q", items)
	}
}

func TestCheckRejectsLineBreaks(t *testing.T) {
	require.NoError(t, lines.Check([]string{"a", "", "b c"}))

	err := lines.Check([]string{"ok", "bad\nitem"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, lines.ErrMultiline))
	assert.Contains(t, err.Error(), "index 1")

	assert.NoError(t, lines.Check([]string{"carriage\r", "a\rb"}))

	_, err = lines.Marshal([]string{"x\ny"})
	assert.ErrorIs(t, err, lines.ErrMultiline)
}

func TestMarshalUnmarshal(t *testing.T) {
	data, err := lines.Marshal([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []byte("a\nb\n"), data)
	assert.Equal(t, []string{"a", "b"}, lines.Unmarshal(data))
	assert.Equal(t, []string{}, lines.Unmarshal(nil))
}

type celsius float64

func (c celsius) String() string { return strconv.FormatFloat(float64(c), 'f', 1, 64) + "C" }

func TestFormat(t *testing.T) {
	items, err := lines.Format("one", 2, true, 1.5, celsius(21.5), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "2", "true", "1.5", "21.5C", "<nil>"}, items)

	_, err = lines.Format("fine", "not\nfine")
	assert.ErrorIs(t, err, lines.ErrMultiline)

	empty, err := lines.Format()
	require.NoError(t, err)
	assert.Empty(t, empty)
}
