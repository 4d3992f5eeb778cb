package lines

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMultiline is returned when an item would not survive a round trip
// because its text contains a line break.
var ErrMultiline = errors.New("lines: item contains a line break")

// Encode joins items with "\n" and terminates every item, the last one
// included, with "\n". An empty sequence encodes to "".
func Encode(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	n := len(items)
	for _, item := range items {
		n += len(item)
	}
	b.Grow(n)
	for _, item := range items {
		b.WriteString(item)
		b.WriteByte('\n')
	}
	return b.String()
}

// Decode splits blob into items. Exactly one trailing "\n" is trimmed before
// splitting so the final delimiter does not produce an empty element. "\n" is
// the only delimiter; a "\r" is item text. Decode("") returns an empty,
// non-nil slice.
func Decode(blob string) []string {
	if blob == "" {
		return []string{}
	}
	return strings.Split(strings.TrimSuffix(blob, "\n"), "\n")
}

// Check reports the first item that contains "\n".
func Check(items []string) error {
	for i, item := range items {
		if strings.Contains(item, "\n") {
			return fmt.Errorf("%w: index %d (%q)", ErrMultiline, i, item)
		}
	}
	return nil
}

// Marshal checks items and encodes them into the wire representation.
func Marshal(items []string) ([]byte, error) {
	if err := Check(items); err != nil {
		return nil, err
	}
	return []byte(Encode(items)), nil
}

// Unmarshal decodes a wire representation.
func Unmarshal(data []byte) []string {
	return Decode(string(data))
}

// Format renders scalar values as items using their default textual form,
// so ("one", 2, true) becomes ["one", "2", "true"]. Values whose text spans
// several lines are rejected.
func Format(values ...any) ([]string, error) {
	items := make([]string, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok {
			items[i] = s
			continue
		}
		items[i] = fmt.Sprint(v)
	}
	if err := Check(items); err != nil {
		return nil, err
	}
	return items, nil
}
