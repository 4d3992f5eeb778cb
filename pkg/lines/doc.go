// Package lines converts an ordered sequence of scalar values to and from the
// newline-delimited text stored in pod resources. Every item is terminated by
// "\n", so Decode(Encode(x)) == x for every sequence of single-line strings.
// No type information survives the round trip: everything comes back as text.
package lines
