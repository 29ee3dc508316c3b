// Package bytesize parses and prints human-readable byte counts for
// configuration values such as reader.max_file_size.
package bytesize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ByteSize is a size in bytes. It unmarshals from strings like "2Gi",
// "500MB" or plain numbers, and marshals back to the shortest exact
// binary form ("2Gi", "1536Ki", "1000").
type ByteSize uint64

const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB
	TB ByteSize = 1000 * GB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

var sizePattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*([a-z]*)\s*$`)

var units = map[string]ByteSize{
	"": B, "b": B,
	"k": KB, "kb": KB,
	"m": MB, "mb": MB,
	"g": GB, "gb": GB,
	"t": TB, "tb": TB,
	"ki": KiB, "kib": KiB,
	"mi": MiB, "mib": MiB,
	"gi": GiB, "gib": GiB,
	"ti": TiB, "tib": TiB,
}

// binaryUnits is ordered largest first for String and MarshalText.
var binaryUnits = []struct {
	size   ByteSize
	suffix string
}{
	{TiB, "Ti"},
	{GiB, "Gi"},
	{MiB, "Mi"},
	{KiB, "Ki"},
}

// ParseByteSize parses "1Gi", "500Mi", "100MB", "1.5Gi" or "1024".
// Units are case-insensitive; binary units are powers of 1024.
func ParseByteSize(s string) (ByteSize, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("empty byte size string")
	}

	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid byte size format: %q", s)
	}

	unit, ok := units[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit: %q", m[2])
	}

	if strings.Contains(m[1], ".") {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number in byte size: %q", m[1])
		}
		return ByteSize(f * float64(unit)), nil
	}

	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in byte size: %q", m[1])
	}
	return ByteSize(n) * unit, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalText implements encoding.TextMarshaler using the largest binary
// unit that divides the value exactly.
func (b ByteSize) MarshalText() ([]byte, error) {
	if b == 0 {
		return []byte("0"), nil
	}
	for _, u := range binaryUnits {
		if b%u.size == 0 {
			return []byte(strconv.FormatUint(uint64(b/u.size), 10) + u.suffix), nil
		}
	}
	return []byte(strconv.FormatUint(uint64(b), 10)), nil
}

// String returns an approximate size with two decimals, e.g. "1.50GiB".
func (b ByteSize) String() string {
	for _, u := range binaryUnits {
		if b >= u.size {
			return fmt.Sprintf("%.2f%sB", float64(b)/float64(u.size), u.suffix)
		}
	}
	return fmt.Sprintf("%dB", b)
}

// Uint64 returns the size as a uint64.
func (b ByteSize) Uint64() uint64 {
	return uint64(b)
}

// Int64 returns the size as an int64. Values above MaxInt64 overflow.
func (b ByteSize) Int64() int64 {
	return int64(b)
}
