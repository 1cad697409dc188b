// Package util holds small display-formatting helpers shared by the
// command-line tools. Adapted from the teacher's internal/util, which
// also carried big-endian bitstream cursor readers for codec/playlist
// parsing (ReadUint16, ReadUint32, ReadString, etc.) — dropped here
// since nothing in a UDF reader parses MPEG-TS/BD container bitstreams;
// pkg/udf/encoding.go already owns this module's own (little-endian,
// ECMA-167) byte decoding.
package util

import (
	"fmt"
	"math"
	"strconv"
)

// FormatFileSize renders size in the largest unit that keeps it >= 1
// when human is true, or always in bytes otherwise.
func FormatFileSize(size float64, human bool) string {
	if size <= 0 {
		return "0"
	}
	units := []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}
	group := 0
	if human {
		group = int(math.Log10(size) / math.Log10(1024))
		if group < 0 {
			group = 0
		}
		if group >= len(units) {
			group = len(units) - 1
		}
	}
	return fmt.Sprintf("%.2f %s", size/math.Pow(1024, float64(group)), units[group])
}

// FormatNumber formats an integer with thousands separators.
func FormatNumber(n int64) string {
	if n == 0 {
		return "0"
	}
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return sign + s
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i, c := range s {
		if i != 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, byte(c))
	}
	return sign + string(out)
}
