package catalog

import (
	"strconv"
	"strings"

	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
)

// homogenizer recognizes example values that can be read as one data type
type homogenizer struct {
	dataType syntax.DataType
	accepts  func(string) bool
}

var homogenizers = []homogenizer{
	{dataType: syntax.DataTypeNumber, accepts: isNumberCandidate},
	{dataType: syntax.DataTypeBoolean, accepts: isBooleanCandidate},
}

func isBooleanCandidate(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f", "false", "0", "t", "true", "1":
		return true
	}
	return false
}

func isNumberCandidate(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// homogenize picks the data type the examples agree on. Any example no
// homogenizer accepts makes the result String; otherwise the type accepting
// the most examples wins, Number before Boolean on a tie. With no examples
// fallback is returned.
func homogenize(examples []string, fallback syntax.DataType) syntax.DataType {
	if len(examples) == 0 {
		return fallback
	}
	counts := make([]int, len(homogenizers))
	for _, e := range examples {
		matched := false
		for i, h := range homogenizers {
			if h.accepts(e) {
				counts[i]++
				matched = true
			}
		}
		if !matched {
			return syntax.DataTypeString
		}
	}

	best := 0
	for i := range homogenizers {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return homogenizers[best].dataType
}
