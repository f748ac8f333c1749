package syntax

import (
	"strconv"
	"strings"

	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// DataType is the value type attached to a primitive
type DataType string

const (
	DataTypeUnknown DataType = "Unknown"
	DataTypeString  DataType = "String"
	DataTypeBoolean DataType = "Boolean"
	DataTypeNumber  DataType = "Number"
	DataTypeBinary  DataType = "Binary"
)

// DataTypes lists every data type in declaration order.
func DataTypes() []DataType {
	return []DataType{DataTypeUnknown, DataTypeString, DataTypeBoolean, DataTypeNumber, DataTypeBinary}
}

// ParseDataType resolves a data type by name, ignoring case.
func ParseDataType(s string) (DataType, error) {
	for _, dt := range DataTypes() {
		if strings.EqualFold(string(dt), strings.TrimSpace(s)) {
			return dt, nil
		}
	}
	return DataTypeUnknown, pkgerrors.NewValidationError("unknown data type: " + s)
}

func (dt DataType) String() string {
	return string(dt)
}

// PredictDataType guesses a data type from example values.
func PredictDataType(examples []string) DataType {
	if len(examples) == 0 {
		return DataTypeUnknown
	}

	allBoolean, allNumber := true, true
	for _, e := range examples {
		if !IsBooleanLiteral(e) {
			allBoolean = false
		}
		if !IsNumberLiteral(e) {
			allNumber = false
		}
	}

	switch {
	case allBoolean:
		return DataTypeBoolean
	case allNumber:
		return DataTypeNumber
	default:
		return DataTypeString
	}
}

// IsBooleanLiteral reports whether s is one of true, false, 1 or 0.
func IsBooleanLiteral(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false", "1", "0":
		return true
	}
	return false
}

// IsNumberLiteral reports whether s parses as a float
func IsNumberLiteral(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
