package obd

import (
	"errors"
	"strconv"
	"strings"
)

var errEmptyReply = errors.New("empty reply")

// Decode interprets the last whitespace-delimited token of reply as an
// unsigned hex number and subtracts Bias.
//
// The echoed command and the mode/PID header are not checked, so bytes left
// over from an earlier request are attributed to the current one.
func Decode(reply string) (int, error) {
	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return Invalid, &ParseError{Reply: reply, Err: errEmptyReply}
	}
	v, err := strconv.ParseUint(fields[len(fields)-1], 16, 31)
	if err != nil {
		return Invalid, &ParseError{Reply: reply, Err: err}
	}
	return int(v) - Bias, nil
}

// ParseReply is Decode with failures folded into Invalid.
func ParseReply(reply string) int {
	v, err := Decode(reply)
	if err != nil {
		return Invalid
	}
	return v
}
