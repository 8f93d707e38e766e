// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "errors"

var hex = "0123456789ABCDEF"

var errHexDigit = errors.New("invalid hex digit")

func hexchar(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, errHexDigit
	}
}

// hexToBytes decodes a string of hex digit pairs.
func hexToBytes(s string) ([]byte, error) {
	b := make([]byte, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		hi, err := hexchar(s[i])
		if err != nil {
			return nil, err
		}
		lo, err := hexchar(s[i+1])
		if err != nil {
			return nil, err
		}
		b = append(b, hi<<4|lo)
	}
	return b, nil
}

// Return a little-endian representation of the value using the requested
// number of bytes.
func toBytes(bytes, value int) []byte {
	if bytes == 1 {
		return []byte{byte(value)}
	}
	return []byte{byte(value), byte(value >> 8)}
}

// Return a hexadecimal string representation of a byte slice.
func byteString(b []byte) string {
	if len(b) < 1 {
		return ""
	}

	s := make([]byte, len(b)*3-1)
	i, j := 0, 0
	for n := len(b) - 1; i < n; i, j = i+1, j+3 {
		s[j+0] = hex[(b[i] >> 4)]
		s[j+1] = hex[(b[i] & 0x0f)]
		s[j+2] = ' '
	}
	s[j+0] = hex[(b[i] >> 4)]
	s[j+1] = hex[(b[i] & 0x0f)]
	return string(s)
}
