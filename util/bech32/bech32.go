// Package bech32 implements the address encoding kaspa uses: a human
// readable prefix, the separator :, and a data part over the 32-character
// alphabet "qpzry9x8gf2tvdw0s3jn54khce6mua7l" ending in an 8-character
// checksum.
package bech32

import (
	"strings"

	"github.com/pkg/errors"
)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

const checksumLength = 8

var generator = []uint64{0x98f2bc8e61, 0x79b76d99e2, 0xf33e5fb3c4, 0xae2eabe2a8, 0x1e4f43e470}

// Encode encodes the version byte and payload into an address string with
// the given prefix.
func Encode(prefix string, payload []byte, version byte) string {
	data := make([]byte, 0, len(payload)+1)
	data = append(data, version)
	data = append(data, payload...)
	converted := convertBits(data, 8, 5, true)

	var builder strings.Builder
	builder.WriteString(prefix)
	builder.WriteString(":")
	for _, value := range converted {
		builder.WriteByte(charset[value])
	}
	for _, value := range checksum(prefix, converted) {
		builder.WriteByte(charset[value])
	}
	return builder.String()
}

// Decode parses an address string into its prefix, payload and version byte.
func Decode(encoded string) (prefix string, payload []byte, version byte, err error) {
	if strings.ToLower(encoded) != encoded && strings.ToUpper(encoded) != encoded {
		return "", nil, 0, errors.Errorf("address %q mixes upper and lower case", encoded)
	}
	encoded = strings.ToLower(encoded)

	separatorIndex := strings.LastIndexByte(encoded, ':')
	if separatorIndex < 1 || separatorIndex+checksumLength+1 > len(encoded) {
		return "", nil, 0, errors.Errorf("address %q is missing its prefix or checksum", encoded)
	}
	prefix = encoded[:separatorIndex]
	dataPart := encoded[separatorIndex+1:]

	data := make([]byte, len(dataPart))
	for i := 0; i < len(dataPart); i++ {
		index := strings.IndexByte(charset, dataPart[i])
		if index < 0 {
			return "", nil, 0, errors.Errorf("address %q contains the invalid character %q", encoded, dataPart[i])
		}
		data[i] = byte(index)
	}
	if !verifyChecksum(prefix, data) {
		return "", nil, 0, errors.Errorf("address %q has a bad checksum", encoded)
	}

	converted, err := convertBitsStrict(data[:len(data)-checksumLength], 5, 8)
	if err != nil {
		return "", nil, 0, errors.Wrapf(err, "decoding address %q", encoded)
	}
	if len(converted) == 0 {
		return "", nil, 0, errors.Errorf("address %q carries no payload", encoded)
	}
	return prefix, converted[1:], converted[0], nil
}

func polymod(values []byte) uint64 {
	checksum := uint64(1)
	for _, value := range values {
		topBits := checksum >> 35
		checksum = ((checksum & 0x07ffffffff) << 5) ^ uint64(value)
		for i := 0; i < len(generator); i++ {
			if (topBits>>uint(i))&1 == 1 {
				checksum ^= generator[i]
			}
		}
	}
	return checksum ^ 1
}

func prefixToValues(prefix string) []byte {
	values := make([]byte, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		values[i] = prefix[i] & 0x1f
	}
	// values[len(prefix)] stays 0: the separator sentinel.
	return values
}

func checksum(prefix string, data []byte) []byte {
	values := append(prefixToValues(prefix), data...)
	values = append(values, make([]byte, checksumLength)...)
	mod := polymod(values)

	result := make([]byte, checksumLength)
	for i := 0; i < checksumLength; i++ {
		result[i] = byte(mod>>uint(5*(checksumLength-1-i))) & 0x1f
	}
	return result
}

func verifyChecksum(prefix string, data []byte) bool {
	return polymod(append(prefixToValues(prefix), data...)) == 0
}

// convertBits regroups the input from fromBits-wide to toBits-wide values,
// padding the tail when pad is set.
func convertBits(data []byte, fromBits, toBits uint8, pad bool) []byte {
	result := make([]byte, 0, (len(data)*int(fromBits)+int(toBits)-1)/int(toBits))
	accumulator := uint(0)
	bits := uint8(0)
	for _, value := range data {
		accumulator = accumulator<<fromBits | uint(value)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			result = append(result, byte(accumulator>>bits)&(1<<toBits-1))
		}
	}
	if pad && bits > 0 {
		result = append(result, byte(accumulator<<(toBits-bits))&(1<<toBits-1))
	}
	return result
}

// convertBitsStrict is convertBits without padding; leftover bits must be
// zero padding only.
func convertBitsStrict(data []byte, fromBits, toBits uint8) ([]byte, error) {
	result := make([]byte, 0, len(data)*int(fromBits)/int(toBits))
	accumulator := uint(0)
	bits := uint8(0)
	for _, value := range data {
		accumulator = accumulator<<fromBits | uint(value)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			result = append(result, byte(accumulator>>bits)&(1<<toBits-1))
		}
	}
	if bits >= fromBits || accumulator&(1<<bits-1) != 0 {
		return nil, errors.Errorf("invalid padding bits")
	}
	return result, nil
}
