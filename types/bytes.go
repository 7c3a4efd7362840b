package types

import (
	"encoding/hex"
	"fmt"
)

// HexBytes is a []byte which encodes as hexadecimal in json, as opposed to the
// base64 default.
type HexBytes []byte

// HexBytesFromString decodes a hex string (with or without '0x' prefix) into
// a HexBytes.
func HexBytesFromString(s string) (HexBytes, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	return b, nil
}

// String returns the hexadecimal representation with a '0x' prefix.
func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+4)
	enc[0] = '"'
	enc[1] = '0'
	enc[2] = 'x'
	hex.Encode(enc[3:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %q", data)
	}
	data = data[1 : len(data)-1]
	if len(data) >= 2 && data[0] == '0' && (data[1] == 'x' || data[1] == 'X') {
		data = data[2:]
	}
	*b = make([]byte, hex.DecodedLen(len(data)))
	if _, err := hex.Decode(*b, data); err != nil {
		return err
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler, without the '0x' prefix.
func (b HexBytes) MarshalText() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b)))
	hex.Encode(enc, b)
	return enc, nil
}

// UnmarshalText implements encoding.TextUnmarshaler, accepting an optional
// '0x' prefix.
func (b *HexBytes) UnmarshalText(data []byte) error {
	if len(data) >= 2 && data[0] == '0' && (data[1] == 'x' || data[1] == 'X') {
		data = data[2:]
	}
	*b = make([]byte, hex.DecodedLen(len(data)))
	_, err := hex.Decode(*b, data)
	return err
}
