package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	ErrEmptyInput    = errors.New("input is empty or not valid JSON")
	ErrInputTooLarge = errors.New("input too large")
)

// UnmarshalJSON decodes the whole of r into v. Unknown fields are rejected.
func UnmarshalJSON[T any](r io.Reader, v *T) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	return decode(data, v)
}

// DecodeLimited is UnmarshalJSON for untrusted readers: inputs longer than
// limit bytes fail with ErrInputTooLarge.
func DecodeLimited[T any](r io.Reader, limit int64, v *T) error {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return err
	}

	if int64(len(data)) > limit {
		return fmt.Errorf("%w: limit is %d bytes", ErrInputTooLarge, limit)
	}

	return decode(data, v)
}

func decode[T any](data []byte, v *T) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyInput
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}
