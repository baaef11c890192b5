package documents

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

const (
	numberAttempts = 10
	numberSuffix   = 9
	numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NumberGenerator produces a candidate document number for t.
type NumberGenerator func(t Type) string

// ExistsFunc reports whether a document number is already taken.
type ExistsFunc func(ctx context.Context, number string) (bool, error)

// ServiceName classifies a document number by the service code at
// positions 9-10 (GBR-2024-CC-...). Short or unrecognized numbers are TypeUnknown.
func ServiceName(number string) Type {
	if len(number) < 12 {
		return TypeUnknown
	}
	return typeFromCode(number[9:11])
}

// GenerateNumber returns GBR-<year>-<code>-<9 random characters>.
func GenerateNumber(t Type, now time.Time) string {
	// crypto/rand.Reader does not return errors.
	suffix, _ := randomSuffix(rand.Reader)
	return fmt.Sprintf("GBR-%d-%s-%s", now.Year(), t.Code(), suffix)
}

// randomSuffix draws numberSuffix characters uniformly from numberAlphabet.
// Bytes at or above the largest multiple of the alphabet size are discarded
// so no character is favoured.
func randomSuffix(r io.Reader) (string, error) {
	limit := 256 - 256%len(numberAlphabet)
	out := make([]byte, 0, numberSuffix)
	buf := make([]byte, numberSuffix)
	for len(out) < numberSuffix {
		chunk := buf[:numberSuffix-len(out)]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return "", fmt.Errorf("read random suffix: %w", err)
		}
		for _, b := range chunk {
			if int(b) < limit {
				out = append(out, numberAlphabet[int(b)%len(numberAlphabet)])
			}
		}
	}
	return string(out), nil
}

// UniqueDocumentNumber draws candidates from generate until exists reports
// one as free. It gives up with ErrNumberExhausted after ten collisions.
func UniqueDocumentNumber(ctx context.Context, t Type, generate NumberGenerator, exists ExistsFunc) (string, error) {
	for range numberAttempts {
		candidate := generate(t)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check document number: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w for %s after %d attempts", ErrNumberExhausted, t, numberAttempts)
}
