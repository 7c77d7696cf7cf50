// Package keygen generates the HMAC secret used to sign state tokens.
package keygen

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// DefaultBytes is the key length the server accepts.
const DefaultBytes = 32

// Config holds configuration for key generation.
type Config struct {
	Bytes int
}

// Run generates the key and writes it to out as a SECRET_KEY assignment.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes <= 0 {
		return errors.New("bytes must be greater than zero")
	}
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	_, err := fmt.Fprintf(out, "SECRET_KEY=%s\n", base64.StdEncoding.EncodeToString(buf))
	return err
}
