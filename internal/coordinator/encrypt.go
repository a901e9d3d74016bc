// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

/*
encrypt.go - Authenticated artifact encryption.

Artifacts are encrypted with XChaCha20-Poly1305 in sealed chunks:

	magic "ACV1" | nonce prefix (15 bytes) | chunk...
	chunk: length header (uint32 BE) | ciphertext

Each chunk seals up to 64 KiB of plaintext. The per-chunk nonce is the
file's random prefix, a final-chunk flag byte, and a BE counter, so chunks
cannot be reordered, duplicated, or dropped without failing authentication.
The high bit of the length header marks the final chunk; a stream that ends
without one was truncated.

The symmetric key is derived as SHA-256 of the key material in the
environment variable named by encryption.key_env.
*/
//nolint:staticcheck // File documentation, not package doc
package coordinator

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/tomtom215/archivus/internal/config"
)

const (
	encryptChunkSize = 64 * 1024

	// finalChunkBit marks the last chunk in the length header.
	finalChunkBit = 1 << 31
)

var encryptMagic = []byte("ACV1")

// ErrCiphertextTruncated indicates an encrypted artifact that ends before
// its final chunk.
var ErrCiphertextTruncated = errors.New("encrypted artifact is truncated")

// encryptor seals artifact streams with XChaCha20-Poly1305.
type encryptor struct {
	aead cipher.AEAD
}

// newEncryptor derives the key from the environment variable named by
// cfg.KeyEnv. Callers only construct an encryptor when encryption is
// enabled.
func newEncryptor(cfg config.EncryptionConfig) (*encryptor, error) {
	raw := os.Getenv(cfg.KeyEnv)
	if len(raw) < 32 {
		return nil, fmt.Errorf("%s must hold at least 32 characters of key material", cfg.KeyEnv)
	}

	key := sha256.Sum256([]byte(raw))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	return &encryptor{aead: aead}, nil
}

// extension returns the file name suffix encryption adds.
func (e *encryptor) extension() string { return ".enc" }

// wrap writes the stream header to w and returns a writer that seals all
// written data. The caller must Close the returned writer to seal the
// final chunk; closing it does not close w.
func (e *encryptor) wrap(w io.Writer) (io.WriteCloser, error) {
	var prefix [15]byte
	if _, err := rand.Read(prefix[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce prefix: %w", err)
	}
	if _, err := w.Write(encryptMagic); err != nil {
		return nil, fmt.Errorf("failed to write encryption header: %w", err)
	}
	if _, err := w.Write(prefix[:]); err != nil {
		return nil, fmt.Errorf("failed to write encryption header: %w", err)
	}

	return &encryptWriter{
		w:      w,
		aead:   e.aead,
		prefix: prefix,
		buf:    make([]byte, 0, encryptChunkSize),
	}, nil
}

// unwrap returns a reader that authenticates and decrypts a stream
// produced by wrap.
func (e *encryptor) unwrap(r io.Reader) (io.Reader, error) {
	header := make([]byte, len(encryptMagic)+15)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("failed to read encryption header: %w", err)
	}
	if !bytes.Equal(header[:len(encryptMagic)], encryptMagic) {
		return nil, fmt.Errorf("not an encrypted artifact")
	}

	dr := &decryptReader{r: r, aead: e.aead}
	copy(dr.prefix[:], header[len(encryptMagic):])
	return dr, nil
}

// chunkNonce builds the 24-byte XChaCha20 nonce for one chunk.
func chunkNonce(prefix [15]byte, counter uint64, final bool) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	copy(nonce, prefix[:])
	if final {
		nonce[15] = 1
	}
	binary.BigEndian.PutUint64(nonce[16:], counter)
	return nonce
}

type encryptWriter struct {
	w       io.Writer
	aead    cipher.AEAD
	prefix  [15]byte
	counter uint64
	buf     []byte
	closed  bool
}

func (ew *encryptWriter) Write(p []byte) (int, error) {
	if ew.closed {
		return 0, errors.New("write on closed encrypt writer")
	}

	total := 0
	for len(p) > 0 {
		n := encryptChunkSize - len(ew.buf)
		if n > len(p) {
			n = len(p)
		}
		ew.buf = append(ew.buf, p[:n]...)
		p = p[n:]
		total += n

		if len(ew.buf) == encryptChunkSize {
			if err := ew.flush(false); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// Close seals the final chunk. An artifact always carries one, even when
// its plaintext length is an exact chunk multiple, so truncation is
// detectable.
func (ew *encryptWriter) Close() error {
	if ew.closed {
		return nil
	}
	ew.closed = true
	return ew.flush(true)
}

func (ew *encryptWriter) flush(final bool) error {
	nonce := chunkNonce(ew.prefix, ew.counter, final)
	ct := ew.aead.Seal(nil, nonce, ew.buf, nil)

	header := uint32(len(ct))
	if final {
		header |= finalChunkBit
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], header)

	if _, err := ew.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("failed to write chunk header: %w", err)
	}
	if _, err := ew.w.Write(ct); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}

	ew.counter++
	ew.buf = ew.buf[:0]
	return nil
}

type decryptReader struct {
	r       io.Reader
	aead    cipher.AEAD
	prefix  [15]byte
	counter uint64
	plain   []byte
	final   bool
}

func (dr *decryptReader) Read(p []byte) (int, error) {
	for len(dr.plain) == 0 {
		if dr.final {
			// Anything after the final chunk is tampering.
			var one [1]byte
			if n, _ := dr.r.Read(one[:]); n != 0 {
				return 0, errors.New("trailing data after final chunk")
			}
			return 0, io.EOF
		}
		if err := dr.readChunk(); err != nil {
			return 0, err
		}
	}

	n := copy(p, dr.plain)
	dr.plain = dr.plain[n:]
	return n, nil
}

func (dr *decryptReader) readChunk() error {
	var hdr [4]byte
	if _, err := io.ReadFull(dr.r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrCiphertextTruncated
		}
		return fmt.Errorf("failed to read chunk header: %w", err)
	}

	header := binary.BigEndian.Uint32(hdr[:])
	final := header&finalChunkBit != 0
	length := header &^ uint32(finalChunkBit)
	if int(length) > encryptChunkSize+dr.aead.Overhead() {
		return fmt.Errorf("chunk length %d exceeds maximum", length)
	}

	ct := make([]byte, length)
	if _, err := io.ReadFull(dr.r, ct); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrCiphertextTruncated
		}
		return fmt.Errorf("failed to read chunk: %w", err)
	}

	nonce := chunkNonce(dr.prefix, dr.counter, final)
	plain, err := dr.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return fmt.Errorf("chunk authentication failed: %w", err)
	}

	dr.counter++
	dr.final = final
	dr.plain = plain
	return nil
}
