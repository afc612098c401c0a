// Package cryptox implements the cryptography used by SecureCloud: key
// validation, password verifiers and the chunked AES-256-GCM blob format.
//
// Blob layout:
//
//	magic "SCV1" | salt (32) | nonce prefix (7) | chunk size (uint32 BE)
//	sealed chunk 0 | sealed chunk 1 | ... | sealed final chunk
//
// Every sealed chunk is ciphertext followed by a 16-byte GCM tag. The chunk
// nonce is prefix || counter (uint32 BE) || final flag, and the header is the
// additional authenticated data of every chunk, so reordering, truncation,
// extension and header edits are all detected. The AES key of a blob is
// derived from the caller key and the blob salt with HKDF-SHA256.
package cryptox

import (
	"bufio"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/hkdf"
)

const (
	// DefaultChunkSize is the plaintext size of every chunk but the last.
	DefaultChunkSize = 64 * 1024
	// MaxChunkSize bounds the per-chunk buffer a reader will allocate.
	MaxChunkSize = 4 * 1024 * 1024

	blobMagic       = "SCV1"
	blobSaltSize    = 32
	noncePrefixSize = 7
	headerSize      = len(blobMagic) + blobSaltSize + noncePrefixSize + 4
	tagSize         = 16
	hkdfInfo        = "securecloud blob v1"
)

// ErrAuthFailed is returned when a header is malformed or a chunk fails
// authentication. A wrong key and corrupted data produce the same error.
var ErrAuthFailed = errors.New("cryptox: message authentication failed")

// Encrypt reads plaintext from src until EOF and writes the sealed blob to
// dst, holding at most two chunks in memory. It returns the number of
// plaintext bytes consumed.
//
// Errors reading src are wrapped with "read plaintext", errors writing dst
// with "write ciphertext"; callers can inspect the cause with errors.As.
func Encrypt(dst io.Writer, src io.Reader, key Key, chunkSize int) (int64, error) {
	if chunkSize <= 0 || chunkSize > MaxChunkSize {
		return 0, fmt.Errorf("cryptox: invalid chunk size %d", chunkSize)
	}

	header := make([]byte, headerSize)
	copy(header, blobMagic)
	if _, err := rand.Read(header[len(blobMagic) : headerSize-4]); err != nil {
		return 0, fmt.Errorf("generate blob salt: %w", err)
	}
	binary.BigEndian.PutUint32(header[headerSize-4:], uint32(chunkSize))

	aead, err := newBlobAEAD(key, header)
	if err != nil {
		return 0, err
	}

	if _, err := dst.Write(header); err != nil {
		return 0, fmt.Errorf("write ciphertext: %w", err)
	}

	var (
		total  int64
		nonce  = newNonce(header)
		cur    = make([]byte, chunkSize)
		next   = make([]byte, chunkSize)
		sealed = make([]byte, 0, chunkSize+tagSize)
	)

	n, eof, err := readChunk(src, cur)
	if err != nil {
		return 0, err
	}

	for counter := uint32(0); ; counter++ {
		last := eof
		var m int
		if !last {
			m, eof, err = readChunk(src, next)
			if err != nil {
				return total, err
			}
			last = m == 0 && eof
		}

		setNonce(nonce, counter, last)
		sealed = aead.Seal(sealed[:0], nonce, cur[:n], header)
		if _, err := dst.Write(sealed); err != nil {
			return total, fmt.Errorf("write ciphertext: %w", err)
		}
		total += int64(n)

		if last {
			return total, nil
		}
		if counter == math.MaxUint32 {
			return total, errors.New("cryptox: too many chunks")
		}
		cur, next = next, cur
		n = m
	}
}

// readChunk fills buf as far as src allows. eof reports that src returned
// io.EOF. Any other error from src, io.ErrUnexpectedEOF included, is a
// failure of the source and not the end of the plaintext.
func readChunk(src io.Reader, buf []byte) (n int, eof bool, err error) {
	for n < len(buf) {
		m, rerr := src.Read(buf[n:])
		n += m
		switch {
		case errors.Is(rerr, io.EOF):
			return n, true, nil
		case rerr != nil:
			return n, false, fmt.Errorf("read plaintext: %w", rerr)
		}
	}
	return n, false, nil
}

// Reader decrypts a blob produced by Encrypt. It is created with NewReader,
// which already authenticates the first chunk.
type Reader struct {
	src     *bufio.Reader
	aead    cipher.AEAD
	header  []byte
	nonce   []byte
	counter uint32
	sealed  []byte
	plain   []byte
	off     int
	final   bool
	err     error
}

// NewReader parses the blob header from src and decrypts the first chunk.
// A wrong key, a malformed header or a corrupted first chunk all yield
// ErrAuthFailed before any plaintext is available. I/O errors from src are
// returned as-is.
func NewReader(src io.Reader, key Key) (*Reader, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(src, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrAuthFailed
		}
		return nil, fmt.Errorf("read blob header: %w", err)
	}
	if !bytes.Equal(header[:len(blobMagic)], []byte(blobMagic)) {
		return nil, ErrAuthFailed
	}
	chunkSize := int(binary.BigEndian.Uint32(header[headerSize-4:]))
	if chunkSize <= 0 || chunkSize > MaxChunkSize {
		return nil, ErrAuthFailed
	}

	aead, err := newBlobAEAD(key, header)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		src:    bufio.NewReaderSize(src, chunkSize+tagSize+1),
		aead:   aead,
		header: header,
		nonce:  newNonce(header),
		sealed: make([]byte, chunkSize+tagSize),
		plain:  make([]byte, 0, chunkSize),
	}
	if err := r.nextChunk(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	for r.off == len(r.plain) {
		if r.err != nil {
			return 0, r.err
		}
		if r.final {
			return 0, io.EOF
		}
		if err := r.nextChunk(); err != nil {
			r.err = err
			return 0, err
		}
	}
	n := copy(p, r.plain[r.off:])
	r.off += n
	return n, nil
}

func (r *Reader) nextChunk() error {
	n, err := io.ReadFull(r.src, r.sealed)
	last := false
	switch {
	case err == nil:
		if _, perr := r.src.Peek(1); perr != nil {
			if !errors.Is(perr, io.EOF) {
				return fmt.Errorf("read blob: %w", perr)
			}
			last = true
		}
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		last = true
	default:
		return fmt.Errorf("read blob: %w", err)
	}
	if n < tagSize {
		return ErrAuthFailed
	}

	setNonce(r.nonce, r.counter, last)
	plain, err := r.aead.Open(r.plain[:0], r.nonce, r.sealed[:n], r.header)
	if err != nil {
		return ErrAuthFailed
	}
	if !last && r.counter == math.MaxUint32 {
		return ErrAuthFailed
	}

	r.plain = plain
	r.off = 0
	r.final = last
	r.counter++
	return nil
}

func newBlobAEAD(key Key, header []byte) (cipher.AEAD, error) {
	salt := header[len(blobMagic) : len(blobMagic)+blobSaltSize]

	sub := make([]byte, KeySize)
	defer func() {
		for i := range sub {
			sub[i] = 0
		}
	}()
	if _, err := io.ReadFull(hkdf.New(sha256.New, key.b[:], salt, []byte(hkdfInfo)), sub); err != nil {
		return nil, fmt.Errorf("derive blob key: %w", err)
	}

	block, err := aes.NewCipher(sub)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aead, nil
}

func newNonce(header []byte) []byte {
	nonce := make([]byte, noncePrefixSize+5)
	copy(nonce, header[len(blobMagic)+blobSaltSize:len(blobMagic)+blobSaltSize+noncePrefixSize])
	return nonce
}

func setNonce(nonce []byte, counter uint32, last bool) {
	binary.BigEndian.PutUint32(nonce[noncePrefixSize:], counter)
	if last {
		nonce[len(nonce)-1] = 1
	} else {
		nonce[len(nonce)-1] = 0
	}
}
