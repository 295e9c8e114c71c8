// Package noise secures a transport connection with a Noise_XX
// handshake (25519, ChaChaPoly, BLAKE2s).  It backs the authenticated
// connection mode: both sides prove possession of a static key and,
// when the node is configured with trusted keys, unknown peers are
// rejected.
package noise

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/flynn/noise"
	"golang.org/x/crypto/curve25519"

	nerrors "peerkeep/internal/errors"
)

// maxMsgLen is the Noise protocol message limit.
const maxMsgLen = 65535

// maxPlaintext leaves room for the 16-byte AEAD tag.
const maxPlaintext = maxMsgLen - 16

var suite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2s)

// Keypair is a static Curve25519 identity.
type Keypair struct {
	Private []byte
	Public  []byte
}

// GenerateKeypair returns a fresh random identity.
func GenerateKeypair() (Keypair, error) {
	k, err := suite.GenerateKeypair(rand.Reader)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Private: k.Private, Public: k.Public}, nil
}

// KeypairFromPrivate derives the public half of priv.
func KeypairFromPrivate(priv []byte) (Keypair, error) {
	if len(priv) != curve25519.ScalarSize {
		return Keypair{}, fmt.Errorf("private key must be %d bytes, got %d", curve25519.ScalarSize, len(priv))
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Private: append([]byte(nil), priv...), Public: pub}, nil
}

// LoadOrCreateKeypair reads a hex-encoded private key from path,
// generating and saving one (mode 0600) if the file does not exist.
func LoadOrCreateKeypair(path string) (Keypair, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		k, err := GenerateKeypair()
		if err != nil {
			return Keypair{}, err
		}
		if err := os.WriteFile(path, []byte(hex.EncodeToString(k.Private)+"\n"), 0o600); err != nil {
			return Keypair{}, fmt.Errorf("writing key %s: %w", path, err)
		}
		return k, nil
	}
	if err != nil {
		return Keypair{}, fmt.Errorf("reading key %s: %w", path, err)
	}
	priv, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return Keypair{}, fmt.Errorf("key %s: %w", path, err)
	}
	return KeypairFromPrivate(priv)
}

// PublicHex returns the public key as lowercase hex.
func (k Keypair) PublicHex() string { return hex.EncodeToString(k.Public) }

// Conn is an encrypted net.Conn.  Reads may be issued from one
// goroutine while another writes.
type Conn struct {
	net.Conn

	remoteStatic []byte

	readMu  sync.Mutex
	readCS  *noise.CipherState
	pending []byte

	writeMu sync.Mutex
	writeCS *noise.CipherState
}

// RemoteStatic returns the peer's authenticated static public key.
func (c *Conn) RemoteStatic() []byte { return c.remoteStatic }

// Read decrypts the next frame, buffering whatever does not fit in p.
func (c *Conn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.pending) == 0 {
		ct, err := readFrame(c.Conn)
		if err != nil {
			return 0, err
		}
		pt, err := c.readCS.Decrypt(nil, nil, ct)
		if err != nil {
			return 0, fmt.Errorf("noise decrypt: %w", err)
		}
		c.pending = pt
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write encrypts p, splitting it into as many frames as needed.
func (c *Conn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	written := 0
	for len(p) > 0 {
		chunk := p
		if len(chunk) > maxPlaintext {
			chunk = chunk[:maxPlaintext]
		}
		ct, err := c.writeCS.Encrypt(nil, nil, chunk)
		if err != nil {
			return written, fmt.Errorf("noise encrypt: %w", err)
		}
		if err := writeFrame(c.Conn, ct); err != nil {
			return written, err
		}
		written += len(chunk)
		p = p[len(chunk):]
	}
	return written, nil
}

// Client runs the initiator side of Noise_XX over conn.
func Client(conn net.Conn, key Keypair, trusted [][]byte) (*Conn, error) {
	return handshake(conn, key, trusted, true)
}

// Server runs the responder side of Noise_XX over conn.
func Server(conn net.Conn, key Keypair, trusted [][]byte) (*Conn, error) {
	return handshake(conn, key, trusted, false)
}

func handshake(conn net.Conn, key Keypair, trusted [][]byte, initiator bool) (*Conn, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   suite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeXX,
		Initiator:     initiator,
		StaticKeypair: noise.DHKey{Private: key.Private, Public: key.Public},
	})
	if err != nil {
		return nil, err
	}

	// XX: -> e, <- e ee s es, -> s se
	var cs1, cs2 *noise.CipherState
	for step := 0; step < 3; step++ {
		ourTurn := (step%2 == 0) == initiator
		if ourTurn {
			var msg []byte
			msg, cs1, cs2, err = hs.WriteMessage(nil, nil)
			if err != nil {
				return nil, err
			}
			if err := writeFrame(conn, msg); err != nil {
				return nil, err
			}
		} else {
			msg, err := readFrame(conn)
			if err != nil {
				return nil, err
			}
			if _, cs1, cs2, err = hs.ReadMessage(nil, msg); err != nil {
				return nil, fmt.Errorf("%w: %v", nerrors.ErrAuthFailed, err)
			}
		}
	}
	if cs1 == nil || cs2 == nil {
		return nil, fmt.Errorf("noise handshake incomplete")
	}

	remote := hs.PeerStatic()
	if len(trusted) > 0 && !isTrusted(remote, trusted) {
		return nil, fmt.Errorf("%w: untrusted static key %x", nerrors.ErrAuthFailed, remote)
	}

	c := &Conn{Conn: conn, remoteStatic: remote}
	// cs1 encrypts initiator→responder traffic.
	if initiator {
		c.writeCS, c.readCS = cs1, cs2
	} else {
		c.writeCS, c.readCS = cs2, cs1
	}
	return c, nil
}

func isTrusted(key []byte, trusted [][]byte) bool {
	for _, t := range trusted {
		if bytes.Equal(key, t) {
			return true
		}
	}
	return false
}

// ParseTrusted decodes hex public keys.
func ParseTrusted(hexKeys []string) ([][]byte, error) {
	out := make([][]byte, 0, len(hexKeys))
	for _, h := range hexKeys {
		k, err := hex.DecodeString(strings.TrimSpace(h))
		if err != nil || len(k) != curve25519.PointSize {
			return nil, fmt.Errorf("trusted key %q: want %d hex-encoded bytes", h, curve25519.PointSize)
		}
		out = append(out, k)
	}
	return out, nil
}

func writeFrame(w io.Writer, msg []byte) error {
	if len(msg) > maxMsgLen {
		return fmt.Errorf("noise frame too long: %d", len(msg))
	}
	buf := make([]byte, 2+len(msg))
	binary.BigEndian.PutUint16(buf, uint16(len(msg)))
	copy(buf[2:], msg)
	_, err := w.Write(buf)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	if n == 0 {
		return nil, fmt.Errorf("noise: empty frame")
	}
	msg := make([]byte, n)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
