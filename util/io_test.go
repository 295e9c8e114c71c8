package util

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
)

// TestDrain verifies Drain consumes everything until the peer closes.
func TestDrain(t *testing.T) {
	a, b := net.Pipe()
	payload := bytes.Repeat([]byte("x"), 3*DefaultBufSize+17)

	go func() {
		a.Write(payload) //nolint:errcheck
		a.Close()
	}()

	n, err := Drain(b)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("drained %d bytes, want %d", n, len(payload))
	}
}

// TestDrain_LocalClose verifies closing our own end is not an error.
func TestDrain_LocalClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err == nil {
			defer c.Close()
			io.Copy(io.Discard, c) //nolint:errcheck
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := Drain(conn)
		done <- err
	}()
	conn.Close()

	if err := <-done; err != nil {
		t.Errorf("Drain after local close = %v, want nil", err)
	}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

// TestDrain_Error verifies unexpected errors are returned.
func TestDrain_Error(t *testing.T) {
	boom := errors.New("boom")
	if _, err := Drain(failingReader{boom}); !errors.Is(err, boom) {
		t.Errorf("Drain error = %v, want boom", err)
	}
}

func TestIsClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"eof", io.EOF, true},
		{"net closed", net.ErrClosed, true},
		{"closed pipe", io.ErrClosedPipe, true},
		{"op error", &net.OpError{Op: "read", Net: "tcp", Err: net.ErrClosed}, true},
		{"unexpected eof", io.ErrUnexpectedEOF, false},
		{"other", errors.New("reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsClosed(tt.err); got != tt.want {
				t.Errorf("IsClosed(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
