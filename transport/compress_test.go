package transport

import (
	"io"
	"net"
	"testing"
	"time"
)

func TestCompStreamRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	cServer := NewCompStream(server)
	cClient := NewCompStream(client)

	payload := []byte("the quick brown fox jumps over the lazy dog")

	done := make(chan struct{})
	go func() {
		defer close(done)
		cServer.Write(payload)
	}()

	cClient.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, len(payload))
	if _, err := io.ReadFull(cClient, buf); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if string(buf) != string(payload) {
		t.Fatalf("got %q, want %q", buf, payload)
	}
	<-done
}
