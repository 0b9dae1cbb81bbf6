package tools

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/postconfctl/internal/testutil/testlog"
	"golang.org/x/crypto/ssh"
)

// startStallingServer accepts any key, writes some output for every exec
// and never reports an exit status.
func startStallingServer(t *testing.T) string {
	t.Helper()
	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("host key: %v", err)
	}
	hostSigner, err := ssh.NewSignerFromKey(hostKey)
	if err != nil {
		t.Fatalf("host signer: %v", err)
	}
	config := &ssh.ServerConfig{
		PublicKeyCallback: func(ssh.ConnMetadata, ssh.PublicKey) (*ssh.Permissions, error) {
			return nil, nil
		},
	}
	config.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveStalling(conn, config)
		}
	}()
	return ln.Addr().String()
}

func serveStalling(conn net.Conn, config *ssh.ServerConfig) {
	defer conn.Close()
	_, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)
	for nc := range chans {
		if nc.ChannelType() != "session" {
			_ = nc.Reject(ssh.UnknownChannelType, "session only")
			continue
		}
		ch, chReqs, err := nc.Accept()
		if err != nil {
			continue
		}
		go func() {
			defer ch.Close()
			for req := range chReqs {
				if req.WantReply {
					_ = req.Reply(req.Type == "exec", nil)
				}
				if req.Type == "exec" {
					_, _ = io.WriteString(ch, "main.cf partial\n")
					_, _ = io.WriteString(ch.Stderr(), "postconf: still working\n")
				}
			}
		}()
	}
}

func writeClientKey(t *testing.T) string {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("client key: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(key, "postconfctl-test")
	if err != nil {
		t.Fatalf("marshal client key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write client key: %v", err)
	}
	return path
}

func TestSSHRunnerCancelReturnsWithoutOutput(t *testing.T) {
	testlog.Start(t)
	r := SSHRunner{
		Host:                        startStallingServer(t),
		User:                        "root",
		KeyPath:                     writeClientKey(t),
		InsecureSkipHostKeyChecking: true,
		Timeout:                     5 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	type result struct {
		stdout, stderr []byte
		code           int32
		err            error
	}
	got := make(chan result, 1)
	go func() {
		stdout, stderr, code, err := r.Run(ctx, "postconf", "-h", "mydestination")
		got <- result{stdout, stderr, code, err}
	}()

	select {
	case res := <-got:
		if !errors.Is(res.err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", res.err)
		}
		if res.code != 255 {
			t.Fatalf("expected exit 255, got %d", res.code)
		}
		if res.stdout != nil || res.stderr != nil {
			t.Fatalf("cancelled run must not hand back live buffers: stdout=%q stderr=%q", res.stdout, res.stderr)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
}
