package osc

import (
	"net"
	"testing"
	"time"

	"github.com/scintillator/scsynth/engine/archetypes"
	"github.com/scintillator/scsynth/engine/comp"
	"github.com/scintillator/scsynth/engine/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) (*Server, *Dispatcher, *net.UDPConn) {
	t.Helper()
	d := &Dispatcher{
		Registry:  archetypes.NewRegistry(),
		Tree:      comp.NewRenderTree(),
		Scheduler: scheduler.NewAsync(1),
	}
	server, err := Listen("127.0.0.1:0", d)
	require.NoError(t, err)

	go server.Serve()
	t.Cleanup(func() {
		server.Stop()
		d.Scheduler.Stop()
	})

	raddr := server.conn.LocalAddr().(*net.UDPAddr)
	client, err := net.DialUDP("udp", nil, raddr)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return server, d, client
}

func TestServerDispatchesGroupNewOverUDP(t *testing.T) {
	_, d, client := startTestServer(t)

	_, err := client.Write([]byte("/g_new 10:tail:0"))
	require.NoError(t, err)

	// GroupFreeAll on an existing (even empty) group succeeds; on a
	// missing one it errors, so this doubles as an existence probe.
	assert.Eventually(t, func() bool {
		return d.Tree.GroupFreeAll(10) == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestServerKeepsServingAfterUnknownCommand(t *testing.T) {
	_, d, client := startTestServer(t)

	_, err := client.Write([]byte("/not_a_real_command foo"))
	require.NoError(t, err)

	// A subsequent, valid command must still be processed.
	done := make(chan struct{})
	d.Sync(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server stopped processing after malformed packet")
	}
}

func TestServerKeepsServingAfterMalformedArguments(t *testing.T) {
	_, d, client := startTestServer(t)

	_, err := client.Write([]byte("/n_run notapair"))
	require.NoError(t, err)

	done := make(chan struct{})
	d.Sync(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server stopped processing after malformed /n_run")
	}
}

func TestServerStopClosesSocketAndReturnsFromServe(t *testing.T) {
	d := &Dispatcher{
		Registry:  archetypes.NewRegistry(),
		Tree:      comp.NewRenderTree(),
		Scheduler: scheduler.NewAsync(1),
	}
	defer d.Scheduler.Stop()

	server, err := Listen("127.0.0.1:0", d)
	require.NoError(t, err)

	serveDone := make(chan struct{})
	go func() {
		server.Serve()
		close(serveDone)
	}()

	server.Stop()

	select {
	case <-serveDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}
