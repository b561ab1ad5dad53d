//go:build linux

package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"file2pcie/pkg/classify"
	"file2pcie/pkg/mounts"
	"file2pcie/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath_FIFOWithoutWriter(t *testing.T) {
	r := New(classify.NewFDProber(mounts.NewProcTable()), nvmeTree(t).FS, nil)

	fifo := filepath.Join(t.TempDir(), "pipe")
	require.NoError(t, syscall.Mkfifo(fifo, 0600))

	done := make(chan *types.Result, 1)
	go func() {
		res, _ := r.ResolvePath(context.Background(), fifo, Request{Offset: 0, Length: 16})
		done <- res
	}()

	select {
	case res := <-done:
		assert.Equal(t, types.CodeUnresolvable, res.Code)
		assert.Equal(t, types.Unresolvable, res.Classification)
	case <-time.After(3 * time.Second):
		t.Fatal("ResolvePath blocked opening a FIFO")
	}
}

func TestResolvePath_SocketThroughProcfs(t *testing.T) {
	r := New(classify.NewFDProber(mounts.NewProcTable()), nvmeTree(t).FS, nil)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	sock, err := lis.(*net.TCPListener).File()
	require.NoError(t, err)
	defer sock.Close()

	// 活着的 socket 不是无效句柄，只是既不是块设备也不是普通文件
	res, err := r.ResolvePath(context.Background(), fmt.Sprintf("/proc/self/fd/%d", sock.Fd()), Request{Offset: 0, Length: 16})
	assert.True(t, errors.Is(err, types.ErrUnresolvable))
	assert.Equal(t, types.CodeUnresolvable, res.Code)
	assert.Equal(t, 0, res.Count)
}
