package service

import (
	"context"
	"errors"
	"net"
	"runtime"
	"testing"

	f2prpc "file2pcie/pkg/api/f2prpc/v1"
	"file2pcie/pkg/classify"
	"file2pcie/pkg/mounts"
	"file2pcie/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestPlacementService_ResolvePath(t *testing.T) {
	a := setupTestApp(t, fixedProber{st: ext4Stat()})
	svc := NewPlacementService(a)
	f := tempFile(t)

	resp, err := svc.Resolve(context.Background(), &f2prpc.ResolveRequest{Path: f.Name(), Offset: 0, Length: 1024})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.CodeName)
	assert.Equal(t, int32(types.CodeOK), resp.Code)
	assert.Equal(t, "RegularOnLocal", resp.Classification)
	assert.Equal(t, int64(0), resp.SectorStart)
	assert.Equal(t, int64(7), resp.SectorEnd)
	require.Equal(t, int32(1), resp.Count)
	assert.Equal(t, "0000:3d:00.0", resp.Controllers[0].Name)

	// 结果进了历史库
	recs, err := a.History.FindByTarget(context.Background(), f.Name(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "OK", recs[0].Code)
	assert.Equal(t, "test-host", recs[0].Host)
}

func TestPlacementService_ResolveFd(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("needs procfs")
	}
	a := setupTestApp(t, fixedProber{st: ext4Stat()})
	svc := NewPlacementService(a)
	f := tempFile(t)

	resp, err := svc.Resolve(context.Background(), &f2prpc.ResolveRequest{Fd: int32Ptr(int32(f.Fd())), Offset: 4096, Length: 4096})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.CodeName)
	assert.Equal(t, int64(8), resp.SectorStart)
	assert.Equal(t, int64(15), resp.SectorEnd)

	// 不存在的 fd 是句柄无效，不是传输层错误
	resp, err = svc.Resolve(context.Background(), &f2prpc.ResolveRequest{Fd: int32Ptr(1 << 20), Offset: 0, Length: 1})
	require.NoError(t, err)
	assert.Equal(t, "InvalidHandle", resp.CodeName)
	assert.NotEmpty(t, resp.Message)
}

func TestPlacementService_ResolveSocketFd(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("needs procfs")
	}
	svc := NewPlacementService(setupTestApp(t, classify.NewFDProber(mounts.NewProcTable())))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	sock, err := lis.(*net.TCPListener).File()
	require.NoError(t, err)
	defer sock.Close()

	resp, err := svc.Resolve(context.Background(), &f2prpc.ResolveRequest{Fd: int32Ptr(int32(sock.Fd())), Offset: 0, Length: 16})
	require.NoError(t, err)
	assert.Equal(t, "Unresolvable", resp.CodeName)
	assert.Equal(t, "Unresolvable", resp.Classification)
	assert.Equal(t, int32(0), resp.Count)
}

func TestPlacementService_ResolveDomainFailures(t *testing.T) {
	tests := []struct {
		name string
		st   fixedProber
		req  *f2prpc.ResolveRequest
		code string
	}{
		{"zero length", fixedProber{st: ext4Stat()}, &f2prpc.ResolveRequest{Length: 0}, "InvalidHandle"},
		{"negative offset", fixedProber{st: ext4Stat()}, &f2prpc.ResolveRequest{Offset: -4, Length: 1}, "InvalidHandle"},
		{"tmpfs", fixedProber{st: tmpfsStat()}, &f2prpc.ResolveRequest{Length: 16}, "UnsupportedFilesystem"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewPlacementService(setupTestApp(t, tt.st))
			tt.req.Path = tempFile(t).Name()

			resp, err := svc.Resolve(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.CodeName)
			assert.Equal(t, int32(0), resp.Count)
			assert.NotNil(t, resp.Controllers)
		})
	}
}

func TestPlacementService_ResolveInvalidArgument(t *testing.T) {
	svc := NewPlacementService(setupTestApp(t, fixedProber{st: ext4Stat()}))

	_, err := svc.Resolve(context.Background(), &f2prpc.ResolveRequest{Length: 1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.Resolve(context.Background(), &f2prpc.ResolveRequest{Fd: int32Ptr(-1), Length: 1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestPlacementService_History(t *testing.T) {
	a := setupTestApp(t, fixedProber{st: ext4Stat()})
	svc := NewPlacementService(a)
	f := tempFile(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Resolve(context.Background(), &f2prpc.ResolveRequest{Path: f.Name(), Offset: int64(i) * 4096, Length: 16})
		require.NoError(t, err)
	}

	resp, err := svc.History(context.Background(), &f2prpc.HistoryRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, int64(8192), resp.Records[0].Offset, "newest first")
	require.Len(t, resp.Records[0].Controllers, 1)

	_, err = svc.History(context.Background(), &f2prpc.HistoryRequest{Limit: -1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	a.History = nil
	_, err = svc.History(context.Background(), &f2prpc.HistoryRequest{})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestPlacementService_OverGRPC(t *testing.T) {
	client := startServer(t, NewPlacementService(setupTestApp(t, fixedProber{st: ext4Stat()})))
	f := tempFile(t)

	resp, err := client.Resolve(context.Background(), &f2prpc.ResolveRequest{Path: f.Name(), Offset: 0, Length: 1024})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.CodeName)
	require.Len(t, resp.Controllers, 1)
	assert.Equal(t, uint16(0x144d), resp.Controllers[0].VendorID)
	assert.Equal(t, types.ByteRange{Start: 0, End: 1023}, resp.Controllers[0].Bytes)
	assert.Equal(t, "nvme0n1p1", resp.Device.Name)

	hist, err := client.History(context.Background(), &f2prpc.HistoryRequest{Target: f.Name()})
	require.NoError(t, err)
	require.Len(t, hist.Records, 1)

	_, err = client.Resolve(context.Background(), &f2prpc.ResolveRequest{Length: 1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestToResponse(t *testing.T) {
	resp := ToResponse(nil, types.ErrInvalidHandle)
	assert.Equal(t, "InvalidHandle", resp.CodeName)
	assert.Equal(t, "Unresolvable", resp.Classification)
	assert.NotNil(t, resp.Controllers)

	resp = ToResponse(&types.Result{Code: types.CodeNoBackingDevice, Classification: types.RegularOnLocal},
		errors.New("no backing block device: btrfs"))
	assert.Equal(t, int32(types.CodeNoBackingDevice), resp.Code)
	assert.Contains(t, resp.Message, "btrfs")
}
