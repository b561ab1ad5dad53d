package service

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"

	f2prpc "file2pcie/pkg/api/f2prpc/v1"
	"file2pcie/pkg/app"
	"file2pcie/pkg/classify"
	"file2pcie/pkg/history"
	"file2pcie/pkg/resolver"
	"file2pcie/pkg/server"
	"file2pcie/pkg/sysfs/sysfstest"
	"file2pcie/pkg/types"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var nvmePart = types.DeviceNumber{Major: 259, Minor: 1}

// fixedProber 让任何句柄都看起来像 ext4 分区上的普通文件
type fixedProber struct {
	st classify.Stat
}

func (p fixedProber) Probe(h classify.Handle) (classify.Stat, error) { return p.st, nil }

func ext4Stat() classify.Stat {
	return classify.Stat{
		Object: classify.ObjectRegular, FSType: "ext4", MountPoint: "/",
		Dev: nvmePart, Backing: nvmePart, HasBacking: true, BlockSize: 4096,
	}
}

func tmpfsStat() classify.Stat {
	return classify.Stat{Object: classify.ObjectRegular, FSType: "tmpfs", BlockSize: 4096}
}

// setupTestApp 构造一个挂在假 sysfs 上、带内存历史库的 App
func setupTestApp(t *testing.T, p classify.Prober) *app.App {
	tree := sysfstest.New(t)
	_, disk := tree.NVMeDisk("0000:00:1d.0", "0000:3d:00.0", 0, types.DeviceNumber{Major: 259, Minor: 0})
	tree.Partition(disk, "nvme0n1p1", nvmePart, 1)

	// 子测试名里有 "/" 和空格，不能直接放进 URI
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	db := history.NewWithConn(conn)
	require.NoError(t, db.AutoMigrate())

	return &app.App{
		Resolver: resolver.New(p, tree.FS, nil),
		Sysfs:    tree.FS,
		ProcRoot: "/proc",
		Host:     "test-host",
		History:  history.NewRepository(db),
	}
}

// tempFile 创建一个在测试结束前一直打开的文件
func tempFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "payload")
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 8192))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

// startServer 通过 bufconn 跑一个完整的 gRPC 服务端，返回客户端存根
func startServer(t *testing.T, svc f2prpc.PlacementServiceServer) f2prpc.PlacementServiceClient {
	lis := bufconn.Listen(1 << 20)
	s := server.New(svc)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return f2prpc.NewPlacementServiceClient(conn)
}

func int32Ptr(v int32) *int32 { return &v }
