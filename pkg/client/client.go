package client

import (
	"fmt"
	"time"

	f2prpc "file2pcie/pkg/api/f2prpc/v1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Client 封装与 f2p-server 的连接
type Client struct {
	conn *grpc.ClientConn

	Placement f2prpc.PlacementServiceClient
}

// New 创建客户端；NewClient 立即返回，连接在后台建立
func New(addr string, extra ...grpc.DialOption) (*Client, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(f2prpc.CodecName)),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		// 只有配置错误 (地址格式等) 会在这里出现，网络不通要等第一次调用
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", addr, err)
	}

	return &Client{
		conn:      conn,
		Placement: f2prpc.NewPlacementServiceClient(conn),
	}, nil
}

func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
