package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	f2prpc "file2pcie/pkg/api/f2prpc/v1"
	"file2pcie/pkg/client"
	"file2pcie/pkg/printer"
	"file2pcie/pkg/resolver"
	"file2pcie/pkg/types"

	"github.com/spf13/cobra"
)

var (
	resolveOffset int64
	resolveLength uint64
	resolveJSON   bool
	resolvePid    int32
	resolveFd     int32
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <path> [offset length]",
	Short: "Show the sectors and NVMe controllers behind a file byte range",
	Long: `Resolve a regular file or block special file plus a byte range into the
sector range on its block device and the NVMe controllers that serve it.

Examples:
  f2p resolve /dev/nvme0n1p1 0 4096
  f2p resolve /data/shard.bin --offset 1048576 --length 65536
  f2p resolve --server localhost:8080 --pid 4242 --fd 7 --length 4096`,
	Args: func(cmd *cobra.Command, args []string) error {
		// --fd 远程模式下可以不给路径
		if cmd.Flags().Changed("fd") && len(args) == 0 {
			return nil
		}
		if len(args) != 1 && len(args) != 3 {
			return fmt.Errorf("expected <path> or <path> <offset> <length>, got %d args", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 3 {
			var err error
			if resolveOffset, err = strconv.ParseInt(args[1], 0, 64); err != nil {
				return fmt.Errorf("invalid offset %q: %w", args[1], err)
			}
			if resolveLength, err = strconv.ParseUint(args[2], 0, 64); err != nil {
				return fmt.Errorf("invalid length %q: %w", args[2], err)
			}
		}
		var path string
		if len(args) > 0 {
			path = args[0]
		}

		var (
			res    *types.Result
			target = path
			err    error
		)
		if serverAddr != "" {
			res, target, err = resolveRemote(cmd, path)
			if res == nil {
				return err
			}
		} else {
			if cmd.Flags().Changed("fd") {
				return fmt.Errorf("--fd requires --server")
			}
			req := resolver.Request{Offset: resolveOffset, Length: resolveLength}
			res, err = F2P.Resolver.ResolvePath(cmd.Context(), path, req)
			F2P.Record(cmd.Context(), path, req, res)
		}

		if resolveJSON {
			if jerr := printer.WriteJSON(os.Stdout, res); jerr != nil {
				return jerr
			}
		} else {
			printer.PrintResult(os.Stdout, printer.Query{Target: target, Offset: resolveOffset, Length: resolveLength}, res, err)
		}
		if res.Code != types.CodeOK {
			return &printer.ExitError{Code: res.Code, Err: err}
		}
		return nil
	},
}

// resolveRemote 通过 gRPC 解析；返回 nil Result 表示传输层失败
func resolveRemote(cmd *cobra.Command, path string) (*types.Result, string, error) {
	c, err := client.New(serverAddr)
	if err != nil {
		return nil, "", err
	}
	defer c.Close()

	req := &f2prpc.ResolveRequest{Path: path, Offset: resolveOffset, Length: resolveLength}
	target := path
	if cmd.Flags().Changed("fd") {
		req.Pid = resolvePid
		req.Fd = &resolveFd
		target = fmt.Sprintf("%d:%d", resolvePid, resolveFd)
	}

	resp, err := c.Placement.Resolve(cmd.Context(), req)
	if err != nil {
		return nil, "", fmt.Errorf("remote resolve failed: %w", err)
	}
	res, err := resultFromResponse(resp)
	if err != nil {
		return nil, "", err
	}
	if resp.Message != "" {
		return res, target, errors.New(resp.Message)
	}
	return res, target, nil
}

func resultFromResponse(resp *f2prpc.ResolveResponse) (*types.Result, error) {
	res := &types.Result{
		Code:        types.Code(resp.Code),
		FSType:      resp.FSType,
		MountPoint:  resp.MountPoint,
		Device:      resp.Device,
		Sectors:     types.SectorRange{Start: resp.SectorStart, End: resp.SectorEnd},
		Controllers: resp.Controllers,
		Count:       int(resp.Count),
	}
	if err := res.Classification.UnmarshalText([]byte(resp.Classification)); err != nil {
		return nil, fmt.Errorf("bad response from server: %w", err)
	}
	if res.Controllers == nil {
		res.Controllers = []types.Controller{}
	}
	return res, nil
}

func init() {
	flags := resolveCmd.Flags()
	flags.Int64Var(&resolveOffset, "offset", 0, "byte offset into the file")
	flags.Uint64Var(&resolveLength, "length", 4096, "number of bytes")
	flags.BoolVar(&resolveJSON, "json", false, "print the result as JSON")
	flags.Int32Var(&resolvePid, "pid", 0, "with --server and --fd: owning process (0 means the server itself)")
	flags.Int32Var(&resolveFd, "fd", 0, "with --server: resolve an open descriptor instead of a path")
	rootCmd.AddCommand(resolveCmd)
}
