// Package printer 负责 CLI 的人类可读输出和 JSON 输出
package printer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	f2prpc "file2pcie/pkg/api/f2prpc/v1"
	"file2pcie/pkg/scan"
	"file2pcie/pkg/types"
)

// Query 是被解析的目标，只用于打印抬头
type Query struct {
	Target string
	Offset int64
	Length uint64
}

// PrintResult 打印一次解析的完整报告
// 失败时打印原因和提示，返回 false
func PrintResult(w io.Writer, q Query, res *types.Result, err error) bool {
	fmt.Fprintf(w, "Querying PCIe devices for:\n")
	fmt.Fprintf(w, "  File:   %s\n", q.Target)
	fmt.Fprintf(w, "  Offset: %d\n", q.Offset)
	fmt.Fprintf(w, "  Length: %d\n\n", q.Length)

	if res == nil {
		res = &types.Result{Code: types.CodeOf(err)}
	}
	if res.Code != types.CodeOK {
		printFailure(w, res, err)
		return false
	}

	fmt.Fprintf(w, "Classification: %s", res.Classification)
	if res.FSType != "" {
		fmt.Fprintf(w, " (%s on %s)", res.FSType, res.MountPoint)
	}
	fmt.Fprintln(w)
	if res.Device != nil {
		fmt.Fprintf(w, "Block device:   %s [%s] disk %s\n", res.Device.Name, res.Device.Number, res.Device.Disk)
	}
	fmt.Fprintln(w)

	if res.Count == 0 {
		fmt.Fprintf(w, "No PCIe devices found for this file segment.\n")
		fmt.Fprintf(w, "The file is on a block device, but the device is not behind an NVMe controller\n")
		fmt.Fprintf(w, "(e.g., USB, SCSI, or other bus types).\n")
		return true
	}

	fmt.Fprintf(w, "Found %d PCIe device(s):\n", res.Count)
	fmt.Fprintf(w, "----------------------------------------\n")
	for i, c := range res.Controllers {
		fmt.Fprintf(w, "Device %d:\n", i+1)
		fmt.Fprintf(w, "  Name:      %s\n", c.Name)
		fmt.Fprintf(w, "  Vendor ID: 0x%04x\n", c.VendorID)
		fmt.Fprintf(w, "  Device ID: 0x%04x\n", c.DeviceID)
		fmt.Fprintf(w, "  Bus:       0x%02x\n", c.Bus)
		fmt.Fprintf(w, "  Device:    0x%02x\n", c.Device)
		fmt.Fprintf(w, "  Function:  0x%02x\n", c.Function)
		if c.Driver != "" {
			fmt.Fprintf(w, "  Driver:    %s\n", c.Driver)
		}
		fmt.Fprintf(w, "  File Offset Range: %d - %d (length: %s)\n", c.Bytes.Start, c.Bytes.End, fmtSize(c.Bytes.Len()))
		fmt.Fprintf(w, "  Sector Range:      %d - %d\n\n", c.Sectors.Start, c.Sectors.End)
	}
	return true
}

func printFailure(w io.Writer, res *types.Result, err error) {
	fmt.Fprintf(w, "Error: %s\n", res.Code)
	switch res.Code {
	case types.CodeUnsupportedFilesystem:
		fmt.Fprintf(w, "File is on a pseudo or network filesystem (%s); no block device backs it.\n", res.FSType)
	case types.CodeNoBackingDevice:
		fmt.Fprintf(w, "No block device found for this file. It may be on a virtual filesystem.\n")
	case types.CodeInvalidHandle:
		fmt.Fprintf(w, "Invalid file or range.\n")
	}
	if err != nil {
		fmt.Fprintf(w, "  %v\n", err)
	}
}

// PrintScan 每个文件一行，控制器名字用逗号连接
func PrintScan(w io.Writer, items []scan.Item) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "CODE\tCLASS\tDEVICE\tSECTORS\tCONTROLLERS\tPATH\n")
	for _, it := range items {
		res := it.Result
		if res == nil {
			res = &types.Result{Code: types.CodeOf(it.Err)}
		}
		dev := "-"
		if res.Device != nil {
			dev = res.Device.Name
		}
		sectors := "-"
		if res.Code == types.CodeOK {
			sectors = fmt.Sprintf("%d-%d", res.Sectors.Start, res.Sectors.End)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", res.Code, res.Classification, dev, sectors, controllerNames(res.Controllers), it.Path)
	}
	tw.Flush()
}

// PrintHistory 打印历史记录，最新的在前
func PrintHistory(w io.Writer, records []f2prpc.HistoryRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No resolutions recorded yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "ID\tTIME\tCODE\tDEVICE\tRANGE\tSECTORS\tCONTROLLERS\tTARGET\n")
	for _, r := range records {
		dev := r.Device
		if dev == "" {
			dev = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d+%s\t%d-%d\t%s\t%s\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Code, dev,
			r.Offset, fmtSize(int64(r.Length)), r.SectorStart, r.SectorEnd,
			controllerNames(r.Controllers), r.Target)
	}
	tw.Flush()
}

// WriteJSON 以缩进 JSON 输出任意结果
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ScanEntry 是 scan 的 JSON 行：错误转成字符串
type ScanEntry struct {
	Path   string        `json:"path"`
	Result *types.Result `json:"result"`
	Error  string        `json:"error,omitempty"`
}

func ScanEntries(items []scan.Item) []ScanEntry {
	out := make([]ScanEntry, 0, len(items))
	for _, it := range items {
		e := ScanEntry{Path: it.Path, Result: it.Result}
		if it.Err != nil {
			e.Error = it.Err.Error()
		}
		out = append(out, e)
	}
	return out
}

// ExitError 让命令以结果码作为退出码，而不是统一的 1
type ExitError struct {
	Code types.Code
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code.String()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode 从错误链中取出退出码
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return int(ee.Code)
	}
	return 1
}

func controllerNames(cs []types.Controller) string {
	if len(cs) == 0 {
		return "-"
	}
	s := cs[0].Name
	for _, c := range cs[1:] {
		s += "," + c.Name
	}
	return s
}

func fmtSize(s int64) string {
	if s < 1024 {
		return fmt.Sprintf("%dB", s)
	} else if s < 1024*1024 {
		return fmt.Sprintf("%.1fKB", float64(s)/1024)
	}
	return fmt.Sprintf("%.2fMB", float64(s)/1024/1024)
}
