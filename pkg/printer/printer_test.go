package printer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	f2prpc "file2pcie/pkg/api/f2prpc/v1"
	"file2pcie/pkg/scan"
	"file2pcie/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okResult() *types.Result {
	c := types.Controller{
		VendorID: 0x144d, DeviceID: 0xa808, Bus: 0x3d, Device: 0, Function: 0,
		Class: 0x010802, Name: "0000:3d:00.0", Driver: "nvme",
		Bytes:   types.ByteRange{Start: 0, End: 4095},
		Sectors: types.SectorRange{Start: 2048, End: 2055},
	}
	return &types.Result{
		Classification: types.RegularOnLocal,
		Code:           types.CodeOK,
		FSType:         "ext4",
		MountPoint:     "/",
		Device:         &types.DeviceInfo{Number: "259:1", Name: "nvme0n1p1", Disk: "nvme0n1", Partition: true},
		Sectors:        c.Sectors,
		Controllers:    []types.Controller{c},
		Count:          1,
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	ok := PrintResult(&buf, Query{Target: "/data/x", Offset: 0, Length: 4096}, okResult(), nil)
	require.True(t, ok)

	out := buf.String()
	for _, want := range []string{
		"File:   /data/x",
		"Classification: RegularOnLocal (ext4 on /)",
		"Found 1 PCIe device(s):",
		"Vendor ID: 0x144d",
		"Device ID: 0xa808",
		"Bus:       0x3d",
		"File Offset Range: 0 - 4095 (length: 4.0KB)",
		"Sector Range:      2048 - 2055",
	} {
		assert.Contains(t, out, want)
	}
}

func TestPrintResult_NoControllers(t *testing.T) {
	var buf bytes.Buffer
	res := &types.Result{Classification: types.BlockSpecial, Code: types.CodeOK, Controllers: []types.Controller{}}
	assert.True(t, PrintResult(&buf, Query{Target: "/dev/loop0", Length: 1}, res, nil))
	assert.Contains(t, buf.String(), "No PCIe devices found")
}

func TestPrintResult_Failures(t *testing.T) {
	tests := []struct {
		name string
		res  *types.Result
		err  error
		want string
	}{
		{"pseudo fs", &types.Result{Code: types.CodeUnsupportedFilesystem, FSType: "proc"}, types.ErrUnsupportedFilesystem, "pseudo or network filesystem (proc)"},
		{"no backing", &types.Result{Code: types.CodeNoBackingDevice}, types.ErrNoBackingDevice, "No block device found"},
		{"nil result", nil, fmt.Errorf("%w: x", types.ErrInvalidRange), "Invalid file or range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.False(t, PrintResult(&buf, Query{Target: "t"}, tt.res, tt.err))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestPrintScan(t *testing.T) {
	var buf bytes.Buffer
	PrintScan(&buf, []scan.Item{
		{Path: "a.bin", Result: okResult()},
		{Path: "empty", Result: &types.Result{Code: types.CodeInvalidHandle}, Err: types.ErrInvalidRange},
	})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[1]), "2048-2055")
	assert.Contains(t, string(lines[1]), "0000:3d:00.0")
	assert.Contains(t, string(lines[2]), "InvalidHandle")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	PrintHistory(&buf, nil)
	assert.Contains(t, buf.String(), "No resolutions")

	buf.Reset()
	PrintHistory(&buf, []f2prpc.HistoryRecord{{
		ID: 7, Target: "/data/x", Code: "OK", Device: "nvme0n1p1",
		Offset: 0, Length: 2 << 20, SectorStart: 0, SectorEnd: 4095,
		Controllers: okResult().Controllers, CreatedAt: time.Now(),
	}})
	assert.Contains(t, buf.String(), "2.00MB")
	assert.Contains(t, buf.String(), "0-4095")
}

func TestWriteJSON_ScanEntries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, ScanEntries([]scan.Item{
		{Path: "a", Result: okResult()},
		{Path: "b", Result: &types.Result{Code: types.CodeInvalidHandle}, Err: errors.New("boom")},
	})))

	var back []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	require.Len(t, back, 2)
	assert.Equal(t, "OK", back[0]["result"].(map[string]any)["code"])
	assert.Equal(t, "boom", back[1]["error"])
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("x")))
	assert.Equal(t, int(types.CodeNoBackingDevice),
		ExitCode(fmt.Errorf("wrap: %w", &ExitError{Code: types.CodeNoBackingDevice})))
}
