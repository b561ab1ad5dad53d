package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    DeviceNumber
		wantErr bool
	}{
		{name: "NVMe partition", input: "259:1", want: DeviceNumber{Major: 259, Minor: 1}},
		{name: "Trailing newline", input: "9:0\n", want: DeviceNumber{Major: 9, Minor: 0}},
		{name: "Missing colon", input: "2591", wantErr: true},
		{name: "Bad major", input: "x:1", wantErr: true},
		{name: "Bad minor", input: "8:-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDeviceNumber(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeviceNumber_String(t *testing.T) {
	d := DeviceNumber{Major: 259, Minor: 3}
	assert.Equal(t, "259:3", d.String())
	assert.False(t, d.IsAnonymous())
	assert.True(t, DeviceNumber{Minor: 42}.IsAnonymous())
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want Code
	}{
		{nil, CodeOK},
		{ErrInvalidHandle, CodeInvalidHandle},
		{ErrInvalidRange, CodeInvalidHandle},
		{ErrUnresolvable, CodeUnresolvable},
		{fmt.Errorf("classify: %w", ErrUnsupportedFilesystem), CodeUnsupportedFilesystem},
		{fmt.Errorf("resolve: %w", ErrNoBackingDevice), CodeNoBackingDevice},
		{ErrDeviceNotBound, CodeDeviceNotBound},
		{ErrInvalidBlockSize, CodeInvalidBlockSize},
		{errors.New("boom"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestResult_JSONUsesNames(t *testing.T) {
	res := Result{
		Classification: RegularOnPseudo,
		Code:           CodeUnsupportedFilesystem,
	}
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"classification":"RegularOnPseudo"`)
	assert.Contains(t, string(data), `"code":"UnsupportedFilesystem"`)

	var back Result
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, res.Classification, back.Classification)
	assert.Equal(t, res.Code, back.Code)
}

func TestByteRange_Len(t *testing.T) {
	assert.Equal(t, int64(1024), ByteRange{Start: 0, End: 1023}.Len())
	assert.Equal(t, int64(1), ByteRange{Start: 7, End: 7}.Len())
}
