package types

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidHandle         = errors.New("handle does not refer to a live file")
	ErrInvalidRange          = errors.New("invalid byte range")
	ErrUnresolvable          = errors.New("handle is neither a block special file nor a regular file")
	ErrUnsupportedFilesystem = errors.New("filesystem has no block backing (pseudo or network)")
	ErrNoBackingDevice       = errors.New("no backing block device")
	ErrDeviceNotBound        = errors.New("block special file has no bound device")
	ErrInvalidBlockSize      = errors.New("filesystem block size smaller than one sector")
)

// Code 是返回给调用方的结果码，调用方可以直接 switch
type Code int

const (
	CodeOK Code = iota
	CodeInvalidHandle
	CodeUnresolvable
	CodeUnsupportedFilesystem
	CodeNoBackingDevice
	CodeDeviceNotBound
	CodeInvalidBlockSize
	CodeInternal
)

var codeNames = map[Code]string{
	CodeOK:                    "OK",
	CodeInvalidHandle:         "InvalidHandle",
	CodeUnresolvable:          "Unresolvable",
	CodeUnsupportedFilesystem: "UnsupportedFilesystem",
	CodeNoBackingDevice:       "NoBackingDevice",
	CodeDeviceNotBound:        "DeviceNotBound",
	CodeInvalidBlockSize:      "InvalidBlockSize",
	CodeInternal:              "Internal",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// CodeOf 把错误 1:1 映射为结果码，不做任何"升级"
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidHandle), errors.Is(err, ErrInvalidRange):
		return CodeInvalidHandle
	case errors.Is(err, ErrUnresolvable):
		return CodeUnresolvable
	case errors.Is(err, ErrUnsupportedFilesystem):
		return CodeUnsupportedFilesystem
	case errors.Is(err, ErrNoBackingDevice):
		return CodeNoBackingDevice
	case errors.Is(err, ErrDeviceNotBound):
		return CodeDeviceNotBound
	case errors.Is(err, ErrInvalidBlockSize):
		return CodeInvalidBlockSize
	default:
		return CodeInternal
	}
}

// MarshalText 让 JSON 输出使用名字而不是数字
func (c Code) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Code) UnmarshalText(b []byte) error {
	for k, v := range codeNames {
		if v == string(b) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown result code %q", b)
}

func (c Classification) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Classification) UnmarshalText(b []byte) error {
	for _, k := range []Classification{Unresolvable, BlockSpecial, RegularOnLocal, RegularOnPseudo, RegularOnNetwork} {
		if k.String() == string(b) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown classification %q", b)
}
