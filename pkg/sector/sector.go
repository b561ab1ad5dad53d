// Package sector 把文件字节区间换算成底层设备的扇区区间
package sector

import (
	"fmt"
	"math"
	"math/bits"

	"file2pcie/pkg/types"
)

// Input 是计算所需的分类信息
type Input struct {
	Class      types.Classification
	BlockSize  int64 // 文件系统逻辑块大小 (字节)
	HasBacking bool
}

// ValidateRange 检查 offset >= 0, length > 0, 且 offset+length-1 不溢出
func ValidateRange(offset int64, length uint64) error {
	if offset < 0 {
		return fmt.Errorf("%w: negative offset %d", types.ErrInvalidRange, offset)
	}
	if length == 0 {
		return fmt.Errorf("%w: zero length", types.ErrInvalidRange)
	}
	if length-1 > uint64(math.MaxInt64-offset) {
		return fmt.Errorf("%w: offset %d + length %d overflows", types.ErrInvalidRange, offset, length)
	}
	return nil
}

// Bytes 返回请求对应的文件字节闭区间，调用前必须 ValidateRange
func Bytes(offset int64, length uint64) types.ByteRange {
	return types.ByteRange{Start: offset, End: offset + int64(length-1)}
}

// BlockBits 把块大小换算成位数；块必须是 2 的幂且不小于一个扇区
func BlockBits(blockSize int64) (uint, error) {
	if blockSize <= 0 || blockSize&(blockSize-1) != 0 {
		return 0, fmt.Errorf("%w: block size %d is not a power of two", types.ErrInvalidBlockSize, blockSize)
	}
	b := uint(bits.TrailingZeros64(uint64(blockSize)))
	if b < types.SectorShift {
		return 0, fmt.Errorf("%w: block size %d", types.ErrInvalidBlockSize, blockSize)
	}
	return b, nil
}

// Compute 计算闭区间 [start, end] 扇区
//
// 块设备文件：偏移直接对应设备扇区。
// 本地文件系统上的普通文件：先换算成逻辑块号，再按块放大到扇区。
// 这是近似值，假设逻辑块连续映射到设备扇区，不考虑元数据位置和碎片。
func Compute(in Input, offset int64, length uint64) (types.SectorRange, error) {
	if err := ValidateRange(offset, length); err != nil {
		return types.SectorRange{}, err
	}
	last := offset + int64(length-1)

	switch in.Class {
	case types.BlockSpecial:
		return types.SectorRange{
			Start: offset / types.SectorSize,
			End:   last / types.SectorSize,
		}, nil

	case types.RegularOnLocal:
		if !in.HasBacking {
			return types.SectorRange{}, types.ErrNoBackingDevice
		}
		blockBits, err := BlockBits(in.BlockSize)
		if err != nil {
			return types.SectorRange{}, err
		}
		shift := blockBits - types.SectorShift
		blockStart := offset >> blockBits
		blockEnd := last >> blockBits
		return types.SectorRange{
			Start: blockStart << shift,
			End:   ((blockEnd + 1) << shift) - 1,
		}, nil

	case types.RegularOnPseudo, types.RegularOnNetwork:
		return types.SectorRange{}, types.ErrUnsupportedFilesystem

	default:
		return types.SectorRange{}, types.ErrUnresolvable
	}
}
