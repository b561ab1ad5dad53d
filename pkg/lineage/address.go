package lineage

import (
	"fmt"
	"strconv"
	"strings"
)

type address struct {
	domain   uint16
	bus      uint8
	device   uint8 // 5 bit
	function uint8 // 3 bit
}

// parseAddress 解析 "DDDD:BB:dd.f" 形式的 PCI 地址
func parseAddress(name string) (address, bool) {
	parts := strings.Split(name, ":")
	if len(parts) != 3 {
		return address{}, false
	}
	slot, fn, ok := strings.Cut(parts[2], ".")
	if !ok {
		return address{}, false
	}

	domain, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil {
		return address{}, false
	}
	bus, err := strconv.ParseUint(parts[1], 16, 8)
	if err != nil {
		return address{}, false
	}
	dev, err := strconv.ParseUint(slot, 16, 8)
	if err != nil || dev > 0x1f {
		return address{}, false
	}
	function, err := strconv.ParseUint(fn, 16, 8)
	if err != nil || function > 0x7 {
		return address{}, false
	}

	return address{
		domain:   uint16(domain),
		bus:      uint8(bus),
		device:   uint8(dev),
		function: uint8(function),
	}, true
}

func classHex(class uint32) string {
	return fmt.Sprintf("0x%06x", class)
}
