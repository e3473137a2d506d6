package uid

import (
	"net"
	"strconv"
	"sync/atomic"
	"time"
)

type SnowflakeOptions struct {
	// MachineID 为空时取第一个非回环 IPv4 地址的低 16 位
	MachineID *int64 `cfg:"machineId"`
}

// SnowflakeGenerator 1 位符号 + 41 位毫秒时间戳 + 10 位机器 ID + 12 位序列号
type SnowflakeGenerator struct {
	state     int64 // 高位时间戳，低 12 位序列号
	machineID int64
	epoch     int64
}

const (
	sequenceBits  = 12
	machineIDBits = 10

	maxSequence  = (1 << sequenceBits) - 1
	maxMachineID = (1 << machineIDBits) - 1

	machineIDShift = sequenceBits
	timestampShift = sequenceBits + machineIDBits
)

var snowflakeEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

func NewSnowflakeGeneratorWithOptions(options *SnowflakeOptions) *SnowflakeGenerator {
	var machineID int64
	if options != nil && options.MachineID != nil {
		machineID = *options.MachineID
	} else {
		machineID = machineIDFromIP()
	}

	return &SnowflakeGenerator{
		state:     (time.Now().UnixMilli() - snowflakeEpoch) << sequenceBits,
		machineID: machineID & maxMachineID,
		epoch:     snowflakeEpoch,
	}
}

func machineIDFromIP() int64 {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return 0
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipv4 := ipnet.IP.To4(); ipv4 != nil {
				return int64(ipv4[2])<<8 | int64(ipv4[3])
			}
		}
	}
	return 0
}

func (g *SnowflakeGenerator) Generate() string {
	return strconv.FormatInt(g.Next(), 10)
}

// Next 单调递增，同一毫秒内序列号用尽时等待下一毫秒
func (g *SnowflakeGenerator) Next() int64 {
	for {
		oldState := atomic.LoadInt64(&g.state)
		oldTimestamp := oldState >> sequenceBits
		oldSequence := oldState & maxSequence

		timestamp := time.Now().UnixMilli() - g.epoch
		sequence := int64(0)

		if timestamp <= oldTimestamp {
			sequence = (oldSequence + 1) & maxSequence
			timestamp = oldTimestamp
			if sequence == 0 {
				for timestamp <= oldTimestamp {
					timestamp = time.Now().UnixMilli() - g.epoch
				}
			}
		}

		if atomic.CompareAndSwapInt64(&g.state, oldState, timestamp<<sequenceBits|sequence) {
			return timestamp<<timestampShift | g.machineID<<machineIDShift | sequence
		}
	}
}
