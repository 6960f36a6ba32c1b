package capturering

// Memory is the byte array the capture ring lives in. Its depth is a power
// of two and every address wraps modulo the depth.
type Memory struct {
	buf  []byte
	mask uint32
}

func newMemory(depth int) *Memory {
	return &Memory{
		buf:  make([]byte, depth),
		mask: uint32(depth - 1),
	}
}

// Depth returns the number of bytes in the memory.
func (m *Memory) Depth() int {
	return len(m.buf)
}

// Read returns the byte at the address.
func (m *Memory) Read(addr uint32) byte {
	return m.buf[addr&m.mask]
}

// Write stores a byte at the address.
func (m *Memory) Write(addr uint32, b byte) {
	m.buf[addr&m.mask] = b
}

func (m *Memory) wrap(addr uint32) uint32 {
	return addr & m.mask
}

// free returns the number of bytes that can be written starting at write
// before reaching the byte at watermark, keeping one byte apart.
func (m *Memory) free(watermark, write uint32) uint32 {
	return (watermark - write - 1) & m.mask
}
