package sdram

// Storage holds the words of the device. Pages are allocated on first write;
// words never written read as zero.
type Storage struct {
	pageBits uint
	mask     uint32
	pages    map[uint32][]uint16
}

// NewStorage creates a storage for a device with the given parameters. A page
// is one row of one bank.
func NewStorage(p Params) *Storage {
	return &Storage{
		pageBits: p.ColBits,
		mask:     p.addrMask(),
		pages:    make(map[uint32][]uint16),
	}
}

// Read returns the word at the address.
func (s *Storage) Read(addr uint32) uint16 {
	addr &= s.mask

	page, ok := s.pages[addr>>s.pageBits]
	if !ok {
		return 0
	}

	return page[addr&(1<<s.pageBits-1)]
}

// Write stores a word at the address.
func (s *Storage) Write(addr uint32, data uint16) {
	addr &= s.mask

	page, ok := s.pages[addr>>s.pageBits]
	if !ok {
		page = make([]uint16, 1<<s.pageBits)
		s.pages[addr>>s.pageBits] = page
	}

	page[addr&(1<<s.pageBits-1)] = data
}

// NumPages returns the number of pages allocated.
func (s *Storage) NumPages() int {
	return len(s.pages)
}
