package demux

// Ogg uses the unreflected CRC-32 with polynomial 0x04C11DB7, initial value
// and final xor of zero. hash/crc32 only offers the reflected form.

var crcTable [256]uint32

func init() {
	const poly = uint32(0x04C11DB7)
	for i := range crcTable {
		crc := uint32(i) << 24
		for range 8 {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

func crcUpdate(crc uint32, b byte) uint32 {
	return (crc << 8) ^ crcTable[byte(crc>>24)^b]
}

// pageCRC computes the checksum of a complete page, treating the checksum
// field at bytes 22..25 as zero.
func pageCRC(page []byte) uint32 {
	var crc uint32
	for i, b := range page {
		if i >= 22 && i < 26 {
			b = 0
		}
		crc = crcUpdate(crc, b)
	}
	return crc
}
