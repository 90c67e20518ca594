package rom

// crc16poly is the reflected CRC-16/MODBUS polynomial used by the
// cartridge header and logo checksum fields.
const crc16poly = 0xA001

// CRC16 computes CRC-16/MODBUS with initial value 0xFFFF.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ crc16poly
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
