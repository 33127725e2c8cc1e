package cpu

// addSPSigned computes SP + e8 for ADD SP,e8 and LD HL,SP+e8, setting
// flags from the unsigned byte-level carries (not the signed result).
func (c *CPU) addSPSigned() uint16 {
	value := c.readOperand()
	result := uint16(int32(c.SP) + int32(int8(value)))

	tmpVal := c.SP ^ uint16(int8(value)) ^ result

	c.setFlags(false, false, tmpVal&0x10 == 0x10, tmpVal&0x100 == 0x100)

	c.tickCycle()
	return result
}
