package cpu

// skipHALT parks the CPU in halt mode: Step ticks components without
// fetching instructions until a pending interrupt wakes it.
func (c *CPU) skipHALT() {
	c.mode = ModeHalt
}

// doHALTBug is called when HALT executes with IME disabled and an
// interrupt already pending. It runs the next instruction but leaves PC
// pointing at it again afterward, reproducing the hardware's failure to
// advance past the byte following HALT on this path.
func (c *CPU) doHALTBug() {
	instr := c.readOperand()
	c.PC--
	c.decode(instr)
}
