package cpu

// Register is a single 8-bit CPU register.
type Register = uint8

// RegisterPair addresses two 8-bit registers as a 16-bit value, high byte
// first: BC, DE, HL and AF.
type RegisterPair [2]*Register

// Uint16 reads the pair as a big-endian 16-bit value.
func (p RegisterPair) Uint16() uint16 {
	if p[0] == nil || p[1] == nil {
		return 0
	}
	return uint16(*p[0])<<8 | uint16(*p[1])
}

// SetUint16 writes v into the pair, high byte first.
func (p RegisterPair) SetUint16(v uint16) {
	*p[0] = uint8(v >> 8)
	*p[1] = uint8(v)
}

// Registers holds the eight 8-bit registers, addressable singly or as the
// four conventional pairs.
type Registers struct {
	A, F, B, C, D, E, H, L Register

	BC, DE, HL, AF RegisterPair

	// memOperand is the scratch cell getSourceRegister uses to stage a
	// (HL)-addressed byte so every ALU/load path can treat register index
	// 6 like any other register pointer.
	memOperand Register
}

// bindPairs wires BC/DE/HL/AF to the freshly allocated register fields
// (the register-index lookup table is set up separately, in New). Must be called once, after the
// CPU (and its embedded Registers) has its final address.
func (r *Registers) bindPairs() {
	r.BC = RegisterPair{&r.B, &r.C}
	r.DE = RegisterPair{&r.D, &r.E}
	r.HL = RegisterPair{&r.H, &r.L}
	r.AF = RegisterPair{&r.A, &r.F}
}
