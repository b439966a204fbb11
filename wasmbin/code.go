package wasmbin

// Opcodes used by the builder. This is not a complete instruction set; it
// covers what the bridge's fixtures and the loader need.
const (
	opBlock       byte = 0x02
	opLoop        byte = 0x03
	opIf          byte = 0x04
	opElse        byte = 0x05
	opEnd         byte = 0x0B
	opBr          byte = 0x0C
	opBrIf        byte = 0x0D
	opReturn      byte = 0x0F
	opCall        byte = 0x10
	opDrop        byte = 0x1A
	opLocalGet    byte = 0x20
	opLocalSet    byte = 0x21
	opLocalTee    byte = 0x22
	opGlobalGet   byte = 0x23
	opGlobalSet   byte = 0x24
	opI32Load8U   byte = 0x2D
	opI32Store8   byte = 0x3A
	opI32Const    byte = 0x41
	opI64Const    byte = 0x42
	opI32Eqz      byte = 0x45
	opI32LtU      byte = 0x49
	opI32GeU      byte = 0x4F
	opI32Add      byte = 0x6A
	opI32Sub      byte = 0x6B
	opI64Shl      byte = 0x86
	opI64Or       byte = 0x84
	opI64ExtendU  byte = 0xAD
	blockTypeVoid byte = 0x40
)

// Code builds a function body instruction by instruction. The final end
// opcode is implicit; End is only needed to close blocks.
type Code struct {
	buf []byte
}

func NewCode() *Code {
	return &Code{}
}

func (c *Code) op(b byte) *Code {
	c.buf = append(c.buf, b)
	return c
}

func (c *Code) opIdx(b byte, idx uint32) *Code {
	c.buf = append(c.buf, b)
	c.buf = appendUleb(c.buf, uint64(idx))
	return c
}

func (c *Code) LocalGet(i uint32) *Code  { return c.opIdx(opLocalGet, i) }
func (c *Code) LocalSet(i uint32) *Code  { return c.opIdx(opLocalSet, i) }
func (c *Code) LocalTee(i uint32) *Code  { return c.opIdx(opLocalTee, i) }
func (c *Code) GlobalGet(i uint32) *Code { return c.opIdx(opGlobalGet, i) }
func (c *Code) GlobalSet(i uint32) *Code { return c.opIdx(opGlobalSet, i) }
func (c *Code) Call(fn uint32) *Code     { return c.opIdx(opCall, fn) }

func (c *Code) I32Const(v int32) *Code {
	c.buf = append(c.buf, opI32Const)
	c.buf = appendSleb(c.buf, int64(v))
	return c
}

func (c *Code) I64Const(v int64) *Code {
	c.buf = append(c.buf, opI64Const)
	c.buf = appendSleb(c.buf, v)
	return c
}

func (c *Code) Drop() *Code { return c.op(opDrop) }
func (c *Code) Return() *Code { return c.op(opReturn) }
func (c *Code) I32Eqz() *Code { return c.op(opI32Eqz) }
func (c *Code) I32LtU() *Code { return c.op(opI32LtU) }
func (c *Code) I32GeU() *Code { return c.op(opI32GeU) }
func (c *Code) I32Add() *Code { return c.op(opI32Add) }
func (c *Code) I32Sub() *Code { return c.op(opI32Sub) }
func (c *Code) I64Shl() *Code { return c.op(opI64Shl) }
func (c *Code) I64Or() *Code { return c.op(opI64Or) }
func (c *Code) I64ExtendU() *Code { return c.op(opI64ExtendU) }

// I32Load8U loads one byte with a static offset from the address on the
// stack.
func (c *Code) I32Load8U(offset uint32) *Code {
	c.buf = append(c.buf, opI32Load8U, 0x00)
	c.buf = appendUleb(c.buf, uint64(offset))
	return c
}

// I32Store8 stores the low byte of the value on the stack.
func (c *Code) I32Store8(offset uint32) *Code {
	c.buf = append(c.buf, opI32Store8, 0x00)
	c.buf = appendUleb(c.buf, uint64(offset))
	return c
}

// If opens a conditional block yielding the given result type.
func (c *Code) If(result byte) *Code {
	c.buf = append(c.buf, opIf, result)
	return c
}

// IfVoid opens a conditional block with no result.
func (c *Code) IfVoid() *Code {
	c.buf = append(c.buf, opIf, blockTypeVoid)
	return c
}

// BlockVoid opens a plain block with no result; a br targeting it exits
// past its End.
func (c *Code) BlockVoid() *Code {
	c.buf = append(c.buf, opBlock, blockTypeVoid)
	return c
}

// LoopVoid opens a loop block with no result; a br targeting it restarts
// the iteration.
func (c *Code) LoopVoid() *Code {
	c.buf = append(c.buf, opLoop, blockTypeVoid)
	return c
}

func (c *Code) Br(depth uint32) *Code   { return c.opIdx(opBr, depth) }
func (c *Code) BrIf(depth uint32) *Code { return c.opIdx(opBrIf, depth) }

func (c *Code) Else() *Code { return c.op(opElse) }
func (c *Code) End() *Code  { return c.op(opEnd) }
