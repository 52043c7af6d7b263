package vm

import "fmt"

// effect carries what an instruction changed beyond registers and memory.
type effect struct {
	draw bool // framebuffer was modified
	halt bool // program jumped to itself and can make no further progress
}

// execute applies one decoded instruction. On error the machine is left untouched.
func (vm *VM) execute(in Instruction) (effect, error) {
	var fx effect

	switch in.Op {
	// 0nnn	sys nnn	machine code routine, ignored
	case OpSys:
		vm.pc += InstructionSize

	// 00e0	cls	clear the screen
	case OpCls:
		clear(vm.gfx[:])
		fx.draw = true
		vm.pc += InstructionSize

	// 00ee	rts	return from subroutine call
	case OpRts:
		if vm.sp == 0 {
			return fx, fmt.Errorf("%w: rts at 0x%04x", ErrStackUnderflow, vm.pc)
		}
		vm.sp--
		vm.pc = vm.stack[vm.sp] + InstructionSize

	// 1nnn	jmp nnn	jump to address nnn
	case OpJmp:
		if in.NNN == vm.pc {
			fx.halt = true
		}
		vm.pc = in.NNN

	// 2nnn	jsr nnn	jump to subroutine at address nnn
	case OpJsr:
		if int(vm.sp) >= StackSize {
			return fx, fmt.Errorf("%w: jsr 0x%04x at 0x%04x", ErrStackOverflow, in.NNN, vm.pc)
		}
		vm.stack[vm.sp] = vm.pc
		vm.sp++
		vm.pc = in.NNN

	// 3xnn	skeq vx,nn	skip if register x = constant
	case OpSkeqImm:
		vm.skipIf(vm.registers[in.X] == in.NN)

	// 4xnn	skne vx,nn	skip if register x <> constant
	case OpSkneImm:
		vm.skipIf(vm.registers[in.X] != in.NN)

	// 5xy0	skeq vx,vy	skip if register x = register y
	case OpSkeqReg:
		vm.skipIf(vm.registers[in.X] == vm.registers[in.Y])

	// 6xnn	mov vx,nn	move constant to register x
	case OpMovImm:
		vm.registers[in.X] = in.NN
		vm.pc += InstructionSize

	// 7xnn	add vx,nn	add constant to register x, no carry generated
	case OpAddImm:
		vm.registers[in.X] += in.NN
		vm.pc += InstructionSize

	// 8xy0	mov vx,vy	move register y into register x
	case OpMovReg:
		vm.registers[in.X] = vm.registers[in.Y]
		vm.pc += InstructionSize

	// 8xy1	or vx,vy	or register y into register x
	case OpOr:
		vm.registers[in.X] |= vm.registers[in.Y]
		vm.pc += InstructionSize

	// 8xy2	and vx,vy	and register y into register x
	case OpAnd:
		vm.registers[in.X] &= vm.registers[in.Y]
		vm.pc += InstructionSize

	// 8xy3	xor vx,vy	exclusive or register y into register x
	case OpXor:
		vm.registers[in.X] ^= vm.registers[in.Y]
		vm.pc += InstructionSize

	// 8xy4	add vx,vy	add register y to register x, carry in vf
	case OpAddReg:
		x, y := vm.registers[in.X], vm.registers[in.Y]
		sum := uint16(x) + uint16(y)
		vm.setWithFlag(in.X, uint8(sum), sum > 0xFF)
		vm.pc += InstructionSize

	// 8xy5	sub vx,vy	subtract register y from register x, vf = 1 when there is no borrow
	case OpSub:
		x, y := vm.registers[in.X], vm.registers[in.Y]
		vm.setWithFlag(in.X, x-y, x >= y)
		vm.pc += InstructionSize

	// 8xy6	shr vx	shift right, bit 0 goes into vf
	case OpShr:
		src := vm.shiftSource(in)
		vm.setWithFlag(in.X, src>>1, src&0x01 != 0)
		vm.pc += InstructionSize

	// 8xy7	rsb vx,vy	subtract register x from register y into x, vf = 1 when there is no borrow
	case OpRsb:
		x, y := vm.registers[in.X], vm.registers[in.Y]
		vm.setWithFlag(in.X, y-x, y >= x)
		vm.pc += InstructionSize

	// 8xye	shl vx	shift left, bit 7 goes into vf
	case OpShl:
		src := vm.shiftSource(in)
		vm.setWithFlag(in.X, src<<1, src&0x80 != 0)
		vm.pc += InstructionSize

	// 9xy0	skne vx,vy	skip if register x <> register y
	case OpSkneReg:
		vm.skipIf(vm.registers[in.X] != vm.registers[in.Y])

	// annn	mvi nnn	load index register with constant nnn
	case OpMvi:
		vm.index = in.NNN
		vm.pc += InstructionSize

	// bnnn	jmi nnn	jump to address nnn + register v0
	case OpJmi:
		vm.pc = in.NNN + uint16(vm.registers[0])

	// cxnn	rand vx,nn	random byte masked with nn
	case OpRand:
		vm.registers[in.X] = vm.rand() & in.NN
		vm.pc += InstructionSize

	// dxyn	sprite vx,vy,n	draw sprite at screen location vx,vy height n
	case OpSprite:
		vm.drawSprite(vm.registers[in.X], vm.registers[in.Y], in.N)
		fx.draw = true
		vm.pc += InstructionSize

	// ex9e	skpr vx	skip if key (register x) pressed
	case OpSkpr:
		vm.skipIf(vm.keypad[vm.registers[in.X]&0x0F])

	// exa1	skup vx	skip if key (register x) not pressed
	case OpSkup:
		vm.skipIf(!vm.keypad[vm.registers[in.X]&0x0F])

	// fx07	gdelay vx	get delay timer into register x
	case OpGdelay:
		vm.registers[in.X] = vm.delayTimer
		vm.pc += InstructionSize

	// fx0a	key vx	wait for keypress, put key in register x
	// The program counter stays put; Step completes the instruction once a key is down.
	case OpKey:
		vm.waiting = true
		vm.waitReg = in.X

	// fx15	sdelay vx	set the delay timer to register x
	case OpSdelay:
		vm.delayTimer = vm.registers[in.X]
		vm.pc += InstructionSize

	// fx18	ssound vx	set the sound timer to register x
	case OpSsound:
		vm.soundTimer = vm.registers[in.X]
		vm.pc += InstructionSize

	// fx1e	adi vx	add register x to the index register
	case OpAdi:
		sum := vm.index + uint16(vm.registers[in.X])
		if vm.quirks.IndexOverflowSetsVF {
			vm.registers[flag] = boolToFlag(sum > addressMask || sum < vm.index)
		}
		vm.index = sum
		vm.pc += InstructionSize

	// fx29	font vx	point I to the sprite for hexadecimal character in register x
	case OpFont:
		vm.index = FontStart + uint16(vm.registers[in.X]&0x0F)*FontHeight
		vm.pc += InstructionSize

	// fx33	bcd vx	store the bcd representation of register x at I, I+1, I+2
	case OpBcd:
		x := vm.registers[in.X]
		vm.memory[addr(vm.index, 0)] = x / 100
		vm.memory[addr(vm.index, 1)] = (x / 10) % 10
		vm.memory[addr(vm.index, 2)] = x % 10
		vm.pc += InstructionSize

	// fx55	str v0-vx	store registers v0-vx at location I onwards
	case OpStr:
		for i := uint16(0); i <= uint16(in.X); i++ {
			vm.memory[addr(vm.index, i)] = vm.registers[i]
		}
		if vm.quirks.LoadStoreIncrementsIndex {
			vm.index += uint16(in.X) + 1
		}
		vm.pc += InstructionSize

	// fx65	ldr v0-vx	load registers v0-vx from location I onwards
	case OpLdr:
		for i := uint16(0); i <= uint16(in.X); i++ {
			vm.registers[i] = vm.memory[addr(vm.index, i)]
		}
		if vm.quirks.LoadStoreIncrementsIndex {
			vm.index += uint16(in.X) + 1
		}
		vm.pc += InstructionSize

	case OpUnknown:
		return fx, &DecodeError{PC: vm.pc, Opcode: uint16(in.Opcode)}

	default:
		panic(fmt.Sprintf("vm: unhandled op %d", in.Op))
	}

	return fx, nil
}

func (vm *VM) skipIf(cond bool) {
	if cond {
		vm.pc += 2 * InstructionSize
	} else {
		vm.pc += InstructionSize
	}
}

// setWithFlag stores the result before the flag, so VF holds the flag when x is 0xF.
func (vm *VM) setWithFlag(x uint8, result uint8, set bool) {
	vm.registers[x] = result
	vm.registers[flag] = boolToFlag(set)
}

func (vm *VM) shiftSource(in Instruction) uint8 {
	if vm.quirks.ShiftUsesVY {
		return vm.registers[in.Y]
	}
	return vm.registers[in.X]
}

// drawSprite XORs height rows of 8 pixels read from I onto the screen at (x, y).
// Pixels past an edge wrap around to the opposite side. VF is set to 1 when any
// lit pixel is turned off, and to 0 otherwise.
func (vm *VM) drawSprite(x, y uint8, height uint8) {
	const width = uint16(8)

	hasCollision := false
	for row := uint16(0); row < uint16(height); row++ {
		pixel := vm.memory[addr(vm.index, row)]

		for col := uint16(0); col < width; col++ {
			if pixel&(0x80>>col) == 0 {
				continue
			}

			screenAddr := getScreenAddr(uint16(x)+col, uint16(y)+row)
			if vm.gfx[screenAddr] != 0 {
				hasCollision = true
			}
			vm.gfx[screenAddr] ^= 1
		}
	}

	vm.registers[flag] = boolToFlag(hasCollision)
}

func getScreenAddr(x, y uint16) uint16 {
	x %= ScreenWidth
	y %= ScreenHeight

	return ScreenWidth*y + x
}

func boolToFlag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
