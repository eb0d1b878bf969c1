package executor

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Hand-assembled WASM modules, so executor tests run without a guest build.

type testGuest struct {
	module []byte
}

func (g *testGuest) Name() string {
	sum := sha256.Sum256(g.module)
	return "test@" + hex.EncodeToString(sum[:8])
}

func (g *testGuest) Module() []byte { return g.module }

func (g *testGuest) Args() []string { return []string{"test"} }

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func section(id byte, content []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(content)))...)
	return append(out, content...)
}

func wasmName(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func i32Const(v byte) []byte {
	// Values below 64 encode as a single signed LEB byte.
	return []byte{0x41, v}
}

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// emptyModule has no exports and no start function.
func emptyModule() []byte {
	return append([]byte(nil), wasmHeader...)
}

// loopModule exports a _start that never returns.
func loopModule() []byte {
	m := append([]byte(nil), wasmHeader...)
	m = append(m, section(1, []byte{0x01, 0x60, 0x00, 0x00})...)
	m = append(m, section(3, []byte{0x01, 0x00})...)
	m = append(m, section(7, append(append([]byte{0x01}, wasmName("_start")...), 0x00, 0x00))...)
	body := []byte{0x00, 0x03, 0x40, 0x0c, 0x00, 0x0b, 0x0b}
	m = append(m, section(10, append(append([]byte{0x01}, uleb(uint32(len(body)))...), body...))...)
	return m
}

// writeModule exports a _start that writes stdout then stderr through WASI
// fd_write and returns.
func writeModule(stdout, stderr string) []byte {
	const dataBase = 32

	// Memory layout: iovec for stdout at 0, iovec for stderr at 8,
	// nwritten at 16, text from dataBase.
	data := make([]byte, dataBase)
	binary.LittleEndian.PutUint32(data[0:], dataBase)
	binary.LittleEndian.PutUint32(data[4:], uint32(len(stdout)))
	binary.LittleEndian.PutUint32(data[8:], dataBase+uint32(len(stdout)))
	binary.LittleEndian.PutUint32(data[12:], uint32(len(stderr)))
	data = append(data, stdout...)
	data = append(data, stderr...)

	m := append([]byte(nil), wasmHeader...)

	// types: 0 = fd_write (i32 i32 i32 i32) -> i32, 1 = _start () -> ()
	m = append(m, section(1, []byte{
		0x02,
		0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f,
		0x60, 0x00, 0x00,
	})...)

	imp := []byte{0x01}
	imp = append(imp, wasmName("wasi_snapshot_preview1")...)
	imp = append(imp, wasmName("fd_write")...)
	imp = append(imp, 0x00, 0x00)
	m = append(m, section(2, imp)...)

	m = append(m, section(3, []byte{0x01, 0x01})...)

	// one memory, min 1 page
	m = append(m, section(5, []byte{0x01, 0x00, 0x01})...)

	exp := []byte{0x02}
	exp = append(exp, wasmName("memory")...)
	exp = append(exp, 0x02, 0x00)
	exp = append(exp, wasmName("_start")...)
	exp = append(exp, 0x00, 0x01)
	m = append(m, section(7, exp)...)

	var code []byte
	code = append(code, 0x00) // no locals
	for _, call := range []struct{ fd, iov byte }{{1, 0}, {2, 8}} {
		code = append(code, i32Const(call.fd)...)
		code = append(code, i32Const(call.iov)...)
		code = append(code, i32Const(1)...)
		code = append(code, i32Const(16)...)
		code = append(code, 0x10, 0x00) // call fd_write
		code = append(code, 0x1a)       // drop
	}
	code = append(code, 0x0b)
	m = append(m, section(10, append(append([]byte{0x01}, uleb(uint32(len(code)))...), code...))...)

	seg := []byte{0x01, 0x00}
	seg = append(seg, i32Const(0)...)
	seg = append(seg, 0x0b)
	seg = append(seg, uleb(uint32(len(data)))...)
	seg = append(seg, data...)
	m = append(m, section(11, seg)...)

	return m
}
