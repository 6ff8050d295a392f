package rlp

// EncoderBuffer is an append-only RLP item builder. Call List to open a
// list, WriteBytes/WriteRaw any number of times for its members, then
// ListEnd to close it and splice in the computed length header.
type EncoderBuffer struct {
	buf    []byte
	starts []int
}

// NewEncoderBuffer returns an empty buffer ready for writes.
func NewEncoderBuffer() EncoderBuffer {
	return EncoderBuffer{}
}

// WriteBytes appends b as an RLP string item (or a single raw byte, if b is
// one byte below 0x80).
func (w *EncoderBuffer) WriteBytes(b []byte) {
	w.buf = appendString(w.buf, b)
}

// WriteRaw appends already-encoded RLP bytes verbatim, used for child slots
// that are themselves full node encodings (the "embedded"/inline case).
func (w *EncoderBuffer) WriteRaw(encoded []byte) {
	w.buf = append(w.buf, encoded...)
}

// List opens a new list and returns a token to pass to ListEnd.
func (w *EncoderBuffer) List() int {
	w.starts = append(w.starts, len(w.buf))
	return len(w.starts) - 1
}

// ListEnd closes the list opened by the matching List call, computing and
// splicing in its length header.
func (w *EncoderBuffer) ListEnd(token int) {
	start := w.starts[token]
	w.starts = w.starts[:token]
	content := append([]byte(nil), w.buf[start:]...)
	header := listHeader(len(content))
	w.buf = append(w.buf[:start], append(header, content...)...)
}

// ToBytes returns the accumulated encoding.
func (w *EncoderBuffer) ToBytes() []byte {
	return w.buf
}

// EncodeBytes returns the RLP string encoding of b in one call, for callers
// that don't need EncoderBuffer's list-nesting machinery.
func EncodeBytes(b []byte) []byte {
	return appendString(nil, b)
}

func appendString(dst, s []byte) []byte {
	switch {
	case len(s) == 1 && s[0] < 0x80:
		return append(dst, s[0])
	case len(s) < 56:
		dst = append(dst, 0x80+byte(len(s)))
		return append(dst, s...)
	default:
		dst = append(dst, lengthPrefix(0xB7, len(s))...)
		return append(dst, s...)
	}
}

// EncodeList wraps the already-concatenated member encodings in content
// with a list header.
func EncodeList(content []byte) []byte {
	return append(listHeader(len(content)), content...)
}

func listHeader(size int) []byte {
	if size < 56 {
		return []byte{0xC0 + byte(size)}
	}
	return lengthPrefix(0xF7, size)
}

func lengthPrefix(base byte, size int) []byte {
	var lenBytes []byte
	for n := size; n > 0; n >>= 8 {
		lenBytes = append([]byte{byte(n)}, lenBytes...)
	}
	return append([]byte{base + byte(len(lenBytes))}, lenBytes...)
}
