package codec

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// Type discriminants of the standard codec. MUST match the remote runtime's
// standard codec exactly.
const (
	stdNull        = 0
	stdTrue        = 1
	stdFalse       = 2
	stdInt32       = 3
	stdInt64       = 4
	stdBigInt      = 5
	stdFloat64     = 6
	stdString      = 7
	stdByteList    = 8
	stdInt32List   = 9
	stdInt64List   = 10
	stdFloat64List = 11
	stdList        = 12
	stdMap         = 13
)

// StandardMessageCodec is the compact binary value codec. Scalars are
// little-endian; sizes use the variable-length prefix below; float64 and
// multi-byte list payloads are zero-padded to their element size relative
// to the start of the buffer.
type StandardMessageCodec struct{}

// StandardMethodCodec layers the method-call envelope over the standard
// message codec.
type StandardMethodCodec struct{}

// Shared codec instances, one per codec family.
var (
	StandardMessage = StandardMessageCodec{}
	StandardMethod  = StandardMethodCodec{}
)

// EncodeMessage implements MessageCodec.
func (StandardMessageCodec) EncodeMessage(value Value) ([]byte, error) {
	var w stdWriter
	if err := w.writeValue(value); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// DecodeMessage implements MessageCodec.
func (StandardMessageCodec) DecodeMessage(data []byte) (Value, error) {
	r := stdReader{data: data}
	value, err := r.readValue()
	if err != nil {
		return Value{}, err
	}
	if err := r.expectEnd(); err != nil {
		return Value{}, err
	}
	return value, nil
}

// EncodeMethodCall implements MethodCodec. The call is serialized as the
// method-name string value followed by the arguments value in one buffer.
func (StandardMethodCodec) EncodeMethodCall(call MethodCall) ([]byte, error) {
	var w stdWriter
	if err := w.writeValue(String(call.Method)); err != nil {
		return nil, err
	}
	if err := w.writeValue(call.Arguments); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// DecodeMethodCall implements MethodCodec.
func (StandardMethodCodec) DecodeMethodCall(data []byte) (MethodCall, error) {
	r := stdReader{data: data}
	method, err := r.readValue()
	if err != nil {
		return MethodCall{}, err
	}
	if method.Kind() != KindString {
		return MethodCall{}, NewMalformedError("method name has kind %s, want String", method.Kind())
	}
	args, err := r.readValue()
	if err != nil {
		return MethodCall{}, err
	}
	if err := r.expectEnd(); err != nil {
		return MethodCall{}, err
	}
	return MethodCall{Method: method.String(), Arguments: args}, nil
}

// EncodeSuccessEnvelope implements MethodCodec.
func (StandardMethodCodec) EncodeSuccessEnvelope(result Value) ([]byte, error) {
	w := stdWriter{buf: []byte{0}}
	if err := w.writeValue(result); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// EncodeErrorEnvelope implements MethodCodec.
func (StandardMethodCodec) EncodeErrorEnvelope(code, message string, details Value) ([]byte, error) {
	w := stdWriter{buf: []byte{1}}
	if err := w.writeValue(String(code)); err != nil {
		return nil, err
	}
	messageValue := Null()
	if message != "" {
		messageValue = String(message)
	}
	if err := w.writeValue(messageValue); err != nil {
		return nil, err
	}
	if err := w.writeValue(details); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// DecodeEnvelope implements MethodCodec.
func (StandardMethodCodec) DecodeEnvelope(data []byte) (MethodResult, error) {
	if len(data) == 0 {
		return NotImplemented(), nil
	}
	r := stdReader{data: data, pos: 1}
	switch data[0] {
	case 0:
		value, err := r.readValue()
		if err != nil {
			return MethodResult{}, err
		}
		if err := r.expectEnd(); err != nil {
			return MethodResult{}, err
		}
		return Success(value), nil
	case 1:
		code, err := r.readValue()
		if err != nil {
			return MethodResult{}, err
		}
		if code.Kind() != KindString {
			return MethodResult{}, NewMalformedError("error code has kind %s, want String", code.Kind())
		}
		message, err := r.readValue()
		if err != nil {
			return MethodResult{}, err
		}
		if message.Kind() != KindString && message.Kind() != KindNull {
			return MethodResult{}, NewMalformedError("error message has kind %s, want String or Null", message.Kind())
		}
		details, err := r.readValue()
		if err != nil {
			return MethodResult{}, err
		}
		if err := r.expectEnd(); err != nil {
			return MethodResult{}, err
		}
		messageText := ""
		if message.Kind() == KindString {
			messageText = message.String()
		}
		return ErrorResult(code.String(), messageText, details), nil
	default:
		return MethodResult{}, NewMalformedError("invalid envelope discriminant %d", data[0])
	}
}

// stdWriter appends standard-codec encoded values to buf. Alignment is
// computed against the start of buf, so envelope prefixes written before
// the first value participate in the offset as the remote reader expects.
type stdWriter struct {
	buf []byte
}

func (w *stdWriter) writeByte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *stdWriter) align(alignment int) {
	for len(w.buf)%alignment != 0 {
		w.buf = append(w.buf, 0)
	}
}

// writeSize writes the variable-length size prefix: one byte below 254,
// 254 + uint16 LE up to 65535, 255 + uint32 LE beyond.
func (w *stdWriter) writeSize(n int) {
	switch {
	case n < 254:
		w.buf = append(w.buf, byte(n))
	case n <= math.MaxUint16:
		w.buf = append(w.buf, 254)
		w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(n))
	default:
		w.buf = append(w.buf, 255)
		w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(n))
	}
}

func (w *stdWriter) writeValue(v Value) error {
	switch v.Kind() {
	case KindNull:
		w.writeByte(stdNull)
	case KindBool:
		if v.Bool() {
			w.writeByte(stdTrue)
		} else {
			w.writeByte(stdFalse)
		}
	case KindInt32:
		w.writeByte(stdInt32)
		w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v.Int32()))
	case KindInt64:
		w.writeByte(stdInt64)
		w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v.Int64()))
	case KindBigInt:
		w.writeByte(stdBigInt)
		digits := v.String()
		w.writeSize(len(digits))
		w.buf = append(w.buf, digits...)
	case KindFloat64:
		w.writeByte(stdFloat64)
		w.align(8)
		w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v.Float64()))
	case KindString:
		w.writeByte(stdString)
		s := v.String()
		w.writeSize(len(s))
		w.buf = append(w.buf, s...)
	case KindByteList:
		w.writeByte(stdByteList)
		b := v.ByteList()
		w.writeSize(len(b))
		w.buf = append(w.buf, b...)
	case KindInt32List:
		w.writeByte(stdInt32List)
		items := v.Int32List()
		w.writeSize(len(items))
		w.align(4)
		for _, item := range items {
			w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(item))
		}
	case KindInt64List:
		w.writeByte(stdInt64List)
		items := v.Int64List()
		w.writeSize(len(items))
		w.align(8)
		for _, item := range items {
			w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(item))
		}
	case KindFloat64List:
		w.writeByte(stdFloat64List)
		items := v.Float64List()
		w.writeSize(len(items))
		w.align(8)
		for _, item := range items {
			w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(item))
		}
	case KindList:
		w.writeByte(stdList)
		items := v.List()
		w.writeSize(len(items))
		for _, item := range items {
			if err := w.writeValue(item); err != nil {
				return err
			}
		}
	case KindMap:
		w.writeByte(stdMap)
		pairs := v.Pairs()
		w.writeSize(len(pairs))
		for _, p := range pairs {
			if err := w.writeValue(p.Key); err != nil {
				return err
			}
			if err := w.writeValue(p.Value); err != nil {
				return err
			}
		}
	default:
		return NewUnsupportedTypeError("cannot encode value of kind %s", v.Kind())
	}
	return nil
}

// stdReader decodes standard-codec values from data. It never reads out of
// bounds; any undersized or inconsistent buffer yields a Malformed error.
type stdReader struct {
	data []byte
	pos  int
}

func (r *stdReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *stdReader) readByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, NewMalformedError("unexpected end of buffer at offset %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *stdReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, NewMalformedError("declared length %d exceeds remaining %d bytes", n, r.remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *stdReader) align(alignment int) {
	mod := r.pos % alignment
	if mod != 0 {
		r.pos += alignment - mod
	}
}

func (r *stdReader) readSize() (int, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case 254:
		raw, err := r.readBytes(2)
		if err != nil {
			return 0, err
		}
		return int(binary.LittleEndian.Uint16(raw)), nil
	case 255:
		raw, err := r.readBytes(4)
		if err != nil {
			return 0, err
		}
		return int(binary.LittleEndian.Uint32(raw)), nil
	default:
		return int(b), nil
	}
}

func (r *stdReader) expectEnd() error {
	if r.remaining() != 0 {
		return NewMalformedError("%d trailing bytes after value", r.remaining())
	}
	return nil
}

func (r *stdReader) readValue() (Value, error) {
	tag, err := r.readByte()
	if err != nil {
		return Value{}, err
	}
	switch tag {
	case stdNull:
		return Null(), nil
	case stdTrue:
		return Bool(true), nil
	case stdFalse:
		return Bool(false), nil
	case stdInt32:
		raw, err := r.readBytes(4)
		if err != nil {
			return Value{}, err
		}
		return Int32(int32(binary.LittleEndian.Uint32(raw))), nil
	case stdInt64:
		raw, err := r.readBytes(8)
		if err != nil {
			return Value{}, err
		}
		return Int64(int64(binary.LittleEndian.Uint64(raw))), nil
	case stdBigInt:
		size, err := r.readSize()
		if err != nil {
			return Value{}, err
		}
		raw, err := r.readBytes(size)
		if err != nil {
			return Value{}, err
		}
		return BigInt(string(raw)), nil
	case stdFloat64:
		r.align(8)
		raw, err := r.readBytes(8)
		if err != nil {
			return Value{}, err
		}
		return Float64(math.Float64frombits(binary.LittleEndian.Uint64(raw))), nil
	case stdString:
		size, err := r.readSize()
		if err != nil {
			return Value{}, err
		}
		raw, err := r.readBytes(size)
		if err != nil {
			return Value{}, err
		}
		if !utf8.Valid(raw) {
			return Value{}, NewMalformedError("string payload is not valid UTF-8")
		}
		return String(string(raw)), nil
	case stdByteList:
		size, err := r.readSize()
		if err != nil {
			return Value{}, err
		}
		raw, err := r.readBytes(size)
		if err != nil {
			return Value{}, err
		}
		items := make([]byte, size)
		copy(items, raw)
		return ByteList(items), nil
	case stdInt32List:
		size, err := r.readSize()
		if err != nil {
			return Value{}, err
		}
		r.align(4)
		raw, err := r.readBytes(size * 4)
		if err != nil {
			return Value{}, err
		}
		items := make([]int32, size)
		for i := range items {
			items[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return Int32List(items), nil
	case stdInt64List:
		size, err := r.readSize()
		if err != nil {
			return Value{}, err
		}
		r.align(8)
		raw, err := r.readBytes(size * 8)
		if err != nil {
			return Value{}, err
		}
		items := make([]int64, size)
		for i := range items {
			items[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return Int64List(items), nil
	case stdFloat64List:
		size, err := r.readSize()
		if err != nil {
			return Value{}, err
		}
		r.align(8)
		raw, err := r.readBytes(size * 8)
		if err != nil {
			return Value{}, err
		}
		items := make([]float64, size)
		for i := range items {
			items[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return Float64List(items), nil
	case stdList:
		size, err := r.readSize()
		if err != nil {
			return Value{}, err
		}
		if size > r.remaining() {
			return Value{}, NewMalformedError("list of %d elements exceeds remaining %d bytes", size, r.remaining())
		}
		items := make([]Value, size)
		for i := range items {
			if items[i], err = r.readValue(); err != nil {
				return Value{}, err
			}
		}
		return List(items...), nil
	case stdMap:
		size, err := r.readSize()
		if err != nil {
			return Value{}, err
		}
		if size > r.remaining() {
			return Value{}, NewMalformedError("map of %d entries exceeds remaining %d bytes", size, r.remaining())
		}
		pairs := make([]Pair, size)
		for i := range pairs {
			if pairs[i].Key, err = r.readValue(); err != nil {
				return Value{}, err
			}
			if pairs[i].Value, err = r.readValue(); err != nil {
				return Value{}, err
			}
		}
		return Map(pairs...), nil
	default:
		return Value{}, NewUnsupportedTypeError("unknown type discriminant %d", tag)
	}
}
