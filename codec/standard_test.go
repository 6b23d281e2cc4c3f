package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleValues covers every representable kind, including nesting and
// non-string map keys.
func sampleValues() []Value {
	return []Value{
		Null(),
		Bool(true),
		Bool(false),
		Int32(0),
		Int32(-1),
		Int32(42),
		Int64(1 << 40),
		Int64(-1 << 40),
		BigInt("deadbeef"),
		Float64(0),
		Float64(3.14159),
		Float64(-2.5e300),
		String(""),
		String("hello"),
		String("汉字 éçñ"),
		ByteList([]byte{}),
		ByteList([]byte{0xde, 0xad, 0xbe, 0xef}),
		Int32List([]int32{1, -2, 3}),
		Int64List([]int64{1 << 40, -1}),
		Float64List([]float64{0.5, -0.5}),
		List(),
		List(Int32(1), String("two"), Null()),
		Map(),
		Map(
			Pair{Key: String("a"), Value: Int32(1)},
			Pair{Key: Int64(7), Value: List(Bool(true))},
			Pair{Key: Null(), Value: Float64List([]float64{1})},
		),
		List(Map(Pair{Key: String("nested"), Value: ByteList([]byte{1, 2, 3})}), Float64(9.75)),
	}
}

func TestStandardMessageRoundTrip(t *testing.T) {
	for _, v := range sampleValues() {
		data, err := StandardMessage.EncodeMessage(v)
		require.NoError(t, err, "encode %#v", v)

		got, err := StandardMessage.DecodeMessage(data)
		require.NoError(t, err, "decode %#v", v)
		assert.True(t, got.Equal(v), "round trip mismatch: sent %#v, got %#v", v, got)
	}
}

// Byte layouts below are fixed by the remote runtime's standard codec and
// must never change.
func TestStandardMessageKnownLayouts(t *testing.T) {
	cases := []struct {
		name  string
		value Value
		bytes []byte
	}{
		{"null", Null(), []byte{0}},
		{"true", Bool(true), []byte{1}},
		{"false", Bool(false), []byte{2}},
		{"int32", Int32(42), []byte{3, 42, 0, 0, 0}},
		{"int32 negative", Int32(-1), []byte{3, 0xff, 0xff, 0xff, 0xff}},
		{"int64", Int64(42), []byte{4, 42, 0, 0, 0, 0, 0, 0, 0}},
		{"float64 aligned", Float64(1.0), []byte{
			6, 0, 0, 0, 0, 0, 0, 0,
			0, 0, 0, 0, 0, 0, 0xf0, 0x3f,
		}},
		{"string", String("hello"), []byte{7, 5, 'h', 'e', 'l', 'l', 'o'}},
		{"big int", BigInt("-12"), []byte{5, 3, '-', '1', '2'}},
		{"byte list", ByteList([]byte{9, 8}), []byte{8, 2, 9, 8}},
		{"int32 list aligned", Int32List([]int32{1, 2}), []byte{
			9, 2, 0, 0,
			1, 0, 0, 0,
			2, 0, 0, 0,
		}},
		{"list", List(Null(), Bool(true)), []byte{12, 2, 0, 1}},
		{"map", Map(Pair{Key: String("k"), Value: Int32(1)}), []byte{
			13, 1, 7, 1, 'k', 3, 1, 0, 0, 0,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := StandardMessage.EncodeMessage(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.bytes, data)
		})
	}
}

func TestStandardSizePrefixBoundaries(t *testing.T) {
	for _, n := range []int{0, 1, 253, 254, 255, 65535, 65536} {
		payload := make([]byte, n)
		v := ByteList(payload)

		data, err := StandardMessage.EncodeMessage(v)
		require.NoError(t, err)

		got, err := StandardMessage.DecodeMessage(data)
		require.NoError(t, err, "size %d", n)
		assert.Equal(t, n, got.Len(), "size %d", n)
	}
}

// Decoding any truncated prefix of a valid buffer must fail cleanly, never
// panic or read out of bounds.
func TestStandardMessageTruncationSafety(t *testing.T) {
	for _, v := range sampleValues() {
		data, err := StandardMessage.EncodeMessage(v)
		require.NoError(t, err)

		for cut := 0; cut < len(data); cut++ {
			_, err := StandardMessage.DecodeMessage(data[:cut])
			assert.Error(t, err, "prefix of %d/%d bytes of %#v decoded without error", cut, len(data), v)
		}
	}
}

func TestStandardMessageMalformedInputs(t *testing.T) {
	// Unknown leading discriminant.
	_, err := StandardMessage.DecodeMessage([]byte{200})
	require.Error(t, err)
	assert.True(t, IsUnsupportedType(err), "got %v", err)

	// Declared length exceeding remaining bytes.
	_, err = StandardMessage.DecodeMessage([]byte{7, 10, 'h', 'i'})
	require.Error(t, err)
	assert.True(t, IsMalformed(err), "got %v", err)

	// Trailing garbage after a complete value.
	_, err = StandardMessage.DecodeMessage([]byte{0, 0})
	require.Error(t, err)
	assert.True(t, IsMalformed(err), "got %v", err)

	// Oversized collection counts must not allocate or crash.
	_, err = StandardMessage.DecodeMessage([]byte{12, 255, 0xff, 0xff, 0xff, 0x7f})
	require.Error(t, err)
	assert.True(t, IsMalformed(err), "got %v", err)
}

func TestStandardMethodCallRoundTrip(t *testing.T) {
	calls := []MethodCall{
		{Method: "getLevel", Arguments: Null()},
		{Method: "setState", Arguments: Map(Pair{Key: String("on"), Value: Bool(true)})},
		{Method: "", Arguments: Int64List([]int64{1, 2, 3})},
	}

	for _, call := range calls {
		data, err := StandardMethod.EncodeMethodCall(call)
		require.NoError(t, err)

		got, err := StandardMethod.DecodeMethodCall(data)
		require.NoError(t, err)
		assert.Equal(t, call.Method, got.Method)
		assert.True(t, got.Arguments.Equal(call.Arguments))
	}
}

func TestStandardMethodCallRejectsNonStringMethod(t *testing.T) {
	var w stdWriter
	require.NoError(t, w.writeValue(Int32(1)))
	require.NoError(t, w.writeValue(Null()))

	_, err := StandardMethod.DecodeMethodCall(w.buf)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestStandardEnvelopeRoundTrip(t *testing.T) {
	success, err := StandardMethod.EncodeSuccessEnvelope(Int32(42))
	require.NoError(t, err)
	result, err := StandardMethod.DecodeEnvelope(success)
	require.NoError(t, err)
	assert.True(t, result.Equal(Success(Int32(42))))

	failure, err := StandardMethod.EncodeErrorEnvelope("UNAVAILABLE", "battery unavailable", Int32(-1))
	require.NoError(t, err)
	result, err = StandardMethod.DecodeEnvelope(failure)
	require.NoError(t, err)
	assert.True(t, result.IsError())
	assert.Equal(t, "UNAVAILABLE", result.Code())
	assert.Equal(t, "battery unavailable", result.Message())
	assert.True(t, result.Details().Equal(Int32(-1)))
}

// A zero-length reply means no plugin handled the call. It must never be
// mistaken for an explicit Success(Null).
func TestStandardEnvelopeNotImplementedDistinct(t *testing.T) {
	result, err := StandardMethod.DecodeEnvelope(nil)
	require.NoError(t, err)
	assert.True(t, result.IsNotImplemented())

	nullSuccess, err := StandardMethod.EncodeSuccessEnvelope(Null())
	require.NoError(t, err)
	require.NotEmpty(t, nullSuccess)

	result, err = StandardMethod.DecodeEnvelope(nullSuccess)
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())
	assert.True(t, result.Value().IsNull())
}

func TestStandardEnvelopeNullMessage(t *testing.T) {
	failure, err := StandardMethod.EncodeErrorEnvelope("ERR", "", Null())
	require.NoError(t, err)

	result, err := StandardMethod.DecodeEnvelope(failure)
	require.NoError(t, err)
	assert.True(t, result.IsError())
	assert.Equal(t, "", result.Message())
}

func TestStandardEnvelopeBadDiscriminant(t *testing.T) {
	_, err := StandardMethod.DecodeEnvelope([]byte{7})
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

// Envelope prefixes shift value offsets by one byte; alignment must stay
// relative to the buffer start so the remote reader skips the same padding.
func TestStandardEnvelopeAlignmentAfterPrefix(t *testing.T) {
	data, err := StandardMethod.EncodeSuccessEnvelope(Float64(1.0))
	require.NoError(t, err)

	// 0x00 prefix, 0x06 tag, then padding to offset 8.
	require.Equal(t, 16, len(data))
	assert.Equal(t, byte(0), data[0])
	assert.Equal(t, byte(6), data[1])
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0}, data[2:8])

	result, err := StandardMethod.DecodeEnvelope(data)
	require.NoError(t, err)
	assert.True(t, result.Value().Equal(Float64(1.0)))
}
