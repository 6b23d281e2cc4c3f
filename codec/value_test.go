package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueZeroIsNull(t *testing.T) {
	var v Value
	assert.True(t, v.IsNull())
	assert.Equal(t, KindNull, v.Kind())
	assert.True(t, v.Equal(Null()))
}

func TestValueKindMismatchNeverEqual(t *testing.T) {
	assert.False(t, Int32(1).Equal(Int64(1)))
	assert.False(t, Null().Equal(Bool(false)))
	assert.False(t, String("1").Equal(BigInt("1")))
	assert.False(t, ByteList(nil).Equal(List()))
}

func TestValueMapOrderInsensitiveEquality(t *testing.T) {
	a := Map(
		Pair{Key: String("x"), Value: Int32(1)},
		Pair{Key: String("y"), Value: Int32(2)},
	)
	b := Map(
		Pair{Key: String("y"), Value: Int32(2)},
		Pair{Key: String("x"), Value: Int32(1)},
	)
	assert.True(t, a.Equal(b))

	// But wire encoding preserves insertion order.
	dataA, err := StandardMessage.EncodeMessage(a)
	require.NoError(t, err)
	dataB, err := StandardMessage.EncodeMessage(b)
	require.NoError(t, err)
	assert.NotEqual(t, dataA, dataB)
}

func TestValueMapDuplicateKeysCompareSymmetrically(t *testing.T) {
	a := Map(
		Pair{Key: String("k"), Value: Int32(1)},
		Pair{Key: String("k"), Value: Int32(2)},
	)
	b := Map(
		Pair{Key: String("k"), Value: Int32(2)},
		Pair{Key: String("k"), Value: Int32(1)},
	)
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))

	c := Map(
		Pair{Key: String("k"), Value: Int32(1)},
		Pair{Key: String("k"), Value: Int32(1)},
	)
	assert.False(t, a.Equal(c))
	assert.False(t, c.Equal(a))
}

func TestValueMapAnyKeys(t *testing.T) {
	m := Map(
		Pair{Key: Int64(7), Value: String("seven")},
		Pair{Key: Bool(true), Value: String("yes")},
	)

	got, ok := m.Get(Int64(7))
	require.True(t, ok)
	assert.Equal(t, "seven", got.String())

	_, ok = m.Get(Int64(8))
	assert.False(t, ok)
}

func TestValueStringAccessor(t *testing.T) {
	assert.Equal(t, "abc", String("abc").String())
	assert.Equal(t, "ff", BigInt("ff").String())
	// Non-string kinds describe themselves instead of returning data.
	assert.Equal(t, "<Int32 value>", Int32(1).String())
}

func TestValueLen(t *testing.T) {
	assert.Equal(t, 3, List(Null(), Null(), Null()).Len())
	assert.Equal(t, 2, Int32List([]int32{1, 2}).Len())
	assert.Equal(t, 1, Map(Pair{Key: Null(), Value: Null()}).Len())
	assert.Equal(t, 0, Null().Len())
}
