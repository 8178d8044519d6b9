package protocol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePlayerInputLayout(t *testing.T) {
	b := EncodeClient(PlayerInput{Slot: 3, Keys: KeyForwards | KeyLeft, Yaw: 1.5, Pitch: -2})

	yaw := math.Float32bits(1.5)
	pitch := math.Float32bits(-2)
	expected := []byte{
		uint8(TagPlayerInput),
		3,
		uint8(KeyForwards | KeyLeft),
		byte(yaw >> 24), byte(yaw >> 16), byte(yaw >> 8), byte(yaw),
		byte(pitch >> 24), byte(pitch >> 16), byte(pitch >> 8), byte(pitch),
	}
	assert.Equal(t, expected, b)

	cmd, err := DecodeClient(b)
	require.NoError(t, err)
	assert.Equal(t, PlayerInput{Slot: 3, Keys: KeyForwards | KeyLeft, Yaw: 1.5, Pitch: -2}, cmd)
}

func TestDecodeClientCommands(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected ClientCommand
	}{
		{
			name:     "connect has no payload",
			data:     []byte{uint8(TagConnect)},
			expected: Connect{},
		},
		{
			name:     "disconnect carries slot",
			data:     []byte{uint8(TagDisconnect), 7},
			expected: Disconnect{Slot: 7},
		},
		{
			name:     "trailing bytes are ignored",
			data:     []byte{uint8(TagDisconnect), 1, 0xff, 0xff},
			expected: Disconnect{Slot: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeClient(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cmd)
		})
	}
}

func TestDecodeClientErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{name: "empty datagram", data: nil, err: ErrShortPacket},
		{name: "unknown tag", data: []byte{0x7f}, err: ErrUnknownCommand},
		{name: "disconnect without slot", data: []byte{uint8(TagDisconnect)}, err: ErrShortPacket},
		{name: "truncated input", data: []byte{uint8(TagPlayerInput), 0, 1, 0x3f}, err: ErrShortPacket},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeClient(tt.data)
			assert.Nil(t, cmd)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestConnectRequestResultPayload(t *testing.T) {
	ok := EncodeServer(ConnectRequestResult{Result: ResultSuccess, Slot: 2, Capacity: 8})
	assert.Equal(t, []byte{uint8(TagConnectRequestResult), uint8(ResultSuccess), 2, 8}, ok)

	// GameFull 不携带槽位与容量
	full := EncodeServer(ConnectRequestResult{Result: ResultGameFull, Slot: 2, Capacity: 8})
	assert.Equal(t, []byte{uint8(TagConnectRequestResult), uint8(ResultGameFull)}, full)

	cmd, err := DecodeServer(full)
	require.NoError(t, err)
	assert.Equal(t, ConnectRequestResult{Result: ResultGameFull}, cmd)
}

func TestWorldStateLayout(t *testing.T) {
	ws := WorldState{Entities: []EntityState{
		{Index: 0, X: 10, Y: 0, Z: 10},
		{Index: 5, X: 20, Y: 1, Z: 20, Yaw: 90, Pitch: -10},
	}}
	b := EncodeServer(ws)

	require.Len(t, b, 3+2*entityStateSize)
	assert.Equal(t, uint8(TagWorldState), b[0])
	assert.Equal(t, []byte{0, 2}, b[1:3])
	// 第二条记录的索引位于第一条记录之后
	assert.Equal(t, []byte{0, 5}, b[3+entityStateSize:3+entityStateSize+2])

	cmd, err := DecodeServer(b)
	require.NoError(t, err)
	assert.Equal(t, ws, cmd)
}

func TestDecodeWorldStateRejectsInflatedCount(t *testing.T) {
	b := []byte{uint8(TagWorldState), 0xff, 0xff, 0, 1}
	_, err := DecodeServer(b)
	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestInputKeysHas(t *testing.T) {
	keys := KeyForwards | KeyRight
	assert.True(t, keys.Has(KeyForwards))
	assert.True(t, keys.Has(KeyRight))
	assert.False(t, keys.Has(KeyBack))
	assert.False(t, keys.Has(KeyForwards|KeyBack))
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "PlayerInput", TagPlayerInput.String())
	assert.Equal(t, "WorldState", TagWorldState.String())
	assert.Equal(t, "Unknown(0x7f)", ClientTag(0x7f).String())
}
