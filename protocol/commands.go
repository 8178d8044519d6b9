package protocol

import "fmt"

// ClientTag 客户端发往服务端的命令标签
type ClientTag uint8

const (
	TagPlayerInput ClientTag = iota
	TagConnect
	TagDisconnect
)

func (t ClientTag) String() string {
	switch t {
	case TagPlayerInput:
		return "PlayerInput"
	case TagConnect:
		return "Connect"
	case TagDisconnect:
		return "Disconnect"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", uint8(t))
	}
}

// ServerTag 服务端发往客户端的命令标签
type ServerTag uint8

const (
	TagWorldState ServerTag = iota
	TagConnectRequestResult
	TagPlayerJoin
	TagPlayerLeave
)

func (t ServerTag) String() string {
	switch t {
	case TagWorldState:
		return "WorldState"
	case TagConnectRequestResult:
		return "ConnectRequestResult"
	case TagPlayerJoin:
		return "PlayerJoin"
	case TagPlayerLeave:
		return "PlayerLeave"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", uint8(t))
	}
}

// ConnectionResult 连接请求的结果码
type ConnectionResult uint8

const (
	ResultSuccess ConnectionResult = iota
	ResultGameFull
)

func (r ConnectionResult) String() string {
	switch r {
	case ResultSuccess:
		return "Success"
	case ResultGameFull:
		return "GameFull"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", uint8(r))
	}
}

// InputKeys 客户端按键位掩码
type InputKeys uint8

const (
	KeyForwards InputKeys = 1 << iota
	KeyBack
	KeyLeft
	KeyRight
)

// Has 判断 k 中的所有位是否都被按下
func (i InputKeys) Has(k InputKeys) bool { return i&k == k }

// ---- client -> server ----

// ClientCommand 客户端命令的封闭集合，按类型分派
type ClientCommand interface {
	Tag() ClientTag
	encode(w *Writer)
}

// Connect 无负载，发送方由数据报的源地址与端口确定
type Connect struct{}

// Disconnect 主动断开
type Disconnect struct {
	Slot uint8
}

// PlayerInput 当前按键与朝向
type PlayerInput struct {
	Slot  uint8
	Keys  InputKeys
	Yaw   float32
	Pitch float32
}

func (Connect) Tag() ClientTag     { return TagConnect }
func (Disconnect) Tag() ClientTag  { return TagDisconnect }
func (PlayerInput) Tag() ClientTag { return TagPlayerInput }

func (Connect) encode(*Writer) {}

func (c Disconnect) encode(w *Writer) { w.U8(c.Slot) }

func (c PlayerInput) encode(w *Writer) {
	w.U8(c.Slot).U8(uint8(c.Keys)).F32(c.Yaw).F32(c.Pitch)
}

// EncodeClient 序列化客户端命令：[tag][payload...]
func EncodeClient(cmd ClientCommand) []byte {
	w := NewWriter(16)
	w.U8(uint8(cmd.Tag()))
	cmd.encode(w)
	return w.Bytes()
}

// DecodeClient 解析客户端命令，字段按编码顺序读取
func DecodeClient(b []byte) (ClientCommand, error) {
	r := NewReader(b)
	tag := ClientTag(r.U8())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read client tag: %w", err)
	}

	var cmd ClientCommand
	switch tag {
	case TagConnect:
		cmd = Connect{}
	case TagDisconnect:
		cmd = Disconnect{Slot: r.U8()}
	case TagPlayerInput:
		cmd = PlayerInput{
			Slot:  r.U8(),
			Keys:  InputKeys(r.U8()),
			Yaw:   r.F32(),
			Pitch: r.F32(),
		}
	default:
		return nil, fmt.Errorf("%w: client tag %s", ErrUnknownCommand, tag)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", tag, err)
	}
	return cmd, nil
}

// ---- server -> client ----

// ServerCommand 服务端命令的封闭集合
type ServerCommand interface {
	Tag() ServerTag
	encode(w *Writer)
}

// ConnectRequestResult 连接应答；仅在 Success 时携带槽位与容量
type ConnectRequestResult struct {
	Result   ConnectionResult
	Slot     uint8
	Capacity uint8
}

type PlayerJoin struct {
	Slot uint8
}

type PlayerLeave struct {
	Slot uint8
}

// EntityState 单个存活实体在某一帧的变换
type EntityState struct {
	Index uint16  `json:"index"`
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
	Z     float32 `json:"z"`
	Yaw   float32 `json:"yaw"`
	Pitch float32 `json:"pitch"`
}

// WorldState 全量世界快照，仅包含存活实体，按索引升序
type WorldState struct {
	Entities []EntityState
}

func (ConnectRequestResult) Tag() ServerTag { return TagConnectRequestResult }
func (PlayerJoin) Tag() ServerTag           { return TagPlayerJoin }
func (PlayerLeave) Tag() ServerTag          { return TagPlayerLeave }
func (WorldState) Tag() ServerTag           { return TagWorldState }

func (c ConnectRequestResult) encode(w *Writer) {
	w.U8(uint8(c.Result))
	if c.Result == ResultSuccess {
		w.U8(c.Slot).U8(c.Capacity)
	}
}

func (c PlayerJoin) encode(w *Writer)  { w.U8(c.Slot) }
func (c PlayerLeave) encode(w *Writer) { w.U8(c.Slot) }

func (c WorldState) encode(w *Writer) {
	w.U16(uint16(len(c.Entities)))
	for _, e := range c.Entities {
		w.U16(e.Index).F32(e.X).F32(e.Y).F32(e.Z).F32(e.Yaw).F32(e.Pitch)
	}
}

// entityStateSize 每条实体记录的字节数：index + 5 个 float32
const entityStateSize = 2 + 5*4

// EncodeServer 序列化服务端命令
func EncodeServer(cmd ServerCommand) []byte {
	size := 8
	if ws, ok := cmd.(WorldState); ok {
		size = 3 + len(ws.Entities)*entityStateSize
	}
	w := NewWriter(size)
	w.U8(uint8(cmd.Tag()))
	cmd.encode(w)
	return w.Bytes()
}

// DecodeServer 解析服务端命令（客户端与测试使用）
func DecodeServer(b []byte) (ServerCommand, error) {
	r := NewReader(b)
	tag := ServerTag(r.U8())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read server tag: %w", err)
	}

	var cmd ServerCommand
	switch tag {
	case TagConnectRequestResult:
		res := ConnectRequestResult{Result: ConnectionResult(r.U8())}
		if res.Result == ResultSuccess {
			res.Slot = r.U8()
			res.Capacity = r.U8()
		}
		cmd = res
	case TagPlayerJoin:
		cmd = PlayerJoin{Slot: r.U8()}
	case TagPlayerLeave:
		cmd = PlayerLeave{Slot: r.U8()}
	case TagWorldState:
		n := int(r.U16())
		// 防止伪造的计数导致超大分配
		if r.Err() == nil && n*entityStateSize > r.Remaining() {
			return nil, fmt.Errorf("decode %s: %d entities: %w", tag, n, ErrShortPacket)
		}
		ws := WorldState{Entities: make([]EntityState, 0, n)}
		for i := 0; i < n; i++ {
			ws.Entities = append(ws.Entities, EntityState{
				Index: r.U16(),
				X:     r.F32(),
				Y:     r.F32(),
				Z:     r.F32(),
				Yaw:   r.F32(),
				Pitch: r.F32(),
			})
		}
		cmd = ws
	default:
		return nil, fmt.Errorf("%w: server tag %s", ErrUnknownCommand, tag)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", tag, err)
	}
	return cmd, nil
}
