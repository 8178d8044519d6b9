package server

import (
	"math"

	"slotarena/protocol"
)

// Vec3 世界坐标
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Rotation 朝向，单位为角度
type Rotation struct {
	Yaw   float32
	Pitch float32
}

type Transform struct {
	Position Vec3
	Rotation Rotation
}

// Entity 服务端权威实体：玩家占用与槽位同号的实体，世界实体常驻
type Entity struct {
	Alive     bool
	Transform Transform
}

// forward 水平面上的前向单位向量；yaw=0 时朝向 -Z
func (e *Entity) forward() (x, z float32) {
	rad := float64(e.Transform.Rotation.Yaw) * math.Pi / 180
	return float32(math.Sin(rad)), float32(-math.Cos(rad))
}

func (e *Entity) translate(dx, dz, step float32) {
	e.Transform.Position.X += dx * step
	e.Transform.Position.Z += dz * step
}

func (e *Entity) MoveForwards(step float32) {
	fx, fz := e.forward()
	e.translate(fx, fz, step)
}

func (e *Entity) MoveBackwards(step float32) {
	fx, fz := e.forward()
	e.translate(-fx, -fz, step)
}

// 右向量为前向绕 Y 轴顺时针旋转 90 度
func (e *Entity) MoveLeft(step float32) {
	fx, fz := e.forward()
	e.translate(fz, -fx, step)
}

func (e *Entity) MoveRight(step float32) {
	fx, fz := e.forward()
	e.translate(-fz, fx, step)
}

func (e *Entity) state(index int) protocol.EntityState {
	p, r := e.Transform.Position, e.Transform.Rotation
	return protocol.EntityState{
		Index: uint16(index),
		X:     p.X,
		Y:     p.Y,
		Z:     p.Z,
		Yaw:   r.Yaw,
		Pitch: r.Pitch,
	}
}
