package stream

import "github.com/annel0/endless-runner/internal/vec"

// Frontier курсор, указывающий, где будет размещён следующий сегмент
type Frontier struct {
	transform vec.Transform
}

// NewFrontier создаёт курсор в заданной позиции
func NewFrontier(at vec.Transform) *Frontier {
	return &Frontier{transform: at}
}

// Advance сдвигает курсор вперёд по оси движения; ориентация сохраняется
func (f *Frontier) Advance(segmentLength float64) {
	f.transform = f.transform.Translated(vec.Forward.Mul(segmentLength))
}

// PositionAlongAxis координата курсора по оси Z
func (f *Frontier) PositionAlongAxis() float64 {
	return f.transform.Position.Z
}

// Transform текущая позиция и ориентация курсора
func (f *Frontier) Transform() vec.Transform {
	return f.transform
}

// placeAt ставит курсор на ось (X = 0) в точку z, высота и ориентация не меняются
func (f *Frontier) placeAt(z float64) {
	f.transform.Position.X = 0
	f.transform.Position.Z = z
}
