package vec

// Transform положение и ориентация объекта в мире.
// Rotation хранит углы Эйлера в градусах.
type Transform struct {
	Position Vec3Float `json:"position"`
	Rotation Vec3Float `json:"rotation"`
}

// Translated возвращает копию, сдвинутую на delta; ориентация сохраняется
func (t Transform) Translated(delta Vec3Float) Transform {
	return Transform{Position: t.Position.Add(delta), Rotation: t.Rotation}
}
