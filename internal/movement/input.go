package movement

import (
	"github.com/aquilax/go-perlin"
)

// InputSource отдаёт сырое горизонтальное управление в момент elapsed (секунды).
// Значения ожидаются в диапазоне [-1, 1].
type InputSource interface {
	Sample(elapsed float64) float64
}

// ConstantInput постоянное управление (0: ехать прямо)
type ConstantInput float64

func (c ConstantInput) Sample(float64) float64 { return float64(c) }

// NoiseInput детерминированное «рулевое» управление на шуме Перлина
// для прогонов без игрока.
type NoiseInput struct {
	noise     *perlin.Perlin
	frequency float64
	amplitude float64
}

// NewNoiseInput создаёт источник шума с заданным сидом
func NewNoiseInput(seed int64, frequency, amplitude float64) *NoiseInput {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	if frequency <= 0 {
		frequency = 0.5
	}
	if amplitude <= 0 {
		amplitude = 1
	}
	return &NoiseInput{
		noise:     perlin.NewPerlin(alpha, beta, n, seed),
		frequency: frequency,
		amplitude: amplitude,
	}
}

func (n *NoiseInput) Sample(elapsed float64) float64 {
	return clamp(n.noise.Noise1D(elapsed*n.frequency)*n.amplitude, -1, 1)
}
