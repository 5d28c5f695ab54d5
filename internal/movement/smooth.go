package movement

import "math"

// SmoothDamp плавно приближает current к target с критическим демпфированием.
// velocity хранит состояние между вызовами; maxSpeed <= 0 снимает ограничение скорости.
func SmoothDamp(current, target float64, velocity *float64, smoothTime, maxSpeed, dt float64) float64 {
	if dt <= 0 {
		return current
	}
	smoothTime = math.Max(0.0001, smoothTime)
	omega := 2 / smoothTime

	x := omega * dt
	exp := 1 / (1 + x + 0.48*x*x + 0.235*x*x*x)

	change := current - target
	originalTo := target

	if maxSpeed > 0 {
		maxChange := maxSpeed * smoothTime
		change = clamp(change, -maxChange, maxChange)
	}
	target = current - change

	temp := (*velocity + omega*change) * dt
	*velocity = (*velocity - omega*temp) * exp
	output := target + (change+temp)*exp

	// Не проскакиваем цель
	if (originalTo-current > 0) == (output > originalTo) {
		output = originalTo
		*velocity = (output - originalTo) / dt
	}
	return output
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
