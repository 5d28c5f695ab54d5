package stream

import "github.com/annel0/endless-runner/internal/vec"

// Bootstrap выполняет однократную инициализацию: проверяет настройки,
// создаёт агента позади фронтира и заполняет окно K сегментами без вытеснения.
// Любая ошибка отключает подсистему; хост продолжает работу.
func (c *Controller) Bootstrap() (BootstrapResult, error) {
	if c.state != stateNew {
		return BootstrapResult{}, ErrAlreadyBootstrapped
	}

	if err := c.settings.Validate(); err != nil {
		c.disable(err)
		return BootstrapResult{}, err
	}

	length := c.settings.SegmentLength

	// Фронтир в начало оси
	c.frontier.placeAt(0)

	// Агент стартует внутри первого сегмента, а не на его границе
	agentPos := c.frontier.Transform().Position.Add(vec.Vec3Float{
		Y: c.settings.AgentLift,
		Z: -(length/2 + c.settings.AgentClearanceMargin),
	})

	handle, err := c.mover.SpawnAgent(c.settings.AgentTemplate, agentPos)
	if err != nil {
		spawnErr := &AgentSpawnError{Position: agentPos, Err: err}
		c.disable(spawnErr)
		return BootstrapResult{}, spawnErr
	}
	c.agent = handle
	c.logger.Info("agent %q spawned at (%.2f, %.2f, %.2f)", c.settings.AgentTemplate, agentPos.X, agentPos.Y, agentPos.Z)

	res := BootstrapResult{
		Agent:         handle,
		AgentPosition: agentPos,
		Events: []Event{{
			Kind:      EventAgentSpawned,
			Template:  c.settings.AgentTemplate,
			Transform: vec.Transform{Position: agentPos},
			Handle:    string(handle),
		}},
	}

	// Первый сегмент центрируется относительно агента
	c.frontier.placeAt(agentPos.Z + length/2)

	for i := 0; i < c.settings.WindowSize; i++ {
		ev, err := c.spawnNext()
		if err != nil {
			c.disable(err)
			res.FrontierZ = c.frontier.PositionAlongAxis()
			return res, err
		}
		res.Events = append(res.Events, ev)
	}

	c.state = stateRunning
	res.FrontierZ = c.frontier.PositionAlongAxis()
	c.logger.Info("initial %d segments spawned, frontier at z=%.2f; ready for continuous generation",
		c.window.Size(), res.FrontierZ)
	return res, nil
}
