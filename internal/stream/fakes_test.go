package stream

import (
	"errors"
	"fmt"

	"github.com/annel0/endless-runner/internal/vec"
)

type fakeHost struct {
	next         int
	materialized []SegmentTemplate
	transforms   []vec.Transform
	releases     map[InstanceHandle]int
	failAfter    int // materialize fails once this many succeeded; <0 never
	failRelease  bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{releases: make(map[InstanceHandle]int), failAfter: -1}
}

func (h *fakeHost) Materialize(tpl SegmentTemplate, at vec.Transform) (InstanceHandle, error) {
	if h.failAfter >= 0 && len(h.materialized) >= h.failAfter {
		return "", errors.New("out of geometry")
	}
	h.materialized = append(h.materialized, tpl)
	h.transforms = append(h.transforms, at)
	handle := InstanceHandle(fmt.Sprintf("seg-%d", h.next))
	h.next++
	return handle, nil
}

func (h *fakeHost) Release(handle InstanceHandle) error {
	h.releases[handle]++
	if h.failRelease {
		return errors.New("release rejected")
	}
	return nil
}

func (h *fakeHost) live() int {
	return len(h.materialized) - len(h.releases)
}

type fakeMover struct {
	spawns   []vec.Vec3Float
	template string
	z        float64
	hasAgent bool
	fail     bool
}

func (m *fakeMover) SpawnAgent(template string, at vec.Vec3Float) (AgentHandle, error) {
	if m.fail {
		return "", errors.New("no prefab")
	}
	m.spawns = append(m.spawns, at)
	m.template = template
	m.z = at.Z
	m.hasAgent = true
	return AgentHandle("agent-1"), nil
}

func (m *fakeMover) CurrentAgentPosition() (float64, bool) {
	return m.z, m.hasAgent
}

// fixedRand всегда возвращает одно и то же значение по модулю n
type fixedRand struct{ v int }

func (r fixedRand) Intn(n int) int { return r.v % n }

func scenarioSettings() Settings {
	return Settings{
		Catalog:               []string{"straight", "ramp", "gap"},
		SegmentLength:         10,
		WindowSize:            3,
		PreGenerationDistance: 20,
		AgentClearanceMargin:  0,
		AgentTemplate:         "runner",
		FrontierAnchor:        &vec.Transform{},
	}
}
