// Package generator produces synthetic but plausible CPU and memory
// load readings for simulated devices.
package generator

import (
	"math"
	"math/rand"
	"time"
)

// Sample is one generated load reading.
type Sample struct {
	Timestamp   time.Time
	CPUUsage    float64
	MemoryUsage float64
}

// LoadGenerator produces correlated CPU and memory readings for one
// device. CPU follows a daily cycle with noise and occasional spikes;
// memory is a slow random walk that creeps upward between drops, the
// way a leaky long-running process behaves.
type LoadGenerator struct {
	deviceID       uint
	baselineCPU    float64
	baselineMemory float64
	noise          float64
	lastMemory     float64
}

// NewLoadGenerator creates a generator with randomized baselines so
// devices do not all report identical curves.
func NewLoadGenerator(deviceID uint) *LoadGenerator {
	baselineMemory := 30.0 + rand.Float64()*30 // 30-60%
	return &LoadGenerator{
		deviceID:       deviceID,
		baselineCPU:    15.0 + rand.Float64()*25, // 15-40%
		baselineMemory: baselineMemory,
		noise:          rand.Float64() * 5,
		lastMemory:     baselineMemory,
	}
}

// DeviceID returns the device this generator produces readings for.
func (g *LoadGenerator) DeviceID() uint {
	return g.deviceID
}

// GenerateCPU with daily pattern.
func (g *LoadGenerator) GenerateCPU(t time.Time) float64 {
	hour := float64(t.Hour())

	// Daily cycle (peak in the early afternoon)
	dailyCycle := 10 * math.Sin((hour-6)*math.Pi/12)

	// Random noise
	noise := (rand.Float64() - 0.5) * g.noise

	// Occasional load spikes (5% chance)
	spike := 0.0
	if rand.Float64() < 0.05 {
		spike = rand.Float64() * 40
	}

	return clamp(g.baselineCPU + dailyCycle + noise + spike)
}

// GenerateMemory with random-walk behavior and a correlation to the
// current CPU load.
func (g *LoadGenerator) GenerateMemory(cpu float64) float64 {
	// Slow upward creep (±0.5% per reading, biased upward)
	walk := (rand.Float64() - 0.4) * 0.5

	// Busy devices hold more memory
	cpuEffect := (cpu - g.baselineCPU) * 0.1

	memory := g.lastMemory + walk + cpuEffect

	// Occasional release, as if a process restarted (2% chance)
	if rand.Float64() < 0.02 {
		memory = g.baselineMemory + (rand.Float64()-0.5)*5
	}

	memory = clamp(memory)
	g.lastMemory = memory
	return memory
}

// Generate produces one correlated reading for time t.
func (g *LoadGenerator) Generate(t time.Time) Sample {
	cpu := g.GenerateCPU(t)
	memory := g.GenerateMemory(cpu)

	return Sample{
		Timestamp:   t,
		CPUUsage:    math.Round(cpu*100) / 100,
		MemoryUsage: math.Round(memory*100) / 100,
	}
}

// clamp bounds a usage percentage to [0, 100].
func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
