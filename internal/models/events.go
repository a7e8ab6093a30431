package models

// Event payloads carried on the bus and relayed to websocket clients.

// RunUpdate is published when a swarm run starts.
type RunUpdate struct {
	RunID   string `json:"run_id"`
	Attempt int    `json:"attempt"`
	Targets int    `json:"targets"`
}

// TargetUpdate is published when an attempt against one target begins.
type TargetUpdate struct {
	Company string `json:"company"`
	URL     string `json:"url"`
	Attempt int    `json:"attempt"`
}

// PhaseUpdate is published as an attempt moves through its flow phases.
type PhaseUpdate struct {
	Company string `json:"company"`
	Phase   string `json:"phase"`
	Attempt int    `json:"attempt"`
}

// HealUpdate is published when a self-heal invocation widened the hint
// pools. Added entries are "pool:phrase" pairs.
type HealUpdate struct {
	HealCount int      `json:"heal_count"`
	Added     []string `json:"added"`
}
