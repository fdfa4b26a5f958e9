package execution

import "strings"

// State represents the lifecycle state of a process.
type State string

const (
	StateWaiting   State = "waiting"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateKilled    State = "killed"
)

// transitions is the legal transition table. Delete is legal from any state
// and is handled outside of it. Kill is accepted from every other state.
var transitions = map[State][]State{
	StateWaiting:   {StateRunning, StateKilled},
	StateRunning:   {StatePaused, StateCompleted, StateFailed, StateKilled},
	StatePaused:    {StateRunning, StateFailed, StateKilled},
	StateCompleted: {StateKilled},
	StateFailed:    {StateKilled},
}

// CanTransition reports whether moving from s to to is legal.
func (s State) CanTransition(to State) bool {
	for _, candidate := range transitions[s] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for completed, failed and killed.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateKilled
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateWaiting, StateRunning, StatePaused, StateCompleted, StateFailed, StateKilled:
		return true
	}
	return false
}

// Type classifies the game activity a process simulates.
type Type string

const (
	TypeFileDownload Type = "file_download"
	TypeFileUpload   Type = "file_upload"
	TypeBruteforce   Type = "bruteforce"
	TypeHack         Type = "hack"
	TypeVirusScan    Type = "virus_scan"
	TypeVirusInstall Type = "virus_install"
	TypeVirusCollect Type = "virus_collect"
	TypeLogClean     Type = "log_clean"
	TypeLogForge     Type = "log_forge"
	TypeResearch     Type = "research"
	TypeDDoS         Type = "ddos"
	TypeBankHack     Type = "bank_hack"
	TypeWireTransfer Type = "wire_transfer"
)

// Types lists the built-in process types.
func Types() []Type {
	return []Type{
		TypeFileDownload, TypeFileUpload, TypeBruteforce, TypeHack,
		TypeVirusScan, TypeVirusInstall, TypeVirusCollect, TypeLogClean,
		TypeLogForge, TypeResearch, TypeDDoS, TypeBankHack, TypeWireTransfer,
	}
}

// Priority of a process. Ordinals follow the game's legacy values.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank returns the ordinal value of the priority; unknown values rank as
// normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityHigh:
		return 10
	case PriorityCritical:
		return 15
	default:
		return 5
	}
}

// Valid reports whether p is a known priority; the empty value is valid and
// means normal.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ParsePriority converts a case-insensitive name to Priority.
func ParsePriority(s string) Priority {
	return Priority(strings.ToLower(strings.TrimSpace(s)))
}

// ExecutionState is the runtime shadow of a running process.
type ExecutionState string

const (
	ExecutionStateInitializing        ExecutionState = "initializing"
	ExecutionStateRunning             ExecutionState = "running"
	ExecutionStateSuspended           ExecutionState = "suspended"
	ExecutionStateWaitingForResources ExecutionState = "waiting_for_resources"
	ExecutionStateCompleting          ExecutionState = "completing"
	ExecutionStateFailed              ExecutionState = "failed"
)

// Signal is a lifecycle signal delivered to a process.
type Signal string

const (
	SignalTerm       Signal = "SIGTERM"
	SignalStop       Signal = "SIGSTOP"
	SignalCont       Signal = "SIGCONT"
	SignalKill       Signal = "SIGKILL"
	SignalCheckpoint Signal = "SIGCHECKPOINT"
)
