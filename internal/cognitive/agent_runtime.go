package cognitive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codenerd/internal/provider"
	"codenerd/internal/safety"
	"codenerd/internal/value"
)

// Episode is a recorded (trigger, observations, decision, outcome) tuple
// kept for later recall (spec.md §4.5, GLOSSARY "Episode").
type Episode struct {
	Trigger         Trigger
	Observations    []Observation
	Decision        Decision
	SafetyRejected  bool
	RejectionReason string
	Timestamp       time.Time
}

// Config bounds an AgentRuntime's willingness to keep deliberating
// (spec.md §4.5's safety configuration).
type Config struct {
	MaxFixLines                    int
	MaxBacktrackDepth              int
	MaxDeliberationsWithoutProgress int
	MaxDeliberations               int
}

// DefaultConfig mirrors the teacher's habit of a sane-defaults
// constructor (e.g. DefaultSelfHealerConfig).
func DefaultConfig() Config {
	return Config{
		MaxFixLines:                     50,
		MaxBacktrackDepth:               3,
		MaxDeliberationsWithoutProgress: 5,
		MaxDeliberations:                20,
	}
}

// AgentRuntime is the agent-backed cognitive Runtime (spec.md §4.5, C6),
// grounded on the shard-consultation request/response cycle in the
// teacher's internal/shards/consultation.go and the
// retry/rollback/escalate strategy selection in internal/core/self_healing.go.
type AgentRuntime struct {
	provider provider.AgentProvider
	validator *safety.Validator
	cfg       Config

	goals                []string
	invariants           []string
	availableCheckpoints []string

	obsBuffer []Observation
	episodes  []Episode

	deliberationCount             int
	consecutiveBacktracks         int
	deliberationsWithoutProgress int

	sessionID string
}

// New creates an agent-backed Runtime. cfg's zero value falls back to
// DefaultConfig.
func New(p provider.AgentProvider, cfg Config, goals, invariants []string, sessionID string) *AgentRuntime {
	if cfg.MaxDeliberations == 0 {
		cfg = DefaultConfig()
	}
	return &AgentRuntime{
		provider:   p,
		validator:  safety.New(safety.Config{MaxFixLines: cfg.MaxFixLines}),
		cfg:        cfg,
		goals:      goals,
		invariants: invariants,
		sessionID:  sessionID,
	}
}

func (r *AgentRuntime) IsActive() bool { return true }

func (r *AgentRuntime) Observe(obs Observation) {
	r.obsBuffer = append(r.obsBuffer, obs)
}

func (r *AgentRuntime) SetAvailableCheckpoints(names []string) {
	r.availableCheckpoints = names
}

// CheckGoals is a no-op in this runtime: evaluating an active goal's check
// expression requires the live evaluator environment, which the Runtime
// interface does not expose (spec.md §9 leaves invariant/goal-check
// evaluation timing unspecified). Goal-check sampling is left to a future
// evaluator-side integration that calls Deliberate directly with
// TriggerGoalMisalignment when a check fails.
func (r *AgentRuntime) CheckGoals() []Decision { return nil }

// Deliberate drains the observation buffer, builds the wire prompt,
// consults the provider, maps its response to a Decision, and enforces
// the safety counters (spec.md §4.5).
func (r *AgentRuntime) Deliberate(trigger Trigger) Decision {
	if r.deliberationCount >= r.cfg.MaxDeliberations {
		return Continue
	}
	if r.deliberationsWithoutProgress >= r.cfg.MaxDeliberationsWithoutProgress {
		return Continue
	}
	r.deliberationCount++

	observations := r.drainObservations()
	message := r.buildMessage(trigger, observations)

	resp, agentErr := r.provider.SendRequest(context.Background(), provider.AgentRequest{
		EventType: triggerEventType(trigger),
		Message:   message,
		SessionID: r.sessionID,
	})
	if agentErr != nil {
		// Fail-open (spec.md §4.5 item 5).
		r.appendEpisode(trigger, observations, Continue, false, "")
		return Continue
	}

	decision := r.mapResponse(resp)
	decision = r.enforceSafety(decision, trigger, observations)
	return decision
}

func (r *AgentRuntime) drainObservations() []Observation {
	obs := r.obsBuffer
	r.obsBuffer = nil
	return obs
}

func triggerEventType(t Trigger) provider.EventType {
	switch t.Kind {
	case TriggerTechnicalError:
		return provider.EventError
	case TriggerGoalMisalignment:
		return provider.EventPerformance
	default:
		return provider.EventError
	}
}

// mapResponse implements spec.md §4.5's decision mapping table.
func (r *AgentRuntime) mapResponse(resp *provider.AgentResponse) Decision {
	switch resp.Action {
	case provider.ActionPatch:
		if resp.Patch == nil {
			return Continue
		}
		return Decision{Kind: DecisionFix, NewCode: resp.Patch.NewCode, Explanation: resp.Explanation}
	case provider.ActionGenerate:
		if resp.GeneratedCode == "" {
			return Continue
		}
		return Decision{Kind: DecisionOverride, OverrideValue: value.String(resp.GeneratedCode)}
	case provider.ActionSuggest:
		return Continue
	case provider.ActionClarify:
		q := strings.Join(resp.Questions, "; ")
		return Decision{Kind: DecisionHalt, HaltError: "clarification needed: " + q}
	case provider.ActionEscalate:
		return Decision{Kind: DecisionHalt, HaltError: "escalated: " + resp.EscalationReason}
	default:
		return Continue
	}
}

// enforceSafety applies spec.md §4.5's post-mapping safety checks in order.
func (r *AgentRuntime) enforceSafety(d Decision, trigger Trigger, observations []Observation) Decision {
	if d.Kind == DecisionFix {
		result := r.validator.Validate(d.NewCode, r.goals)
		if !result.Verified {
			r.appendEpisode(trigger, observations, Continue, true, result.Reason)
			r.deliberationsWithoutProgress++
			return r.capProgress(Continue)
		}
		r.consecutiveBacktracks = 0
		r.appendEpisode(trigger, observations, d, false, "")
		return d
	}

	if d.Kind == DecisionBacktrack {
		r.consecutiveBacktracks++
		rejected := false
		reason := ""
		if !contains(r.availableCheckpoints, d.Checkpoint) {
			rejected, reason = true, "backtrack target not in reported checkpoint set: "+d.Checkpoint
			d = Continue
		} else if r.consecutiveBacktracks > r.cfg.MaxBacktrackDepth {
			rejected, reason = true, fmt.Sprintf("consecutive backtrack depth exceeded (max %d)", r.cfg.MaxBacktrackDepth)
			d = Continue
		}
		if rejected {
			r.deliberationsWithoutProgress++
			r.appendEpisode(trigger, observations, d, true, reason)
			return r.capProgress(d)
		}
		r.appendEpisode(trigger, observations, d, false, "")
		return d
	}

	r.consecutiveBacktracks = 0
	r.appendEpisode(trigger, observations, d, false, "")
	return r.capProgress(d)
}

// capProgress implements item 3: once deliberations-without-progress hits
// the configured ceiling, every further decision collapses to Continue.
func (r *AgentRuntime) capProgress(d Decision) Decision {
	if r.deliberationsWithoutProgress >= r.cfg.MaxDeliberationsWithoutProgress {
		return Continue
	}
	return d
}

func (r *AgentRuntime) appendEpisode(trigger Trigger, observations []Observation, d Decision, rejected bool, reason string) {
	const maxEpisodes = 3
	r.episodes = append(r.episodes, Episode{
		Trigger: trigger, Observations: observations, Decision: d,
		SafetyRejected: rejected, RejectionReason: reason, Timestamp: time.Now(),
	})
	if len(r.episodes) > maxEpisodes*10 {
		// Bound unbounded growth within one run; recent-episode windowing
		// (buildMessage) only ever looks at the tail anyway.
		r.episodes = r.episodes[len(r.episodes)-maxEpisodes*10:]
	}
}

// buildMessage implements spec.md §6's wire format: trigger description,
// recent observations, program goals (listed by description only; no goal
// is marked [ACTIVE]), invariants, available checkpoints, up to the three
// most recent episodes.
func (r *AgentRuntime) buildMessage(trigger Trigger, observations []Observation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Trigger: %s — %s\n", trigger.Kind, trigger.Description)
	if trigger.Detail != "" {
		fmt.Fprintf(&b, "Detail: %s\n", trigger.Detail)
	}

	b.WriteString("\nRecent observations:\n")
	for _, o := range observations {
		fmt.Fprintf(&b, "- %s %s = %s\n", o.Kind, o.Name, value.Display(o.Value))
	}

	b.WriteString("\nProgram goals:\n")
	for _, g := range r.goals {
		fmt.Fprintf(&b, "- %s\n", g)
	}

	b.WriteString("\nInvariants (MUST respect):\n")
	for _, inv := range r.invariants {
		fmt.Fprintf(&b, "- %s\n", inv)
	}

	b.WriteString("\nAvailable checkpoints for backtrack:\n")
	for _, c := range r.availableCheckpoints {
		fmt.Fprintf(&b, "- %s\n", c)
	}

	b.WriteString("\nRecent reasoning episodes:\n")
	episodes := r.episodes
	if len(episodes) > 3 {
		episodes = episodes[len(episodes)-3:]
	}
	for _, ep := range episodes {
		fmt.Fprintf(&b, "- [%s] %s -> %s\n", ep.Trigger.Kind, ep.Trigger.Description, ep.Decision.Kind)
	}

	return b.String()
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Episodes exposes the recorded episode trace, used by internal/memory to
// persist find_similar_episodes candidates and by callers that want to
// display a reasoning transcript.
func (r *AgentRuntime) Episodes() []Episode { return r.episodes }

var _ Runtime = (*AgentRuntime)(nil)
