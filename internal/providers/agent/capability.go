package agent

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"uniicon/internal/infra"
	"uniicon/internal/pipeline"
)

// Role identifies which reasoning step a capability performs.
type Role string

const (
	RoleExtract   Role = "extract"
	RoleInterpret Role = "interpret"
	RolePlanner   Role = "planner"
	RoleValidator Role = "validator"
)

// DefaultAliasID is used when no alias is configured for an agent.
const DefaultAliasID = "TSTALIASID"

// Ref identifies one hosted agent.
type Ref struct {
	AgentID string
	AliasID string
}

// Capability adapts one hosted agent to the pipeline's text contract. A
// capability never fails hard: missing configuration and remote errors both
// degrade to an identity pass-through of the input.
type Capability struct {
	role    Role
	ref     Ref
	session *Session
	logger  *infra.Logger
}

var _ pipeline.TextCapability = (*Capability)(nil)

// NewCapability binds a role to an agent reference and the shared session.
func NewCapability(role Role, ref Ref, session *Session, logger *infra.Logger) *Capability {
	if ref.AliasID == "" {
		ref.AliasID = DefaultAliasID
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Capability{role: role, ref: ref, session: session, logger: logger}
}

// Role returns the capability's pipeline role.
func (c *Capability) Role() Role { return c.role }

// Configured reports whether an agent id is bound to this capability.
func (c *Capability) Configured() bool {
	return c.ref.AgentID != ""
}

// Invoke runs the agent on the input and returns its collected completion.
// Every soft failure returns the input unchanged:
//
//	not_configured    no agent id bound, remote never called
//	session           shared runtime could not be initialized
//	invoke            transport or remote error starting the invocation
//	stream            the completion stream broke mid-way
//	empty_completion  the agent answered with nothing usable
func (c *Capability) Invoke(ctx context.Context, input string) pipeline.Result[string] {
	if !c.Configured() {
		c.logger.Warn().Str("role", string(c.role)).Msg("agent: no agent id configured, passing input through")
		return pipeline.Degraded(input, "not_configured")
	}

	rt, err := c.session.Runtime()
	if err != nil {
		c.logger.Warn().Err(err).Str("role", string(c.role)).Msg("agent: session init failed")
		return pipeline.Degraded(input, "session")
	}

	// Fresh session id per invocation; retries never reuse one.
	sessionID := uuid.NewString()
	started := time.Now()

	stream, err := rt.Invoke(ctx, c.ref.AgentID, c.ref.AliasID, sessionID, input)
	if err != nil {
		c.logger.Warn().Err(err).Str("role", string(c.role)).Msg("agent: invocation failed")
		return pipeline.Degraded(input, "invoke")
	}
	completion, err := stream.Collect()
	if err != nil {
		c.logger.Warn().Err(err).Str("role", string(c.role)).Msg("agent: stream failed")
		return pipeline.Degraded(input, "stream")
	}
	if strings.TrimSpace(completion) == "" {
		c.logger.Warn().Str("role", string(c.role)).Msg("agent: empty completion")
		return pipeline.Degraded(input, "empty_completion")
	}

	c.logger.Debug().
		Str("role", string(c.role)).
		Dur("elapsed", time.Since(started)).
		Int("chars", len(completion)).
		Msg("agent: invocation completed")
	return pipeline.Ok(completion)
}
