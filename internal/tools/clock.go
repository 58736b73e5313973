package tools

import (
	"context"
	"time"

	"github.com/samsaffron/term-agent/internal/agent"
)

// CurrentTimeArgs are the arguments for current_time.
type CurrentTimeArgs struct {
	Timezone string `json:"timezone,omitempty" jsonschema_description:"IANA time zone name such as Europe/Berlin (default: local time)"`
}

var currentTimeSchema = GenerateSchema[CurrentTimeArgs]()

// CurrentTimeTool implements the current_time tool.
type CurrentTimeTool struct {
	now func() time.Time
}

// NewCurrentTimeTool creates a CurrentTimeTool reading the system clock.
func NewCurrentTimeTool() *CurrentTimeTool {
	return &CurrentTimeTool{now: time.Now}
}

// Descriptor returns the registration for the dispatcher.
func (t *CurrentTimeTool) Descriptor() agent.ToolDescriptor {
	return agent.ToolDescriptor{
		Name:        CurrentTimeToolName,
		Description: "Return the current date and time of the machine running the tools.",
		Parameters:  currentTimeSchema,
		Node:        LocalNode,
		Handler:     t.Execute,
	}
}

func (t *CurrentTimeTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	a, err := decodeArgs[CurrentTimeArgs](args)
	if err != nil {
		return nil, err
	}
	now := t.now()
	if a.Timezone != "" {
		loc, err := time.LoadLocation(a.Timezone)
		if err != nil {
			return nil, NewToolErrorf(ErrInvalidParams, "unknown timezone %q", a.Timezone)
		}
		now = now.In(loc)
	}
	zone, _ := now.Zone()
	return map[string]any{
		"time":     now.Format(time.RFC3339),
		"timezone": zone,
		"unix":     now.Unix(),
		"weekday":  now.Weekday().String(),
	}, nil
}
