package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/samsaffron/term-agent/internal/agent"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxPreviewWidth = 60

// Printer renders run progress for a human. Assistant text goes to out,
// tool activity and errors go to status.
type Printer struct {
	out    io.Writer
	status io.Writer
	styles *Styles

	mu        sync.Mutex
	toolNames map[string]string // call id -> tool name
	wroteText bool
}

// NewPrinter creates a printer. status carries the styling decisions.
func NewPrinter(out, status io.Writer) *Printer {
	return &Printer{
		out:       out,
		status:    status,
		styles:    NewStyles(status),
		toolNames: make(map[string]string),
	}
}

// Event prints one streamed event.
func (p *Printer) Event(ev agent.RunEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Type {
	case agent.EventFrame:
		p.frame(ev.Frame)
	case agent.EventToolResults:
		p.results(ev.Results)
	}
}

// Turn prints the tool calls of a completed buffered turn. It is usable as
// an agent.Observer body.
func (p *Printer) Turn(partial agent.PartialResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, call := range agent.ExtractToolCalls(partial.Messages) {
		p.call(call)
	}
}

func (p *Printer) frame(f *agent.Frame) {
	if f == nil {
		return
	}
	switch f.Event {
	case agent.FrameError:
		fmt.Fprintln(p.status, p.styles.Error.Render(FailIcon+" agent error: ")+frameMessage(f))
		return
	case agent.FrameMessage:
	default:
		return
	}
	if f.Message == nil {
		return
	}
	m := f.Message
	if m.Role == agent.RoleAssistant {
		if text := m.Text(); text != "" {
			fmt.Fprint(p.out, text)
			p.wroteText = true
		}
	}
	for _, call := range m.ToolCallBlocks() {
		p.call(call)
	}
}

func (p *Printer) call(call agent.ToolCall) {
	p.toolNames[call.ID] = call.Name
	p.endText()
	line := p.styles.Highlighted.Render(ToolIcon+" "+call.Name) + p.styles.Muted.Render("("+previewArgs(call.Args)+")")
	fmt.Fprintln(p.status, line)
}

func (p *Printer) results(results []agent.Message) {
	for _, m := range results {
		for _, b := range m.Content {
			if b.Type != agent.BlockToolResult {
				continue
			}
			name := p.toolNames[b.ToolCallID]
			if name == "" {
				name = b.ToolCallID
			}
			if b.Status == agent.StatusFailed {
				fmt.Fprintln(p.status, "  "+p.styles.FormatResult(false, name+": "+Truncate(firstLine(b.Error), maxPreviewWidth)))
				continue
			}
			fmt.Fprintln(p.status, "  "+p.styles.FormatResult(true, name))
		}
	}
}

// Final prints the final answer after a buffered run. Markdown is rendered
// when width is positive.
func (p *Printer) Final(text string, width int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if text == "" {
		return
	}
	if width > 0 {
		text = RenderMarkdown(text, width)
	}
	fmt.Fprintln(p.out, text)
}

// Finish terminates streamed text with a newline if any was written.
func (p *Printer) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endText()
}

func (p *Printer) endText() {
	if p.wroteText {
		fmt.Fprintln(p.out)
		p.wroteText = false
	}
}

// previewArgs renders tool arguments as a short key=value list.
func previewArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		var v string
		switch val := args[k].(type) {
		case string:
			v = val
		default:
			data, err := json.Marshal(val)
			if err != nil {
				v = fmt.Sprint(val)
			} else {
				v = string(data)
			}
		}
		parts = append(parts, k+"="+v)
	}
	return Truncate(strings.Join(parts, ", "), maxPreviewWidth)
}

func frameMessage(f *agent.Frame) string {
	switch data := f.Data.(type) {
	case string:
		return data
	case map[string]any:
		if msg, ok := data["message"].(string); ok {
			return msg
		}
	}
	return "stream reported an error"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
