package actions

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/monastery360/agent/internal/models"
)

// ParamType mirrors the JSON schema type names used by the tool protocol.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// ParamSpec declares one handler parameter.
type ParamSpec struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Default     any
	Enum        []string
	Min         *float64
	Max         *float64
}

// Result is what a handler produces; the dispatcher turns it into a response.
type Result struct {
	Message string
	Target  string
	Data    any
}

// Handler must be a pure function of its params, apart from id generation
// and the clock.
type Handler func(p Params) Result

// Entry is one action the agent can perform.
type Entry struct {
	Kind        models.Kind
	ToolName    string
	Description string
	Params      []ParamSpec
	Handler     Handler
}

// Defaults returns a fresh map of the declared parameter defaults.
func (e Entry) Defaults() map[string]any {
	out := make(map[string]any, len(e.Params))
	for _, spec := range e.Params {
		if spec.Default != nil {
			out[spec.Name] = spec.Default
		}
	}
	return out
}

// Required returns the names of required parameters.
func (e Entry) Required() []string {
	var names []string
	for _, spec := range e.Params {
		if spec.Required {
			names = append(names, spec.Name)
		}
	}
	return names
}

// ParamNames lists every declared parameter in declaration order.
func (e Entry) ParamNames() []string {
	names := make([]string, 0, len(e.Params))
	for _, spec := range e.Params {
		names = append(names, spec.Name)
	}
	return names
}

// Sentinel targets for actions that do not map onto a route.
const (
	TargetModal       = "modal"
	TargetCurrentPage = "current_page"
)

// Clock returns the current time.
type Clock func() time.Time

// IDGenerator returns a new identifier for prefix.
type IDGenerator func(prefix string) string

// NewIDGenerator builds ids of the form <prefix>_<unix millis>_<9 hex chars>.
// The random part comes from a v4 UUID, so ids do not collide across
// goroutines without any coordination.
func NewIDGenerator(clock Clock) IDGenerator {
	return func(prefix string) string {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
		return fmt.Sprintf("%s_%d_%s", prefix, clock().UnixMilli(), suffix)
	}
}

// Catalog is the registry of actions keyed by kind. It is populated once at
// startup and only read afterwards.
type Catalog struct {
	mu      sync.RWMutex
	entries map[models.Kind]Entry
	order   []models.Kind

	clock     Clock
	ids       IDGenerator
	directory Directory
}

type Option func(*Catalog)

func WithClock(clock Clock) Option {
	return func(c *Catalog) { c.clock = clock }
}

func WithIDGenerator(ids IDGenerator) Option {
	return func(c *Catalog) { c.ids = ids }
}

func WithDirectory(d Directory) Option {
	return func(c *Catalog) { c.directory = d }
}

// New builds a catalog holding the built-in actions.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		entries:   make(map[models.Kind]Entry),
		clock:     time.Now,
		directory: StaticDirectory{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ids == nil {
		c.ids = NewIDGenerator(c.clock)
	}
	for _, e := range c.builtinEntries() {
		c.Register(e)
	}
	return c
}

// Register adds or replaces an entry.
func (c *Catalog) Register(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[e.Kind]; !exists {
		c.order = append(c.order, e.Kind)
	}
	c.entries[e.Kind] = e
}

func (c *Catalog) Lookup(kind models.Kind) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[kind]
	return e, ok
}

// LookupTool finds an entry by its tool-protocol name.
func (c *Catalog) LookupTool(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, kind := range c.order {
		if e := c.entries[kind]; e.ToolName == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns every entry in registration order.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.order))
	for _, kind := range c.order {
		out = append(out, c.entries[kind])
	}
	return out
}

// Directory exposes the data source the handlers read from.
func (c *Catalog) Directory() Directory {
	return c.directory
}

func (c *Catalog) now() string {
	return c.clock().UTC().Format(time.RFC3339)
}

func float(v float64) *float64 { return &v }
