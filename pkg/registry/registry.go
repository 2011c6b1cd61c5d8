package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/schema"
)

// Factory builds a node kind from creation parameters.
// params may be nil; factories decode it with Decode.
type Factory func(params map[string]any) (domain.Kind, error)

// Descriptor documents a registered kind.
type Descriptor struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Inputs      []domain.PortSpec `json:"inputs"`
	Outputs     []domain.PortSpec `json:"outputs"`
	Sink        bool              `json:"sink"`
	// Schema lists the value types the kind's inputs accept, when it declares them.
	Schema schema.Schema `json:"schema,omitempty"`
}

// EntryOption configures a registry entry.
type EntryOption func(*entry)

// WithDescription attaches a one-line description to a kind.
func WithDescription(desc string) EntryOption {
	return func(e *entry) {
		e.description = desc
	}
}

type entry struct {
	factory     Factory
	description string
}

// Registry maps kind names to factories.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Register adds a kind factory to the registry.
// If a kind with the same name exists, it is overwritten.
func (r *Registry) Register(name string, f Factory, opts ...EntryOption) {
	e := &entry{factory: f}
	for _, opt := range opts {
		opt(e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = e
}

// New looks up a kind by name and builds it with params.
// Returns ErrUnknownKind if the name is not registered and ErrInvalidKind
// if the factory rejects params.
func (r *Registry) New(name string, params map[string]any) (domain.Kind, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownKind, name)
	}

	kind, err := e.factory(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidKind, name, err)
	}
	if err := domain.ValidateKind(kind); err != nil {
		return nil, err
	}
	return kind, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Names returns the registered kind names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the port layout of a kind, built with no parameters.
func (r *Registry) Describe(name string) (Descriptor, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", domain.ErrUnknownKind, name)
	}
	kind, err := e.factory(nil)
	if err != nil {
		return Descriptor{}, fmt.Errorf("describe %s: %w", name, err)
	}
	d := Descriptor{
		Name:        name,
		Description: e.description,
		Inputs:      kind.Inputs(),
		Outputs:     kind.Outputs(),
		Sink:        domain.IsSink(kind),
	}
	if s, ok := schema.Of(kind); ok {
		d.Schema = s
	}
	return d, nil
}

// DescribeAll returns the descriptors of every registered kind, sorted by name.
func (r *Registry) DescribeAll() ([]Descriptor, error) {
	names := r.Names()
	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		d, err := r.Describe(name)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

var valueType = reflect.TypeOf(domain.Value{})

// Decode fills out (a pointer to a struct) from params using mapstructure tags.
// Unknown keys are rejected and primitives are converted to domain.Value fields.
func Decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook:       mapstructure.DecodeHookFuncType(valueHook),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func valueHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != valueType || from == valueType {
		return data, nil
	}
	return domain.FromAny(data)
}
