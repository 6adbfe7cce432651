package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/glossahq/glossa/internal/settings"
	"github.com/glossahq/glossa/pkg/protocol"
)

// Sentinel errors for transformation lookup and mutation.
var (
	// ErrNotFound indicates no transformation has the requested id.
	ErrNotFound = errors.New("prompt: transformation not found")
	// ErrBuiltIn indicates an attempt to overwrite or delete a built-in.
	ErrBuiltIn = errors.New("prompt: transformation is built-in")
	// ErrInvalid indicates a transformation failed validation.
	ErrInvalid = errors.New("prompt: invalid transformation")
)

// Transformation is a named prompt template for the TRANSFORM operation:
// built-ins ship with the daemon, custom ones are saved through
// SAVE_TRANSFORMATION and persisted in the settings store. The wire shape
// doubles as the stored shape.
type Transformation = protocol.Transformation

// builtins are available without any store, in the order
// LIST_TRANSFORMATIONS presents them.
var builtins = []Transformation{
	{
		ID:          "summarize",
		Name:        "Summarize",
		Instruction: "Summarize the text in a few short sentences that capture its key points.",
		BuiltIn:     true,
	},
	{
		ID:          "simplify",
		Name:        "Simplify",
		Instruction: "Rewrite the text in plain language a general reader can follow, without losing meaning.",
		BuiltIn:     true,
	},
	{
		ID:          "bullet-points",
		Name:        "Bullet points",
		Instruction: "Convert the text into a concise bulleted list of its main points.",
		BuiltIn:     true,
	},
	{
		ID:          "formal-tone",
		Name:        "Formal tone",
		Instruction: "Rewrite the text in a formal, professional tone suitable for business correspondence.",
		BuiltIn:     true,
	},
}

// Library resolves transformations by id, merging the compiled-in set with
// custom ones persisted in the settings store. A nil store serves built-ins
// only.
type Library struct {
	store settings.Store
}

// NewLibrary creates a Library backed by store. The store may be nil.
func NewLibrary(store settings.Store) *Library {
	return &Library{store: store}
}

// Get resolves a transformation by id, checking built-ins before the store.
func (l *Library) Get(ctx context.Context, id string) (Transformation, error) {
	if t, ok := builtinByID(id); ok {
		return t, nil
	}
	if l.store == nil {
		return Transformation{}, ErrNotFound
	}
	raw, err := l.store.Get(ctx, settings.TransformationKeyPrefix+id)
	if errors.Is(err, settings.ErrKeyNotFound) {
		return Transformation{}, ErrNotFound
	}
	if err != nil {
		return Transformation{}, fmt.Errorf("load transformation %q: %w", id, err)
	}
	var t Transformation
	if err := json.Unmarshal(raw, &t); err != nil {
		return Transformation{}, fmt.Errorf("decode transformation %q: %w", id, err)
	}
	return t, nil
}

// List returns every transformation: built-ins in their fixed order, then
// custom ones sorted by name.
func (l *Library) List(ctx context.Context) ([]Transformation, error) {
	out := make([]Transformation, len(builtins))
	copy(out, builtins)
	if l.store == nil {
		return out, nil
	}
	keys, err := l.store.Keys(ctx, settings.TransformationKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list transformations: %w", err)
	}
	custom := make([]Transformation, 0, len(keys))
	for _, key := range keys {
		raw, err := l.store.Get(ctx, key)
		if errors.Is(err, settings.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		var t Transformation
		if err := json.Unmarshal(raw, &t); err != nil {
			// An undecodable record cannot be applied; skip it rather
			// than fail the whole listing.
			continue
		}
		custom = append(custom, t)
	}
	sort.Slice(custom, func(i, j int) bool { return custom[i].Name < custom[j].Name })
	return append(out, custom...), nil
}

// Save validates and persists a custom transformation, assigning a fresh id
// when none is given. Built-in ids cannot be overwritten.
func (l *Library) Save(ctx context.Context, t Transformation) (Transformation, error) {
	if l.store == nil {
		return Transformation{}, errors.New("prompt: transformation store not configured")
	}
	t.Name = strings.TrimSpace(t.Name)
	t.Instruction = strings.TrimSpace(t.Instruction)
	if t.Name == "" || t.Instruction == "" {
		return Transformation{}, fmt.Errorf("%w: name and instruction are required", ErrInvalid)
	}
	if _, ok := builtinByID(t.ID); ok {
		return Transformation{}, ErrBuiltIn
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.BuiltIn = false
	raw, err := json.Marshal(t)
	if err != nil {
		return Transformation{}, fmt.Errorf("encode transformation: %w", err)
	}
	if err := l.store.Set(ctx, settings.TransformationKeyPrefix+t.ID, raw); err != nil {
		return Transformation{}, fmt.Errorf("save transformation %q: %w", t.ID, err)
	}
	return t, nil
}

// Delete removes a custom transformation. Built-ins cannot be deleted.
func (l *Library) Delete(ctx context.Context, id string) error {
	if _, ok := builtinByID(id); ok {
		return ErrBuiltIn
	}
	if l.store == nil {
		return ErrNotFound
	}
	err := l.store.Remove(ctx, settings.TransformationKeyPrefix+id)
	if errors.Is(err, settings.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete transformation %q: %w", id, err)
	}
	return nil
}

func builtinByID(id string) (Transformation, bool) {
	for _, t := range builtins {
		if t.ID == id {
			return t, true
		}
	}
	return Transformation{}, false
}
