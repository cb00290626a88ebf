package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/retico-go/retico/pkg/audio"
	"github.com/retico-go/retico/pkg/backend"
	"github.com/retico-go/retico/pkg/provider/llm"
)

// ErrBackendNotRegistered is returned by Create* methods when no factory has
// been registered under the requested backend name.
var ErrBackendNotRegistered = errors.New("config: backend not registered")

// Registry maps backend names to their constructor functions for each
// backend contract. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	asr       map[string]func(BackendEntry) (backend.ASR, error)
	tts       map[string]func(BackendEntry) (backend.TTS, error)
	translate map[string]func(BackendEntry) (backend.Translator, error)
	platform  map[string]func(BackendEntry) (audio.Platform, error)
	llm       map[string]func(BackendEntry) (llm.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		asr:       make(map[string]func(BackendEntry) (backend.ASR, error)),
		tts:       make(map[string]func(BackendEntry) (backend.TTS, error)),
		translate: make(map[string]func(BackendEntry) (backend.Translator, error)),
		platform:  make(map[string]func(BackendEntry) (audio.Platform, error)),
		llm:       make(map[string]func(BackendEntry) (llm.Provider, error)),
	}
}

// RegisterASR registers an ASR backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterASR(name string, factory func(BackendEntry) (backend.ASR, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// RegisterTTS registers a TTS backend factory under name.
func (r *Registry) RegisterTTS(name string, factory func(BackendEntry) (backend.TTS, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterTranslate registers a Translator backend factory under name.
func (r *Registry) RegisterTranslate(name string, factory func(BackendEntry) (backend.Translator, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translate[name] = factory
}

// RegisterPlatform registers an audio platform factory under name.
func (r *Registry) RegisterPlatform(name string, factory func(BackendEntry) (audio.Platform, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.platform[name] = factory
}

// RegisterLLM registers an LLM provider factory under name, for use by
// pkg/dm/llmdm's "external" dialogue-manager adapter.
func (r *Registry) RegisterLLM(name string, factory func(BackendEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// CreateASR instantiates an ASR backend using the factory registered under entry.Name.
// Returns [ErrBackendNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateASR(entry BackendEntry) (backend.ASR, error) {
	r.mu.RLock()
	factory, ok := r.asr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrBackendNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS instantiates a TTS backend using the factory registered under entry.Name.
func (r *Registry) CreateTTS(entry BackendEntry) (backend.TTS, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrBackendNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTranslate instantiates a Translator backend using the factory registered under entry.Name.
func (r *Registry) CreateTranslate(entry BackendEntry) (backend.Translator, error) {
	r.mu.RLock()
	factory, ok := r.translate[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: translate/%q", ErrBackendNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreatePlatform instantiates an audio platform using the factory registered under entry.Name.
func (r *Registry) CreatePlatform(entry BackendEntry) (audio.Platform, error) {
	r.mu.RLock()
	factory, ok := r.platform[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: platform/%q", ErrBackendNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateLLM instantiates an LLM provider using the factory registered under entry.Name.
func (r *Registry) CreateLLM(entry BackendEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrBackendNotRegistered, entry.Name)
	}
	return factory(entry)
}
