package providers

import (
	"sort"
	"testing"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	mock := NewMockClient()
	r.RegisterLLM("primary", mock)

	got, err := r.GetLLM("primary")
	if err != nil {
		t.Fatalf("GetLLM: %v", err)
	}
	if got != mock {
		t.Error("returned a different client")
	}
	if !r.HasLLM("primary") {
		t.Error("HasLLM should be true")
	}

	if _, err := r.GetLLM("missing"); err == nil {
		t.Error("expected error for unknown client")
	}

	r.UnregisterLLM("primary")
	if r.HasLLM("primary") {
		t.Error("client still registered after unregister")
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"mock":     {Type: "mock", Enabled: true},
			"disabled": {Type: "mock", Enabled: false},
			"no-key":   {Type: "openrouter", Enabled: true},
			"keyed":    {Type: "openrouter", APIKey: "sk-test", Enabled: true},
			"unknown":  {Type: "nonsense", APIKey: "x", Enabled: true},
		},
	}

	r := NewRegistryFromConfig(cfg)

	names := r.ListLLM()
	sort.Strings(names)
	want := []string{"keyed", "mock"}
	if len(names) != len(want) {
		t.Fatalf("registered = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("registered = %v, want %v", names, want)
		}
	}
}

func TestRegistryReload(t *testing.T) {
	r := NewRegistryFromConfig(RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"a": {Type: "mock", Enabled: true},
			"b": {Type: "openrouter", APIKey: "key-1", Model: "model-1", Enabled: true},
		},
	})

	before, err := r.GetLLM("b")
	if err != nil {
		t.Fatalf("GetLLM: %v", err)
	}

	t.Run("unchanged provider keeps its client", func(t *testing.T) {
		r.Reload(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"a": {Type: "mock", Enabled: true},
				"b": {Type: "openrouter", APIKey: "key-1", Model: "model-1", Enabled: true},
			},
		})
		after, err := r.GetLLM("b")
		if err != nil {
			t.Fatalf("GetLLM: %v", err)
		}
		if after != before {
			t.Error("unchanged provider was rebuilt")
		}
	})

	t.Run("changed provider is rebuilt", func(t *testing.T) {
		r.Reload(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"a": {Type: "mock", Enabled: true},
				"b": {Type: "openrouter", APIKey: "key-2", Model: "model-1", Enabled: true},
			},
		})
		after, err := r.GetLLM("b")
		if err != nil {
			t.Fatalf("GetLLM: %v", err)
		}
		if after == before {
			t.Error("changed provider not rebuilt")
		}
	})

	t.Run("removed provider is unregistered", func(t *testing.T) {
		r.Reload(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"a": {Type: "mock", Enabled: true},
			},
		})
		if r.HasLLM("b") {
			t.Error("removed provider still registered")
		}
		if !r.HasLLM("a") {
			t.Error("surviving provider lost")
		}
	})

	t.Run("disabled provider is unregistered", func(t *testing.T) {
		r.Reload(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"a": {Type: "mock", Enabled: false},
			},
		})
		if r.HasLLM("a") {
			t.Error("disabled provider still registered")
		}
	})
}

func TestUsable(t *testing.T) {
	tests := []struct {
		name string
		cfg  LLMProviderConfig
		want bool
	}{
		{"mock needs no key", LLMProviderConfig{Type: "mock", Enabled: true}, true},
		{"disabled never usable", LLMProviderConfig{Type: "mock", Enabled: false}, false},
		{"keyed provider", LLMProviderConfig{Type: "gemini", APIKey: "k", Enabled: true}, true},
		{"keyless provider", LLMProviderConfig{Type: "gemini", Enabled: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := usable(tt.cfg); got != tt.want {
				t.Errorf("usable(%+v) = %v, want %v", tt.cfg, got, tt.want)
			}
		})
	}
}
