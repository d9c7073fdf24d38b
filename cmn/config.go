package cmn

import (
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BackendSpec names one configured backend module (§6, "Configuration").
type BackendSpec struct {
	Name      string `json:"name"`
	Component string `json:"component"` // "client" | "server"
	Path      string `json:"path"`
}

// Config is the in-memory shape of the configuration record described in
// §6. Loading it from a file (YAML/INI, hot-reload, schema validation) is
// the out-of-scope "configuration loader" named in §1; this struct and its
// environment-variable bootstrap are the ambient piece this core still
// owns.
type Config struct {
	ObjectBackend *BackendSpec `json:"object_backend,omitempty"`
	KVBackend     *BackendSpec `json:"kv_backend,omitempty"`

	ObjectServers []string `json:"object_servers"`
	KVServers     []string `json:"kv_servers"`

	// ServerCount, per backend kind, overrides len(ObjectServers)/
	// len(KVServers) when the deployment fans out fewer servers than
	// hostnames configured (e.g. multiple backends sharing a host).
	ServerCount map[BackendKind]int `json:"server_count,omitempty"`

	MaxOperationSize uint64 `json:"max_operation_size"`
	StripeSize       uint32 `json:"stripe_size"`

	// MaxConnsPerServer and AllowOverflow parameterize the connection
	// pool (§4.2).
	MaxConnsPerServer int  `json:"max_conns_per_server"`
	AllowOverflow     bool `json:"allow_overflow"`

	// ModulePath mirrors "Environment variables govern module search
	// path" (§6); it has no effect in this module (backends are
	// registered in-process, §4.3) but is carried for configuration-record
	// completeness.
	ModulePath string `json:"module_path"`
}

// ServerCountFor returns the configured or derived number of servers for
// the given backend kind, used to compute index = hash(name) mod S (§3).
func (c *Config) ServerCountFor(kind BackendKind) int {
	if c.ServerCount != nil {
		if n, ok := c.ServerCount[kind]; ok && n > 0 {
			return n
		}
	}
	switch kind {
	case BackendKV:
		return len(c.KVServers)
	default:
		return len(c.ObjectServers)
	}
}

// DefaultConfig returns a Config with the spec's default sizes and no
// configured servers (suitable for local-backend-only operation).
func DefaultConfig() *Config {
	return &Config{
		MaxOperationSize:  DefaultMaxOperationSize,
		StripeSize:        DefaultStripeSize,
		MaxConnsPerServer: 8,
	}
}

// ConfigFromEnv builds a Config from JULEA_* environment variables,
// falling back to DefaultConfig's values where unset.
func ConfigFromEnv() *Config {
	c := DefaultConfig()
	if v := os.Getenv("JULEA_OBJECT_SERVERS"); v != "" {
		c.ObjectServers = splitNonEmpty(v)
	}
	if v := os.Getenv("JULEA_KV_SERVERS"); v != "" {
		c.KVServers = splitNonEmpty(v)
	}
	if v := os.Getenv("JULEA_MAX_OPERATION_SIZE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.MaxOperationSize = n
		}
	}
	if v := os.Getenv("JULEA_STRIPE_SIZE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.StripeSize = uint32(n)
		}
	}
	if v := os.Getenv("JULEA_MODULE_PATH"); v != "" {
		c.ModulePath = v
	}
	return c
}

func splitNonEmpty(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ToJSON / FromJSON: json-iterator roundtrip support for Config (§10: json-iterator wiring).
func (c *Config) ToJSON() ([]byte, error)   { return json.Marshal(c) }
func (c *Config) FromJSON(b []byte) error   { return json.Unmarshal(b, c) }

// Semantics carries the per-batch knobs of §3: Safety is actively used;
// the remaining fields are reserved, matching the spec's "(unused but
// reserved) atomicity/concurrency/persistency knobs."
type Semantics struct {
	Safety       Safety
	Atomicity    int // reserved
	Concurrency  int // reserved
	Persistency  int // reserved
}

// DefaultSemantics returns semantics with SafetyNetwork, a reasonable
// default for correctness-sensitive callers.
func DefaultSemantics() Semantics {
	return Semantics{Safety: SafetyNetwork}
}
