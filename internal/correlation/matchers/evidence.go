// Package matchers implements the correlation matchers of spec §4.7: each
// matcher inspects one signal — phone, email, temporal session overlap,
// user agent, and cross-channel behavior — and returns Evidence the
// confidence scorer combines.
package matchers

// Evidence is the uniform output of every matcher, per spec §4.7.
type Evidence struct {
	Method  string                 `json:"method"`
	Matched bool                   `json:"matched"`
	Weight  float64                `json:"weight"`
	Quality float64                `json:"quality"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// DefaultWeights are the per-method weights spec §4.7 assigns by default.
var DefaultWeights = map[string]float64{
	"phone":      0.90,
	"email":      0.85,
	"session":    0.70,
	"user_agent": 0.50,
	"ml_model":   0.60,
	"manual":     1.00,
}

func noMatch(method string) Evidence {
	return Evidence{Method: method, Matched: false, Weight: DefaultWeights[method]}
}
