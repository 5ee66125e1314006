package enginerouter

import (
	"encoding/json"
	"fmt"
	"strings"
)

type llmReply struct {
	Cmd         string `json:"cmd"`
	Explanation string `json:"explanation"`
	Confidence  float64 `json:"confidence"`
}

// parseLLMReply does a two-pass parse of the model's output: first try
// strict JSON over the whole reply, then fall back to extracting the first
// {...} substring. Anything else is malformed.
func parseLLMReply(raw string) (llmReply, error) {
	var reply llmReply

	if err := json.Unmarshal([]byte(raw), &reply); err == nil {
		if strings.TrimSpace(reply.Cmd) == "" {
			return llmReply{}, fmt.Errorf("reply JSON has empty cmd field")
		}
		return reply, nil
	}

	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return llmReply{}, fmt.Errorf("no JSON object found in reply")
	}

	// Decode reads exactly one JSON value starting at the first '{' and
	// stops there, so any prose or second object after it is ignored.
	if err := json.NewDecoder(strings.NewReader(raw[start:])).Decode(&reply); err != nil {
		return llmReply{}, fmt.Errorf("extracted substring is not valid JSON: %w", err)
	}
	if strings.TrimSpace(reply.Cmd) == "" {
		return llmReply{}, fmt.Errorf("reply JSON has empty cmd field")
	}
	return reply, nil
}
