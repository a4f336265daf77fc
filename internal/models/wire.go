package models

// ChatRequest is the body accepted by both relay endpoints. Image carries the
// user message's inline attachments, if any.
type ChatRequest struct {
	Prompt string          `json:"prompt" validate:"required"`
	Image  []Attachment    `json:"image,omitempty"`
	Config *ConfigOverride `json:"config,omitempty"`
}

// ConfigOverride is the per-request generation override. Temperature is a
// pointer so an omitted field is distinguishable from an explicit zero.
type ConfigOverride struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// ChatResponse is the JSON body of the non-streaming endpoint.
type ChatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
	Details  string `json:"details,omitempty"`
}

// StreamErrorMarker is appended in-band by the relay when the upstream
// provider fails after the stream has already started, so the client's
// partial transcript matches what was actually sent.
const StreamErrorMarker = "\n\n⚠️ Error: upstream generation failed."
