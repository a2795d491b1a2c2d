package mcpserver

import (
	"encoding/json"

	"github.com/DataDog/kafka-gateway/gateway"

	"github.com/mark3labs/mcp-go/mcp"
)

// dataEnvelope wraps a successful payload.
type dataEnvelope struct {
	Data interface{} `json:"data"`
}

// errorEnvelope wraps a classified failure.
type errorEnvelope struct {
	Error *gateway.Error `json:"error"`
}

// encodeResult renders a gateway.Result as a tool result. Failures are tool
// errors so that hosts surface them to the model rather than the protocol.
func encodeResult(res gateway.Result) (*mcp.CallToolResult, error) {
	if !res.OK() {
		return encodeError(res.Err)
	}

	return encodeData(res.Payload)
}

func encodeData(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(dataEnvelope{Data: data})
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(b)), nil
}

func encodeError(e *gateway.Error) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(errorEnvelope{Error: e})
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultError(string(b)), nil
}
