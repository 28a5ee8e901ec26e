package shapes

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ShapeResponse is the body returned by the shapes endpoint.
// Unknown fields are ignored; a missing or null shape leaves Shape nil.
type ShapeResponse struct {
	Shape *string `json:"shape"`
}

var errNullBody = errors.New("shape response body is null")

func decodeShapeResponse(body []byte) (ShapeResponse, error) {
	var resp *ShapeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ShapeResponse{}, fmt.Errorf("decode shape response: %w", err)
	}
	if resp == nil {
		return ShapeResponse{}, fmt.Errorf("decode shape response: %w", errNullBody)
	}
	return *resp, nil
}
