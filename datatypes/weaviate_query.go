// Copyright (C) 2026 MedAssist AI (dev@medassist.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// ParseGraphQLResponse parses a Weaviate GraphQL response into the target type.
//
// # Description
//
// This generic function encapsulates the marshal/unmarshal pattern required to
// convert Weaviate's dynamic response (map[string]models.JSONObject) into a
// strongly-typed Go struct. The target type T must have json tags matching
// the expected response shape.
//
// # Inputs
//
//   - resp: The GraphQL response from the Weaviate client's Do() method.
//
// # Outputs
//
//   - *T: Pointer to the parsed struct.
//   - error: Non-nil if response is nil or parsing fails.
//
// # Limitations
//
//   - Type mismatches result in zero values, not errors.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}

	return &result, nil
}

// MedicalDocumentQueryResponse represents the response from querying the
// MedicalDocument class.
type MedicalDocumentQueryResponse struct {
	Get struct {
		MedicalDocument []MedicalDocumentResult `json:"MedicalDocument"`
	} `json:"Get"`
}

// MedicalDocumentResult represents a single chunk from a query.
type MedicalDocumentResult struct {
	Content      string `json:"content"`
	Source       string `json:"source"`
	ParentSource string `json:"parent_source"`
	IngestedAt   int64  `json:"ingested_at"`
	Additional   struct {
		ID       string   `json:"id"`
		Distance *float32 `json:"distance"`
	} `json:"_additional"`
}

// MedicalDocumentProperties represents the properties for creating a
// MedicalDocument object.
type MedicalDocumentProperties struct {
	Content      string `json:"content"`
	Source       string `json:"source"`
	ParentSource string `json:"parent_source"`
	IngestedAt   int64  `json:"ingested_at"`
}

// ToMap converts MedicalDocumentProperties to the map format required by
// the Weaviate client's WithProperties() method.
func (p *MedicalDocumentProperties) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"content":       p.Content,
		"source":        p.Source,
		"parent_source": p.ParentSource,
		"ingested_at":   p.IngestedAt,
	}
}
