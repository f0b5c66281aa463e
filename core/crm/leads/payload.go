package leads

import (
	"encoding/json"
	"fmt"
)

// Fields maps lead attributes to custom field ids registered in the CRM account.
type Fields struct {
	Phone  int64
	Age    int64
	Handle int64
}

// Lead is one captured contact.
type Lead struct {
	Name          string
	Phone         string
	AgeBracket    string
	ContactHandle string
}

// LeadID identifies a created lead.
type LeadID int64

type fieldValue struct {
	Value string `json:"value"`
}

type customField struct {
	FieldID int64        `json:"field_id"`
	Values  []fieldValue `json:"values"`
}

type leadRequest struct {
	Name               string        `json:"name"`
	CustomFieldsValues []customField `json:"custom_fields_values"`
}

type leadResponse struct {
	Embedded *struct {
		Leads []struct {
			ID *int64 `json:"id"`
		} `json:"leads"`
	} `json:"_embedded"`
}

// buildPayload renders the batch-create body: a one-element array.
func buildPayload(lead Lead, fields Fields, nameFormat string) ([]byte, error) {
	req := leadRequest{
		Name: fmt.Sprintf(nameFormat, lead.Name),
		CustomFieldsValues: []customField{
			{FieldID: fields.Phone, Values: []fieldValue{{Value: lead.Phone}}},
			{FieldID: fields.Age, Values: []fieldValue{{Value: lead.AgeBracket}}},
			{FieldID: fields.Handle, Values: []fieldValue{{Value: lead.ContactHandle}}},
		},
	}
	return json.Marshal([]leadRequest{req})
}

// parseLeadID extracts _embedded.leads[0].id.
func parseLeadID(body []byte) (LeadID, error) {
	var resp leadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if resp.Embedded == nil || len(resp.Embedded.Leads) == 0 || resp.Embedded.Leads[0].ID == nil {
		return 0, fmt.Errorf("response misses _embedded.leads[0].id")
	}
	return LeadID(*resp.Embedded.Leads[0].ID), nil
}
