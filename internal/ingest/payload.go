package ingest

import (
	"bytes"
	"encoding/json"
	"strings"
)

// flexString accepts a JSON string or number. Meta test payloads send ids
// as numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// metaPayload covers both the webhook envelope and the flat test shape
type metaPayload struct {
	Entry []struct {
		Changes []struct {
			Value metaLeadValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
	metaLeadValue
}

type metaLeadValue struct {
	FormID    flexString  `json:"form_id"`
	PageID    flexString  `json:"page_id"`
	LeadgenID flexString  `json:"leadgen_id"`
	FieldData []metaField `json:"field_data"`
}

type metaField struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// resolved picks each attribute from the envelope first, then the flat shape
func (p *metaPayload) resolved() metaLeadValue {
	var nested metaLeadValue
	if len(p.Entry) > 0 && len(p.Entry[0].Changes) > 0 {
		nested = p.Entry[0].Changes[0].Value
	}
	out := metaLeadValue{
		FormID:    firstNonEmpty(nested.FormID, p.FormID),
		PageID:    firstNonEmpty(nested.PageID, p.PageID),
		LeadgenID: firstNonEmpty(nested.LeadgenID, p.LeadgenID),
		FieldData: nested.FieldData,
	}
	if out.FieldData == nil {
		out.FieldData = p.FieldData
	}
	return out
}

func firstNonEmpty(values ...flexString) flexString {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Field aliases in priority order
var (
	nameFields  = []string{"full_name", "first_name", "nombre", "name"}
	emailFields = []string{"email", "e-mail", "correo"}
	phoneFields = []string{"phone_number", "telefono", "phone", "cell"}
)

// pickField returns the first value of the first alias with a non-empty
// value, or "".
func pickField(fields []metaField, aliases []string) string {
	for _, alias := range aliases {
		for _, f := range fields {
			if f.Name != alias {
				continue
			}
			if len(f.Values) > 0 && f.Values[0] != "" {
				return f.Values[0]
			}
			break
		}
	}
	return ""
}

type whatsappPayload struct {
	Entry []struct {
		Changes []struct {
			Field string        `json:"field"`
			Value whatsappValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type whatsappValue struct {
	Metadata struct {
		PhoneNumberID      string `json:"phone_number_id"`
		DisplayPhoneNumber string `json:"display_phone_number"`
	} `json:"metadata"`
	Contacts []struct {
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
		WaID string `json:"wa_id"`
	} `json:"contacts"`
	Messages []whatsappMessage `json:"messages"`
}

type whatsappMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
}

// content renders the message body; non-text messages become "[type]"
func (m whatsappMessage) content() string {
	if m.Type == "text" {
		if m.Text == nil {
			return ""
		}
		return m.Text.Body
	}
	return "[" + m.Type + "]"
}

// NormalizePhone keeps only the digits of phone
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
