package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/xeipuuv/gojsonschema"

	"github.com/mwiater/bayesbatch/internal/specs"
)

const customIDPrefix = "request-"

// Request is one line of a batch input file.
type Request struct {
	CustomID string      `json:"custom_id"`
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Body     RequestBody `json:"body"`
}

// RequestBody is the chat completion payload of a request.
type RequestBody struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	Seed        *int64    `json:"seed,omitempty"`
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const requestSchema = `{
  "type": "object",
  "required": ["custom_id", "method", "url", "body"],
  "additionalProperties": false,
  "properties": {
    "custom_id": {"type": "string", "pattern": "^request-[1-9][0-9]*$"},
    "method": {"enum": ["POST"]},
    "url": {"type": "string", "pattern": "^/"},
    "body": {
      "type": "object",
      "required": ["model", "messages"],
      "properties": {
        "model": {"type": "string", "minLength": 1},
        "messages": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["role", "content"],
            "properties": {
              "role": {"enum": ["system", "user", "assistant"]},
              "content": {"type": "string", "minLength": 1}
            }
          }
        },
        "temperature": {"type": "number", "minimum": 0, "maximum": 2},
        "seed": {"type": "integer"}
      }
    }
  }
}`

var requestSchemaLoader = gojsonschema.NewStringLoader(requestSchema)

// CustomID returns the custom id of the row at a 0-based position.
func CustomID(index int) string {
	return customIDPrefix + strconv.Itoa(index+1)
}

// RowIndex maps a custom id back to the 0-based row position.
func RowIndex(customID string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(customID, customIDPrefix))
	if err != nil || !strings.HasPrefix(customID, customIDPrefix) || n < 1 {
		return 0, fmt.Errorf("malformed custom id %q", customID)
	}
	return n - 1, nil
}

// NewRequest builds the request for the row at a 0-based position.
func NewRequest(index int, row specs.Row, endpoint string) Request {
	temperature := row.Temperature
	req := Request{
		CustomID: CustomID(index),
		Method:   "POST",
		URL:      endpoint,
		Body: RequestBody{
			Model:       row.Model,
			Messages:    []Message{{Role: "user", Content: row.Prompt}},
			Temperature: &temperature,
		},
	}
	if row.Seed != nil {
		seed := *row.Seed
		req.Body.Seed = &seed
	}
	return req
}

// EncodeRequests renders one validated request per row as JSON lines.
func EncodeRequests(table specs.Table, endpoint string) ([]byte, error) {
	var buf bytes.Buffer
	var problems *multierror.Error
	for i, row := range table.Rows {
		line, err := json.Marshal(NewRequest(i, row, endpoint))
		if err != nil {
			return nil, fmt.Errorf("encode request %d: %w", i+1, err)
		}
		if err := validateRequest(line); err != nil {
			problems = multierror.Append(problems, fmt.Errorf("%s: %w", CustomID(i), err))
			continue
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := problems.ErrorOrNil(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func validateRequest(line []byte) error {
	result, err := gojsonschema.Validate(requestSchemaLoader, gojsonschema.NewBytesLoader(line))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("request failed validation: %s", strings.Join(details, "; "))
}
