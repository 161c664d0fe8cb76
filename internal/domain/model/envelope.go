package model

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const envelopeSchemaURL = "https://hookline.internal/schema/envelope.json"

//go:embed schema/envelope.json
var envelopeSchemaJSON []byte

var (
	envelopeSchemaOnce sync.Once
	envelopeSchema     *jsonschema.Schema
	errEnvelopeSchema  error
)

// ErrInvalidEnvelope is returned when a verified body cannot be understood.
var ErrInvalidEnvelope = errors.New("invalid webhook envelope")

func compiledEnvelopeSchema() (*jsonschema.Schema, error) {
	envelopeSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(envelopeSchemaJSON))
		if err != nil {
			errEnvelopeSchema = fmt.Errorf("decode envelope schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(envelopeSchemaURL, doc); err != nil {
			errEnvelopeSchema = fmt.Errorf("add envelope schema: %w", err)
			return
		}
		envelopeSchema, errEnvelopeSchema = c.Compile(envelopeSchemaURL)
	})
	return envelopeSchema, errEnvelopeSchema
}

// ParseEnvelopeOptions carries request-level context for ParseEnvelope.
type ParseEnvelopeOptions struct {
	Signature  string
	ReceivedAt time.Time
	// NewID assigns an id when the source did not supply one.
	NewID func() string
}

// ParseEnvelope validates raw against the envelope schema and extracts the
// routing fields. The raw bytes are retained untouched.
func ParseEnvelope(raw []byte, opts ParseEnvelopeOptions) (*WebhookEnvelope, error) {
	schema, err := compiledEnvelopeSchema()
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}

	env := &WebhookEnvelope{
		ID:         payload.String("webhookId || eventId"),
		Type:       ParseWebhookType(payload.String("type")),
		TenantID:   payload.String("locationId || tenantId || location.id || companyId"),
		CompanyID:  payload.String("companyId"),
		ReceivedAt: opts.ReceivedAt.UTC(),
		Payload:    payload,
		Raw:        raw,
		Signature:  opts.Signature,
	}
	if ts, ok := payload.Time("timestamp"); ok {
		env.Timestamp = &ts
	}
	if env.ID == "" && opts.NewID != nil {
		env.ID = opts.NewID()
	}
	if env.ReceivedAt.IsZero() {
		env.ReceivedAt = time.Now().UTC()
	}
	return env, nil
}
