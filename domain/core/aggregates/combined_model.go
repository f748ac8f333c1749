package aggregates

import (
	"time"

	"github.com/tmdt-buw/plasma-sub002/domain/core/traversal"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// CombinedModel is one revision of a modeling session: the schema of a data
// source as the user is shaping it.
type CombinedModel struct {
	sessionID    Identity
	dataSourceID string
	schema       *Schema
	createdAt    time.Time
}

// NewCombinedModel starts a session revision over a copy of schema
func NewCombinedModel(sessionID Identity, schema *Schema) (*CombinedModel, error) {
	if sessionID.IsZero() {
		return nil, pkgerrors.NewValidationError("session id cannot be empty")
	}
	if schema == nil {
		return nil, pkgerrors.NewValidationError("combined model needs a schema")
	}
	return &CombinedModel{
		sessionID:    sessionID,
		dataSourceID: schema.DataSourceID(),
		schema:       schema.Copy(),
		createdAt:    time.Now(),
	}, nil
}

func (m *CombinedModel) SessionID() Identity { return m.sessionID }
func (m *CombinedModel) DataSourceID() string { return m.dataSourceID }
func (m *CombinedModel) Schema() *Schema { return m.schema }
func (m *CombinedModel) CreatedAt() time.Time { return m.createdAt }

// WithSchema returns the next revision of the session carrying schema.
func (m *CombinedModel) WithSchema(schema *Schema) *CombinedModel {
	return &CombinedModel{
		sessionID:    m.sessionID,
		dataSourceID: m.dataSourceID,
		schema:       schema,
		createdAt:    time.Now(),
	}
}

// Copy deep copies the model and its schema
func (m *CombinedModel) Copy() *CombinedModel {
	return &CombinedModel{
		sessionID:    m.sessionID,
		dataSourceID: m.dataSourceID,
		schema:       m.schema.CopyWith(traversal.NewMemo()),
		createdAt:    m.createdAt,
	}
}
