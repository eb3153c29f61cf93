package profile

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PersonaProfile is the extracted "who they are" snapshot for a member.
// Refreshing replaces the previous row; there is exactly one per member.
type PersonaProfile struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"member_id"`
	Text      string         `gorm:"type:text;not null" json:"text"`
	Embedding datatypes.JSON `gorm:"type:jsonb" json:"embedding,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (PersonaProfile) TableName() string { return "persona_profile" }

// ConnectionPreference is the extracted "who they want to meet" snapshot,
// same lifecycle as PersonaProfile.
type ConnectionPreference struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"member_id"`
	Text      string         `gorm:"type:text;not null" json:"text"`
	Embedding datatypes.JSON `gorm:"type:jsonb" json:"embedding,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (ConnectionPreference) TableName() string { return "connection_preference" }

// EncodeEmbedding serializes an embedding vector for storage.
func EncodeEmbedding(vec []float32) (datatypes.JSON, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("encode embedding: %w", err)
	}
	return datatypes.JSON(b), nil
}

// DecodeEmbedding deserializes a stored embedding vector. A missing column
// decodes to nil rather than an error so callers can treat "never embedded"
// as an empty vector.
func DecodeEmbedding(raw datatypes.JSON) ([]float32, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return vec, nil
}
